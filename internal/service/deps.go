package service

import (
	"context"
	"time"

	"reloop-service/internal/models"
	"reloop-service/internal/store"
)

// Store is the persistence surface the services depend on. *store.Store
// implements it; tests substitute in-memory fakes.
type Store interface {
	NextSequence(ctx context.Context, name string) (int64, error)

	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductsBySeller(ctx context.Context, sellerID int64) ([]models.Product, error)
	GetProductIDsBySeller(ctx context.Context, sellerID int64) ([]int64, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	SetProductLocalWarehouse(ctx context.Context, productID int64, allowed bool) error

	GetWarehouses(ctx context.Context) ([]models.Warehouse, error)
	GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error)
	CreateWarehouse(ctx context.Context, wh *models.Warehouse) error
	UpdateWarehouse(ctx context.Context, wh *models.Warehouse) error
	AdjustDemandScore(ctx context.Context, warehouseID int64, delta int) error

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrders(ctx context.Context) ([]models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	MarkOrderDelivered(ctx context.Context, orderID int64) error
	AppendOrderEvent(ctx context.Context, orderID int64, status, note string) error
	GetOrderTimeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error)
	CountOrders(ctx context.Context) (int64, error)
	GetLocalFulfillmentStats(ctx context.Context) (*store.LocalFulfillmentStats, error)

	CreateReturn(ctx context.Context, ret *models.Return) error
	GetReturnByID(ctx context.Context, id int64) (*models.Return, error)
	GetReturns(ctx context.Context) ([]models.Return, error)
	GetReturnsByUserID(ctx context.Context, userID int64) ([]models.Return, error)
	GetReturnsByProductIDs(ctx context.Context, productIDs []int64) ([]models.Return, error)
	GetReturnsByStatuses(ctx context.Context, statuses []string) ([]models.Return, error)
	CountReturns(ctx context.Context) (int64, error)
	CountReturnsByStatuses(ctx context.Context, statuses []string) (int64, error)
	CountReturnsByUserSince(ctx context.Context, userID int64, since time.Time) (int, error)
	UpdateReturnApproval(ctx context.Context, returnID int64, approvalStatus, status string) error
	UpdateReturnStatus(ctx context.Context, returnID int64, status string) error
	ResetReturnInspection(ctx context.Context, returnID int64) error
	UpdateReturnInspection(ctx context.Context, returnID int64, condition, resaleDecision string) error
	UpdateReturnSellerDecision(ctx context.Context, returnID int64, decision, status string) error
	UpdateReturnAssignment(ctx context.Context, returnID int64, warehouseID *int64, distanceKm float64) error
	AppendReturnEvent(ctx context.Context, returnID int64, status, note string) error
	GetReturnTimeline(ctx context.Context, returnID int64) ([]models.TimelineEntry, error)

	FindLocalPoolItem(ctx context.Context, productID, warehouseID int64, quantity int) (*models.InventoryItem, error)
	FindAnyStock(ctx context.Context, productID int64, quantity int) (*models.InventoryItem, error)
	ConsumeInventoryTx(ctx context.Context, itemID int64, quantity int) error
	CreatePooledItemTx(ctx context.Context, ret *models.Return) (*models.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error
	GetInventoryItemByID(ctx context.Context, id int64) (*models.InventoryItem, error)
	ListInventory(ctx context.Context, filter store.InventoryFilter) ([]models.InventoryItem, error)
	FindLocalAvailable(ctx context.Context, productID int64) ([]models.InventoryItem, error)
	UpdateInspectionStatus(ctx context.Context, itemID int64, status string) error
	UpdateRepackagingStatus(ctx context.Context, itemID int64, status string) error
	GetInventoryStats(ctx context.Context) (*store.InventoryStats, error)
}

// Locker provides per-entity mutual exclusion for read-modify-write
// sequences on returns and inventory.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Publisher emits domain events. *broker.EventPublisher implements it.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishReturnCreated(ctx context.Context, event *models.ReturnCreatedEvent) error
	PublishReturnStatusChanged(ctx context.Context, event *models.ReturnStatusChangedEvent) error
	PublishInventoryPooled(ctx context.Context, event *models.InventoryPooledEvent) error
}

// WarehouseCache is the optional read cache in front of the locator.
// *redisclient.Client implements it.
type WarehouseCache interface {
	GetCachedWarehouses(ctx context.Context) ([]models.Warehouse, error)
	CacheWarehouses(ctx context.Context, warehouses []models.Warehouse, ttl time.Duration) error
	InvalidateWarehouses(ctx context.Context) error
}

// Roles supplied by the identity collaborator. The core trusts these without
// revalidation.
const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Principal is the acting identity on a request.
type Principal struct {
	ID   int64
	Role string
	Home models.Coordinate
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
