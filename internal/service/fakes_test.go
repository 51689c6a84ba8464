package service

import (
	"context"
	"sync"
	"time"

	"reloop-service/internal/models"
	"reloop-service/internal/store"
)

// fakeStore is an in-memory Store for service tests. The embedded interface
// panics on any method a test exercises without seeding, which keeps the
// fake honest about what each test actually touches.
type fakeStore struct {
	Store

	mu sync.Mutex

	products    map[int64]*models.Product
	orders      map[int64]*models.Order
	returns     map[int64]*models.Return
	items       map[int64]*models.InventoryItem
	warehouses  map[int64]*models.Warehouse
	sellerIDs   map[int64][]int64
	pastReturns int

	seq    map[string]int64
	nextID int64

	orderEvents  map[int64][]models.TimelineEntry
	returnEvents map[int64][]models.TimelineEntry

	localPoolItem *models.InventoryItem
	anyStockItem  *models.InventoryItem

	consumed     []int64
	pooledCount  int
	orderStatus  map[int64]string
	deliveredIDs []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:     make(map[int64]*models.Product),
		orders:       make(map[int64]*models.Order),
		returns:      make(map[int64]*models.Return),
		items:        make(map[int64]*models.InventoryItem),
		warehouses:   make(map[int64]*models.Warehouse),
		sellerIDs:    make(map[int64][]int64),
		seq:          make(map[string]int64),
		orderEvents:  make(map[int64][]models.TimelineEntry),
		returnEvents: make(map[int64][]models.TimelineEntry),
		orderStatus:  make(map[int64]string),
	}
}

func (f *fakeStore) nextIDLocked() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) NextSequence(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq[name]++
	return f.seq[name], nil
}

func (f *fakeStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id], nil
}

func (f *fakeStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) GetProductsBySeller(ctx context.Context, sellerID int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, p := range f.products {
		if p.SellerID == sellerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetProductIDsBySeller(ctx context.Context, sellerID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sellerIDs[sellerID], nil
}

func (f *fakeStore) CreateProduct(ctx context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	product.ID = f.nextIDLocked()
	product.CreatedAt = time.Now()
	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[product.ID]; ok {
		p.Name = product.Name
		p.Description = product.Description
		p.Price = product.Price
		p.Category = product.Category
		p.AllowLocalWarehouse = product.AllowLocalWarehouse
	}
	return nil
}

func (f *fakeStore) SetProductLocalWarehouse(ctx context.Context, productID int64, allowed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.products[productID]; ok {
		p.AllowLocalWarehouse = allowed
	}
	return nil
}

func (f *fakeStore) GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if wh, ok := f.warehouses[id]; ok {
		cp := *wh
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = f.nextIDLocked()
	order.CreatedAt = time.Now()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok {
		o.Status = status
	}
	f.orderStatus[orderID] = status
	return nil
}

func (f *fakeStore) MarkOrderDelivered(ctx context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok {
		o.Status = models.OrderStatusDelivered
		now := time.Now()
		o.ActualDelivery = &now
	}
	f.deliveredIDs = append(f.deliveredIDs, orderID)
	return nil
}

func (f *fakeStore) AppendOrderEvent(ctx context.Context, orderID int64, status, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderEvents[orderID] = append(f.orderEvents[orderID], models.TimelineEntry{
		Status: status, Note: note, Timestamp: time.Now(),
	})
	return nil
}

func (f *fakeStore) GetOrderTimeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderEvents[orderID], nil
}

func (f *fakeStore) CountReturnsByUserSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	return f.pastReturns, nil
}

func (f *fakeStore) CreateReturn(ctx context.Context, ret *models.Return) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret.ID = f.nextIDLocked()
	ret.CreatedAt = time.Now()
	cp := *ret
	f.returns[ret.ID] = &cp
	return nil
}

func (f *fakeStore) GetReturnByID(ctx context.Context, id int64) (*models.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.returns[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) UpdateReturnApproval(ctx context.Context, returnID int64, approvalStatus, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.returns[returnID]; ok {
		r.ApprovalStatus = approvalStatus
		r.Status = status
	}
	return nil
}

func (f *fakeStore) UpdateReturnStatus(ctx context.Context, returnID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.returns[returnID]; ok {
		r.Status = status
	}
	return nil
}

func (f *fakeStore) ResetReturnInspection(ctx context.Context, returnID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.returns[returnID]; ok {
		r.InspectionResult = models.ConditionPending
		r.ResaleDecision = models.ResalePending
	}
	return nil
}

func (f *fakeStore) UpdateReturnInspection(ctx context.Context, returnID int64, condition, resaleDecision string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.returns[returnID]; ok {
		r.InspectionResult = condition
		r.ResaleDecision = resaleDecision
	}
	return nil
}

func (f *fakeStore) UpdateReturnSellerDecision(ctx context.Context, returnID int64, decision, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.returns[returnID]; ok {
		r.SellerDecision = decision
		r.Status = status
	}
	return nil
}

func (f *fakeStore) UpdateReturnAssignment(ctx context.Context, returnID int64, warehouseID *int64, distanceKm float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.returns[returnID]; ok {
		r.AssignedWarehouse = warehouseID
		r.DistanceSaved = distanceKm
	}
	return nil
}

func (f *fakeStore) AppendReturnEvent(ctx context.Context, returnID int64, status, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returnEvents[returnID] = append(f.returnEvents[returnID], models.TimelineEntry{
		Status: status, Note: note, Timestamp: time.Now(),
	})
	return nil
}

func (f *fakeStore) GetReturnTimeline(ctx context.Context, returnID int64) ([]models.TimelineEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.returnEvents[returnID], nil
}

func (f *fakeStore) FindLocalPoolItem(ctx context.Context, productID, warehouseID int64, quantity int) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.localPoolItem != nil && f.localPoolItem.ProductID == productID &&
		f.localPoolItem.WarehouseID == warehouseID && f.localPoolItem.Quantity >= quantity {
		cp := *f.localPoolItem
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) FindAnyStock(ctx context.Context, productID int64, quantity int) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.anyStockItem != nil && f.anyStockItem.ProductID == productID && f.anyStockItem.Quantity >= quantity {
		cp := *f.anyStockItem
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ConsumeInventoryTx(ctx context.Context, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed = append(f.consumed, itemID)
	return nil
}

// CreatePooledItemTx mirrors the conditional pooled-flag update in the real
// store: the first caller wins, later callers get a nil item.
func (f *fakeStore) CreatePooledItemTx(ctx context.Context, ret *models.Return) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.returns[ret.ID]
	if !ok || stored.Pooled {
		return nil, nil
	}
	stored.Pooled = true
	f.pooledCount++

	item := &models.InventoryItem{
		ID:                f.nextIDLocked(),
		ProductID:         ret.ProductID,
		WarehouseID:       derefWarehouse(ret.AssignedWarehouse),
		Quantity:          1,
		Condition:         models.ItemConditionLikeNew,
		InspectionStatus:  models.InspectionPassed,
		RepackagingStatus: models.RepackagingDone,
		LabelGenerated:    true,
		IsLocalPool:       true,
		Source:            models.SourceReturn,
		ReturnRef:         &ret.ID,
	}
	f.items[item.ID] = item
	return item, nil
}

func derefWarehouse(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func (f *fakeStore) GetReturnsByUserID(ctx context.Context, userID int64) ([]models.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Return
	for _, r := range f.returns {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetReturnsByStatuses(ctx context.Context, statuses []string) ([]models.Return, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []models.Return
	for _, r := range f.returns {
		if want[r.Status] {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.nextIDLocked()
	item.CreatedAt = time.Now()
	cp := *item
	f.items[item.ID] = &cp
	if wh, ok := f.warehouses[item.WarehouseID]; ok {
		wh.CurrentLoad += item.Quantity
	}
	return nil
}

func (f *fakeStore) GetInventoryItemByID(ctx context.Context, id int64) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) UpdateInspectionStatus(ctx context.Context, itemID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[itemID]; ok {
		item.InspectionStatus = status
		if status == models.InspectionPassed && item.RepackagingStatus == models.RepackagingNotNeeded {
			item.RepackagingStatus = models.RepackagingPending
		}
	}
	return nil
}

func (f *fakeStore) UpdateRepackagingStatus(ctx context.Context, itemID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[itemID]; ok {
		item.RepackagingStatus = status
		if status == models.RepackagingDone {
			item.LabelGenerated = true
		}
	}
	return nil
}

func (f *fakeStore) ListInventory(ctx context.Context, filter store.InventoryFilter) ([]models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InventoryItem
	for _, item := range f.items {
		out = append(out, *item)
	}
	return out, nil
}

// fakeLocator returns fixed nearest/farthest answers.
type fakeLocator struct {
	nearest  *models.Warehouse
	nearDist float64
	farthest *models.Warehouse
	farDist  float64
}

func (l *fakeLocator) FindNearest(ctx context.Context, point models.Coordinate) (*models.Warehouse, float64, error) {
	return l.nearest, l.nearDist, nil
}

func (l *fakeLocator) FindFarthest(ctx context.Context, point models.Coordinate) (*models.Warehouse, float64, error) {
	return l.farthest, l.farDist, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu             sync.Mutex
	orderPlaced    []*models.OrderPlacedEvent
	orderStatus    []*models.OrderStatusChangedEvent
	returnCreated  []*models.ReturnCreatedEvent
	returnStatus   []*models.ReturnStatusChangedEvent
	pooled         []*models.InventoryPooledEvent
}

func (p *fakePublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderPlaced = append(p.orderPlaced, e)
	return nil
}

func (p *fakePublisher) PublishOrderStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderStatus = append(p.orderStatus, e)
	return nil
}

func (p *fakePublisher) PublishReturnCreated(ctx context.Context, e *models.ReturnCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.returnCreated = append(p.returnCreated, e)
	return nil
}

func (p *fakePublisher) PublishReturnStatusChanged(ctx context.Context, e *models.ReturnStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.returnStatus = append(p.returnStatus, e)
	return nil
}

func (p *fakePublisher) PublishInventoryPooled(ctx context.Context, e *models.InventoryPooledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pooled = append(p.pooled, e)
	return nil
}
