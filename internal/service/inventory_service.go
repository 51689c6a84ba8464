package service

import (
	"context"
	"fmt"

	"reloop-service/internal/models"
	"reloop-service/internal/store"
	"reloop-service/internal/util"

	"go.uber.org/zap"
)

// InventoryService exposes the warehouse-floor inventory surface: filtered
// listings, local availability checks, and the inspection/repackaging
// progress updates that qualify a line for local-pool fulfillment.
type InventoryService struct {
	store  Store
	logger *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store Store) *InventoryService {
	return &InventoryService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// List retrieves inventory lines matching the filter
func (s *InventoryService) List(ctx context.Context, filter store.InventoryFilter) ([]models.InventoryItem, error) {
	return s.store.ListInventory(ctx, filter)
}

// validItemConditions accepted by Create
var validItemConditions = map[string]bool{
	models.ItemConditionNew:     true,
	models.ItemConditionLikeNew: true,
	models.ItemConditionGood:    true,
	models.ItemConditionFair:    true,
}

// AddInventoryRequest is a request to stock a warehouse
type AddInventoryRequest struct {
	ProductID   int64  `json:"product_id" binding:"required"`
	WarehouseID int64  `json:"warehouse_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
	Condition   string `json:"condition,omitempty"`
}

// Create adds a plain stock line to a warehouse. Stock added this way has no
// inspection or repackaging pipeline to pass and never joins the local pool.
func (s *InventoryService) Create(ctx context.Context, req *AddInventoryRequest) (*models.InventoryItem, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", ErrInvalidStatus)
	}
	condition := req.Condition
	if condition == "" {
		condition = models.ItemConditionNew
	}
	if !validItemConditions[condition] {
		return nil, fmt.Errorf("condition %q: %w", condition, ErrInvalidCondition)
	}

	product, err := s.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("product %d: %w", req.ProductID, ErrNotFound)
	}
	warehouse, err := s.store.GetWarehouseByID(ctx, req.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load warehouse: %w", err)
	}
	if warehouse == nil {
		return nil, fmt.Errorf("warehouse %d: %w", req.WarehouseID, ErrNotFound)
	}

	item := &models.InventoryItem{
		ProductID:         req.ProductID,
		WarehouseID:       req.WarehouseID,
		Quantity:          req.Quantity,
		Condition:         condition,
		InspectionStatus:  models.InspectionPending,
		RepackagingStatus: models.RepackagingNotNeeded,
		Source:            models.SourceOriginal,
	}

	if err := s.store.CreateInventoryItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create inventory: %w", err)
	}

	s.logger.Info("Inventory stocked",
		zap.Int64("product_id", item.ProductID),
		zap.Int64("warehouse_id", item.WarehouseID),
		zap.Int("quantity", item.Quantity))
	return item, nil
}

// LocalAvailability reports qualified local-pool lines for a product
type LocalAvailability struct {
	Available bool                   `json:"available"`
	Items     []models.InventoryItem `json:"items"`
}

// CheckLocal reports whether a product can be fulfilled from the local pool
func (s *InventoryService) CheckLocal(ctx context.Context, productID int64) (*LocalAvailability, error) {
	items, err := s.store.FindLocalAvailable(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &LocalAvailability{Available: len(items) > 0, Items: items}, nil
}

// validInspectionStatuses accepted by UpdateInspection
var validInspectionStatuses = map[string]bool{
	models.InspectionPending:    true,
	models.InspectionInspecting: true,
	models.InspectionPassed:     true,
	models.InspectionFailed:     true,
}

// UpdateInspection sets an inventory line inspection status. Passing
// inspection moves a not-needed repackaging line into the queue.
func (s *InventoryService) UpdateInspection(ctx context.Context, itemID int64, status string) (*models.InventoryItem, error) {
	if !validInspectionStatuses[status] {
		return nil, fmt.Errorf("inspection status %q: %w", status, ErrInvalidStatus)
	}

	item, err := s.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateInspectionStatus(ctx, item.ID, status); err != nil {
		return nil, err
	}

	s.logger.Info("Inventory inspection updated",
		zap.Int64("inventory_id", item.ID),
		zap.String("status", status))

	return s.getItem(ctx, itemID)
}

// validRepackagingStatuses accepted by UpdateRepackaging
var validRepackagingStatuses = map[string]bool{
	models.RepackagingNotNeeded:  true,
	models.RepackagingPending:    true,
	models.RepackagingInProgress: true,
	models.RepackagingDone:       true,
}

// UpdateRepackaging sets an inventory line repackaging status. Done also
// marks the shipping label generated.
func (s *InventoryService) UpdateRepackaging(ctx context.Context, itemID int64, status string) (*models.InventoryItem, error) {
	if !validRepackagingStatuses[status] {
		return nil, fmt.Errorf("repackaging status %q: %w", status, ErrInvalidStatus)
	}

	item, err := s.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateRepackagingStatus(ctx, item.ID, status); err != nil {
		return nil, err
	}

	return s.getItem(ctx, itemID)
}

func (s *InventoryService) getItem(ctx context.Context, itemID int64) (*models.InventoryItem, error) {
	item, err := s.store.GetInventoryItemByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("inventory item %d: %w", itemID, ErrNotFound)
	}
	return item, nil
}
