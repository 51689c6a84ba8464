package service

import (
	"context"
	"fmt"

	"reloop-service/internal/models"
	"reloop-service/internal/util"

	"go.uber.org/zap"
)

// WarehouseService handles warehouse CRUD, nearest lookups and fleet stats
type WarehouseService struct {
	store   Store
	locator WarehouseLocator
	cache   WarehouseCache
	logger  *zap.Logger
}

// NewWarehouseService creates a new warehouse service
func NewWarehouseService(store Store, locator WarehouseLocator, cache WarehouseCache) *WarehouseService {
	return &WarehouseService{
		store:   store,
		locator: locator,
		cache:   cache,
		logger:  util.GetLogger(),
	}
}

// List retrieves all warehouses
func (s *WarehouseService) List(ctx context.Context) ([]models.Warehouse, error) {
	return s.store.GetWarehouses(ctx)
}

// Get retrieves a warehouse by ID
func (s *WarehouseService) Get(ctx context.Context, id int64) (*models.Warehouse, error) {
	wh, err := s.store.GetWarehouseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, fmt.Errorf("warehouse %d: %w", id, ErrNotFound)
	}
	return wh, nil
}

// Nearest finds the closest eligible warehouse to a point
func (s *WarehouseService) Nearest(ctx context.Context, point models.Coordinate) (*models.Warehouse, float64, error) {
	return s.locator.FindNearest(ctx, point)
}

// Create creates a warehouse and invalidates the locator cache
func (s *WarehouseService) Create(ctx context.Context, wh *models.Warehouse) error {
	if !wh.Location().Valid() {
		return fmt.Errorf("warehouse location: %w", ErrInvalidCoordinate)
	}
	if wh.Capacity <= 0 {
		return fmt.Errorf("warehouse capacity must be positive: %w", ErrInvalidStatus)
	}
	if wh.Status == "" {
		wh.Status = models.WarehouseStatusActive
	}

	if err := s.store.CreateWarehouse(ctx, wh); err != nil {
		return fmt.Errorf("failed to create warehouse: %w", err)
	}
	s.invalidateCache(ctx)

	s.logger.Info("Warehouse created", zap.String("code", wh.Code), zap.Int64("id", wh.ID))
	return nil
}

// Update updates a warehouse and invalidates the locator cache
func (s *WarehouseService) Update(ctx context.Context, wh *models.Warehouse) error {
	existing, err := s.Get(ctx, wh.ID)
	if err != nil {
		return err
	}
	if !wh.Location().Valid() {
		return fmt.Errorf("warehouse location: %w", ErrInvalidCoordinate)
	}

	wh.Code = existing.Code // code is immutable
	if err := s.store.UpdateWarehouse(ctx, wh); err != nil {
		return fmt.Errorf("failed to update warehouse: %w", err)
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *WarehouseService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateWarehouses(ctx); err != nil {
		s.logger.Warn("Failed to invalidate warehouse cache", zap.Error(err))
	}
}

// FleetStats is the warehouse dashboard aggregate
type FleetStats struct {
	TotalWarehouses   int                `json:"total_warehouses"`
	ActiveWarehouses  int                `json:"active_warehouses"`
	TotalCapacity     int                `json:"total_capacity"`
	TotalLoad         int                `json:"total_load"`
	UtilizationRate   int                `json:"utilization_rate"`
	PendingInspection int64              `json:"pending_inspection"`
	RepackagingQueue  int64              `json:"repackaging_queue"`
	LocalPoolItems    int64              `json:"local_pool_items"`
	Warehouses        []WarehouseSummary `json:"warehouses"`
}

// WarehouseSummary is a per-warehouse line on the dashboard
type WarehouseSummary struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Code           string  `json:"code"`
	Status         string  `json:"status"`
	LoadPercentage int     `json:"load_percentage"`
	CurrentLoad    int     `json:"current_load"`
	Capacity       int     `json:"capacity"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	DemandScore    int     `json:"demand_score"`
}

// Stats aggregates warehouse utilization and processing queue depths
func (s *WarehouseService) Stats(ctx context.Context) (*FleetStats, error) {
	warehouses, err := s.store.GetWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	invStats, err := s.store.GetInventoryStats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &FleetStats{
		TotalWarehouses:   len(warehouses),
		PendingInspection: invStats.PendingInspection,
		RepackagingQueue:  invStats.RepackagingQueue,
		LocalPoolItems:    invStats.LocalPoolItems,
		Warehouses:        make([]WarehouseSummary, 0, len(warehouses)),
	}

	for i := range warehouses {
		w := &warehouses[i]
		if w.Status == models.WarehouseStatusActive {
			stats.ActiveWarehouses++
		}
		stats.TotalCapacity += w.Capacity
		stats.TotalLoad += w.CurrentLoad

		stats.Warehouses = append(stats.Warehouses, WarehouseSummary{
			ID:             w.ID,
			Name:           w.Name,
			Code:           w.Code,
			Status:         w.Status,
			LoadPercentage: w.LoadPercentage(),
			CurrentLoad:    w.CurrentLoad,
			Capacity:       w.Capacity,
			Lat:            w.Lat,
			Lng:            w.Lng,
			DemandScore:    w.DemandScore,
		})
	}

	if stats.TotalCapacity > 0 {
		stats.UtilizationRate = int(float64(stats.TotalLoad) / float64(stats.TotalCapacity) * 100)
	}
	return stats, nil
}
