package service

import (
	"context"
	"time"

	"reloop-service/internal/geo"
	"reloop-service/internal/models"
	"reloop-service/internal/util"
)

// WarehouseLocator selects warehouses by distance to a point. The default
// implementation is a linear scan over all candidates; callers depend on
// this interface so a spatial index can replace the scan without touching
// them.
type WarehouseLocator interface {
	// FindNearest returns the closest eligible warehouse and its distance in
	// km (rounded to 2 dp), or (nil, 0) when no warehouse qualifies.
	FindNearest(ctx context.Context, point models.Coordinate) (*models.Warehouse, float64, error)

	// FindFarthest returns the most distant warehouse regardless of
	// eligibility; it is the worst-case baseline for savings calculations.
	FindFarthest(ctx context.Context, point models.Coordinate) (*models.Warehouse, float64, error)
}

const warehouseCacheTTL = 15 * time.Second

// scanLocator is the O(n) total-scan locator over the warehouse table,
// fronted by a short-lived Redis cache. Loads read through the cache can lag
// by up to the TTL; the capacity gate tolerates that at this scale.
type scanLocator struct {
	store Store
	cache WarehouseCache
}

// NewWarehouseLocator creates the default linear-scan locator. cache may be
// nil, in which case every lookup hits the database.
func NewWarehouseLocator(store Store, cache WarehouseCache) WarehouseLocator {
	return &scanLocator{store: store, cache: cache}
}

func (l *scanLocator) warehouses(ctx context.Context) ([]models.Warehouse, error) {
	if l.cache != nil {
		cached, err := l.cache.GetCachedWarehouses(ctx)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	warehouses, err := l.store.GetWarehouses(ctx)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		// Cache failures only cost the fast path.
		_ = l.cache.CacheWarehouses(ctx, warehouses, warehouseCacheTTL)
	}
	return warehouses, nil
}

func (l *scanLocator) FindNearest(ctx context.Context, point models.Coordinate) (*models.Warehouse, float64, error) {
	start := time.Now()
	defer func() {
		util.WarehouseLookupLatency.Observe(time.Since(start).Seconds())
	}()

	warehouses, err := l.warehouses(ctx)
	if err != nil {
		return nil, 0, err
	}

	match, err := geo.Nearest(point, warehouses)
	if err != nil {
		return nil, 0, err
	}
	return match.Warehouse, match.DistanceKm, nil
}

func (l *scanLocator) FindFarthest(ctx context.Context, point models.Coordinate) (*models.Warehouse, float64, error) {
	warehouses, err := l.warehouses(ctx)
	if err != nil {
		return nil, 0, err
	}

	match, err := geo.Farthest(point, warehouses)
	if err != nil {
		return nil, 0, err
	}
	return match.Warehouse, match.DistanceKm, nil
}
