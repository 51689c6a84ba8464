package service

import (
	"context"
	"math"

	"reloop-service/internal/geo"
	"reloop-service/internal/models"
	"reloop-service/internal/util"

	"go.uber.org/zap"
)

// treeAbsorptionKgPerYear is the rough CO2 uptake of one tree.
const treeAbsorptionKgPerYear = 21.0

// AnalyticsService summarizes core-produced data for dashboards. Read-only;
// no new algorithms live here.
type AnalyticsService struct {
	store  Store
	logger *zap.Logger
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(store Store) *AnalyticsService {
	return &AnalyticsService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CostSavingsReport summarizes savings from local fulfillment
type CostSavingsReport struct {
	TotalCostSaved        int64   `json:"total_cost_saved"`
	TotalTimeSaved        float64 `json:"total_time_saved"`
	LocalFulfillmentCount int64   `json:"local_fulfillment_count"`
	TotalOrders           int64   `json:"total_orders"`
	LocalFulfillmentRate  int     `json:"local_fulfillment_rate"`
	AvgCostSavedPerOrder  int64   `json:"avg_cost_saved_per_order"`
	AvgTimeSavedPerOrder  float64 `json:"avg_time_saved_per_order"`
}

// CostSavings aggregates cost/time saved across locally fulfilled orders
func (s *AnalyticsService) CostSavings(ctx context.Context) (*CostSavingsReport, error) {
	stats, err := s.store.GetLocalFulfillmentStats(ctx)
	if err != nil {
		return nil, err
	}
	totalOrders, err := s.store.CountOrders(ctx)
	if err != nil {
		return nil, err
	}

	report := &CostSavingsReport{
		TotalCostSaved:        stats.TotalCostSaved,
		TotalTimeSaved:        stats.TotalTimeSaved,
		LocalFulfillmentCount: stats.LocalCount,
		TotalOrders:           totalOrders,
	}
	if totalOrders > 0 {
		report.LocalFulfillmentRate = int(math.Round(float64(stats.LocalCount) / float64(totalOrders) * 100))
	}
	if stats.LocalCount > 0 {
		report.AvgCostSavedPerOrder = int64(math.Round(float64(stats.TotalCostSaved) / float64(stats.LocalCount)))
		report.AvgTimeSavedPerOrder = math.Round(stats.TotalTimeSaved/float64(stats.LocalCount)*10) / 10
	}
	return report, nil
}

// CO2Report summarizes emissions avoided by local return routing
type CO2Report struct {
	TotalCO2Saved        float64 `json:"total_co2_saved"`
	TotalDistanceReduced float64 `json:"total_distance_reduced"`
	TreesEquivalent      int     `json:"trees_equivalent"`
}

// co2Statuses are the return states counted as locally reused.
var co2Statuses = []string{models.ReturnStatusInLocalPool, models.ReturnStatusRelabeled}

// CO2Savings sums avoided distance and CO2 across locally reused returns.
// Sellers see only their own products.
func (s *AnalyticsService) CO2Savings(ctx context.Context, principal Principal) (*CO2Report, error) {
	returns, err := s.store.GetReturnsByStatuses(ctx, co2Statuses)
	if err != nil {
		return nil, err
	}

	if principal.Role == RoleSeller {
		productIDs, err := s.store.GetProductIDsBySeller(ctx, principal.ID)
		if err != nil {
			return nil, err
		}
		owned := make(map[int64]bool, len(productIDs))
		for _, id := range productIDs {
			owned[id] = true
		}
		filtered := returns[:0]
		for _, r := range returns {
			if owned[r.ProductID] {
				filtered = append(filtered, r)
			}
		}
		returns = filtered
	}

	var totalDistance float64
	for _, r := range returns {
		totalDistance += r.DistanceSaved
	}
	totalCO2 := totalDistance * geo.CO2PerKm

	return &CO2Report{
		TotalCO2Saved:        math.Round(totalCO2*10) / 10,
		TotalDistanceReduced: math.Round(totalDistance*10) / 10,
		TreesEquivalent:      int(math.Round(totalCO2 / treeAbsorptionKgPerYear)),
	}, nil
}

// HeatmapPoint is one warehouse on the demand heatmap
type HeatmapPoint struct {
	WarehouseID int64   `json:"warehouse_id"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DemandScore int     `json:"demand_score"`
	CurrentLoad int     `json:"current_load"`
	Capacity    int     `json:"capacity"`
}

// DemandHeatmap projects warehouses onto heatmap points
func (s *AnalyticsService) DemandHeatmap(ctx context.Context) ([]HeatmapPoint, error) {
	warehouses, err := s.store.GetWarehouses(ctx)
	if err != nil {
		return nil, err
	}

	points := make([]HeatmapPoint, 0, len(warehouses))
	for _, w := range warehouses {
		points = append(points, HeatmapPoint{
			WarehouseID: w.ID,
			Name:        w.Name,
			Lat:         w.Lat,
			Lng:         w.Lng,
			DemandScore: w.DemandScore,
			CurrentLoad: w.CurrentLoad,
			Capacity:    w.Capacity,
		})
	}
	return points, nil
}

// Overview is the admin dashboard headline counts
type Overview struct {
	TotalOrders       int64 `json:"total_orders"`
	TotalReturns      int64 `json:"total_returns"`
	TotalWarehouses   int   `json:"total_warehouses"`
	TotalInventory    int64 `json:"total_inventory"`
	LocalFulfillments int64 `json:"local_fulfillments"`
	PendingReturns    int64 `json:"pending_returns"`
	ProcessingReturns int64 `json:"processing_returns"`
}

var (
	pendingStatuses    = []string{models.ReturnStatusInitiated, models.ReturnStatusPickupScheduled, models.ReturnStatusPickedUp}
	processingStatuses = []string{models.ReturnStatusReceived, models.ReturnStatusInspecting, models.ReturnStatusRepackaging}
)

// DashboardOverview collects the headline counts
func (s *AnalyticsService) DashboardOverview(ctx context.Context) (*Overview, error) {
	totalOrders, err := s.store.CountOrders(ctx)
	if err != nil {
		return nil, err
	}
	totalReturns, err := s.store.CountReturns(ctx)
	if err != nil {
		return nil, err
	}
	warehouses, err := s.store.GetWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	invStats, err := s.store.GetInventoryStats(ctx)
	if err != nil {
		return nil, err
	}
	localStats, err := s.store.GetLocalFulfillmentStats(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.CountReturnsByStatuses(ctx, pendingStatuses)
	if err != nil {
		return nil, err
	}
	processing, err := s.store.CountReturnsByStatuses(ctx, processingStatuses)
	if err != nil {
		return nil, err
	}

	return &Overview{
		TotalOrders:       totalOrders,
		TotalReturns:      totalReturns,
		TotalWarehouses:   len(warehouses),
		TotalInventory:    invStats.Total,
		LocalFulfillments: localStats.LocalCount,
		PendingReturns:    pending,
		ProcessingReturns: processing,
	}, nil
}
