package service

import (
	"context"
	"fmt"
	"time"

	"reloop-service/internal/geo"
	"reloop-service/internal/models"
	"reloop-service/internal/scoring"
	"reloop-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	returnLockTTL   = 10 * time.Second
	returnWindow    = 30 * 24 * time.Hour
	returnSequence  = "returns"
	returnNumberFmt = "RET-%05d"
)

// ReturnService drives the return lifecycle: creation with scoring and
// warehouse assignment, approval, inspection, pipeline advancement, and
// seller routing. Every transition appends an immutable timeline entry.
type ReturnService struct {
	store     Store
	locator   WarehouseLocator
	locker    Locker
	publisher Publisher
	logger    *zap.Logger
}

// NewReturnService creates a new return service
func NewReturnService(store Store, locator WarehouseLocator, locker Locker, publisher Publisher) *ReturnService {
	return &ReturnService{
		store:     store,
		locator:   locator,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateReturnRequest is a request to initiate a return
type CreateReturnRequest struct {
	OrderID       int64   `json:"order_id" binding:"required"`
	Reason        string  `json:"reason" binding:"required"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	PickupAddress string  `json:"pickup_address,omitempty"`
}

// Create initiates a return: category and pickup gates, warehouse
// assignment, eligibility scoring, CO2 accounting, and the order flip to
// return-initiated. Guard failures abort before anything is written.
func (s *ReturnService) Create(ctx context.Context, principal Principal, req *CreateReturnRequest) (*models.Return, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.Create")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("order %d: %w", req.OrderID, ErrNotFound)
	}
	if principal.Role == RoleUser && order.UserID != principal.ID {
		return nil, fmt.Errorf("order %d: %w", req.OrderID, ErrUnauthorized)
	}

	product, err := s.store.GetProductByID(ctx, order.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("product %d: %w", order.ProductID, ErrNotFound)
	}

	if !scoring.Returnable(product.Category) {
		util.ReturnsRejectedTotal.WithLabelValues("category").Inc()
		return nil, fmt.Errorf("category %q: %w", product.Category, ErrCategoryNotReturnable)
	}

	pickup := models.Coordinate{Lat: req.PickupLat, Lng: req.PickupLng}
	if !pickup.Valid() {
		util.ReturnsRejectedTotal.WithLabelValues("pickup_location").Inc()
		return nil, fmt.Errorf("pickup location: %w", ErrInvalidCoordinate)
	}

	// Distance between the original delivery point and the pickup point;
	// zero when the order carried no delivery coordinate.
	distanceBetween := 0.0
	if orig := order.DeliveryLocation(); orig.Valid() {
		d, err := geo.DistanceKm(orig, pickup)
		if err == nil {
			distanceBetween = geo.Round2(d)
		}
	}

	warehouse, distance, err := s.locator.FindNearest(ctx, pickup)
	if err != nil {
		return nil, fmt.Errorf("warehouse lookup failed: %w", err)
	}

	since := time.Now().Add(-returnWindow)
	pastReturns, err := s.store.CountReturnsByUserSince(ctx, principal.ID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count past returns: %w", err)
	}

	input := scoring.Input{Category: product.Category, PastReturns: pastReturns}
	if warehouse != nil {
		input.DistanceKm = &distance
	}
	result := scoring.Score(input)

	seq, err := s.store.NextSequence(ctx, returnSequence)
	if err != nil {
		return nil, err
	}

	ret := &models.Return{
		ReturnNumber:             fmt.Sprintf(returnNumberFmt, seq),
		OrderID:                  order.ID,
		UserID:                   principal.ID,
		ProductID:                order.ProductID,
		Category:                 product.Category,
		Reason:                   req.Reason,
		Status:                   models.ReturnStatusInitiated,
		ApprovalStatus:           models.ApprovalPending,
		ReturnScore:              result.Score,
		RecommendationStatus:     result.Recommendation,
		PickupLat:                pickup.Lat,
		PickupLng:                pickup.Lng,
		PickupAddress:            req.PickupAddress,
		OriginalWarehouse:        order.FulfilledFrom,
		SellerDecision:           models.SellerDecisionPending,
		InspectionResult:         models.ConditionPending,
		ResaleDecision:           models.ResalePending,
		DistanceSaved:            distance,
		DistanceBetweenLocations: distanceBetween,
		CO2Saved:                 geo.CO2Saved(distance),
	}
	if orig := order.DeliveryLocation(); orig.Valid() {
		ret.OriginalDeliveryLat = &order.DeliveryLat
		ret.OriginalDeliveryLng = &order.DeliveryLng
		ret.OriginalDeliveryAddress = order.DeliveryAddress
	}
	if warehouse != nil {
		ret.AssignedWarehouse = &warehouse.ID
	}

	if err := s.store.CreateReturn(ctx, ret); err != nil {
		return nil, fmt.Errorf("failed to create return: %w", err)
	}

	nodeName := "N/A"
	if warehouse != nil {
		nodeName = warehouse.Name
	}
	note := fmt.Sprintf("Score: %d, Nearest node: %s (%.2f km)", result.Score, nodeName, distance)
	if err := s.store.AppendReturnEvent(ctx, ret.ID, models.ReturnStatusInitiated, note); err != nil {
		return nil, err
	}

	if err := s.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusReturnInitiated); err != nil {
		return nil, fmt.Errorf("failed to flip order status: %w", err)
	}
	if err := s.store.AppendOrderEvent(ctx, order.ID, models.OrderStatusReturnInitiated,
		fmt.Sprintf("Return %s initiated", ret.ReturnNumber)); err != nil {
		return nil, err
	}

	util.ReturnsCreatedTotal.Inc()
	util.ReturnRecommendationsTotal.WithLabelValues(result.Recommendation).Inc()
	util.CO2SavedKg.Add(ret.CO2Saved)

	s.logger.Info("Return created",
		zap.String("return_number", ret.ReturnNumber),
		zap.Int("score", result.Score),
		zap.String("recommendation", result.Recommendation),
		zap.Float64("distance_km", distance))

	s.publishReturnCreated(ctx, ret)
	return ret, nil
}

// Approve records the seller/admin approval decision. An ineligible category
// forces rejection regardless of the requested decision.
func (s *ReturnService) Approve(ctx context.Context, principal Principal, returnID int64, decision, note string) (*models.Return, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.Approve")
	defer span.End()

	unlock, err := s.lockReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ret, err := s.loadOwnedReturn(ctx, principal, returnID)
	if err != nil {
		return nil, err
	}

	// Defensive re-check: an ineligible category is rejected outright, as a
	// recorded override rather than an error.
	if !scoring.Returnable(ret.Category) {
		if err := s.store.UpdateReturnApproval(ctx, ret.ID, models.ApprovalRejected, models.ReturnStatusRejected); err != nil {
			return nil, err
		}
		if err := s.store.AppendReturnEvent(ctx, ret.ID, models.ReturnStatusRejected,
			"Rejected: category not eligible for return"); err != nil {
			return nil, err
		}
		ret.ApprovalStatus = models.ApprovalRejected
		ret.Status = models.ReturnStatusRejected
		util.ReturnTransitionsTotal.WithLabelValues(models.ReturnStatusRejected).Inc()
		s.publishStatusChanged(ctx, ret, "category override")
		return ret, nil
	}

	if decision != models.ApprovalApproved && decision != models.ApprovalRejected {
		return nil, fmt.Errorf("approval decision %q: %w", decision, ErrInvalidDecision)
	}

	status := models.ReturnStatusRejected
	if decision == models.ApprovalApproved {
		status = models.ReturnStatusPickupScheduled
	}

	if err := s.store.UpdateReturnApproval(ctx, ret.ID, decision, status); err != nil {
		return nil, err
	}
	if err := s.store.AppendReturnEvent(ctx, ret.ID, "approval-"+decision, note); err != nil {
		return nil, err
	}
	ret.ApprovalStatus = decision
	ret.Status = status

	// Late assignment: an approved return without a warehouse gets one now.
	if decision == models.ApprovalApproved && ret.AssignedWarehouse == nil && ret.PickupLocation().Valid() {
		warehouse, distance, err := s.locator.FindNearest(ctx, ret.PickupLocation())
		if err != nil {
			return nil, fmt.Errorf("warehouse lookup failed: %w", err)
		}
		var warehouseID *int64
		if warehouse != nil {
			warehouseID = &warehouse.ID
		}
		if err := s.store.UpdateReturnAssignment(ctx, ret.ID, warehouseID, distance); err != nil {
			return nil, err
		}
		ret.AssignedWarehouse = warehouseID
		ret.DistanceSaved = distance
	}

	util.ReturnTransitionsTotal.WithLabelValues(status).Inc()
	s.publishStatusChanged(ctx, ret, note)
	return ret, nil
}

// AssignWarehouse re-runs the locator against the pickup location
func (s *ReturnService) AssignWarehouse(ctx context.Context, returnID int64) (*models.Return, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.AssignWarehouse")
	defer span.End()

	ret, err := s.getReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !ret.PickupLocation().Valid() {
		return nil, fmt.Errorf("pickup location: %w", ErrInvalidCoordinate)
	}

	warehouse, distance, err := s.locator.FindNearest(ctx, ret.PickupLocation())
	if err != nil {
		return nil, fmt.Errorf("warehouse lookup failed: %w", err)
	}

	var warehouseID *int64
	nodeName := "N/A"
	if warehouse != nil {
		warehouseID = &warehouse.ID
		nodeName = warehouse.Name
	}

	if err := s.store.UpdateReturnAssignment(ctx, ret.ID, warehouseID, distance); err != nil {
		return nil, err
	}
	if err := s.store.AppendReturnEvent(ctx, ret.ID, "warehouse-assigned",
		fmt.Sprintf("Assigned %s (%.2f km)", nodeName, distance)); err != nil {
		return nil, err
	}

	ret.AssignedWarehouse = warehouseID
	ret.DistanceSaved = distance
	return ret, nil
}

// validReturnStatuses is the pipeline enum accepted by UpdateStatus.
var validReturnStatuses = map[string]bool{
	models.ReturnStatusInitiated:       true,
	models.ReturnStatusPickupScheduled: true,
	models.ReturnStatusPickedUp:        true,
	models.ReturnStatusReceived:        true,
	models.ReturnStatusInspecting:      true,
	models.ReturnStatusRepackaging:     true,
	models.ReturnStatusRelabeled:       true,
	models.ReturnStatusInLocalPool:     true,
	models.ReturnStatusSentBack:        true,
	models.ReturnStatusTransferred:     true,
	models.ReturnStatusRejected:        true,
}

// UpdateStatus is the operational free-form pipeline setter. Entering
// inspecting resets the inspection result; entering in-local-pool
// materializes the pool inventory line exactly once.
func (s *ReturnService) UpdateStatus(ctx context.Context, returnID int64, status, note string) (*models.Return, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.UpdateStatus")
	defer span.End()

	if !validReturnStatuses[status] {
		return nil, fmt.Errorf("return status %q: %w", status, ErrInvalidStatus)
	}

	unlock, err := s.lockReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ret, err := s.getReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	// Pooling needs a destination; fail before anything is written.
	if status == models.ReturnStatusInLocalPool && ret.AssignedWarehouse == nil {
		return nil, fmt.Errorf("return %s has no assigned warehouse: %w", ret.ReturnNumber, ErrInvalidStatus)
	}

	if err := s.store.UpdateReturnStatus(ctx, ret.ID, status); err != nil {
		return nil, err
	}
	if err := s.store.AppendReturnEvent(ctx, ret.ID, status, note); err != nil {
		return nil, err
	}
	ret.Status = status

	if status == models.ReturnStatusInspecting {
		if err := s.store.ResetReturnInspection(ctx, ret.ID); err != nil {
			return nil, err
		}
		ret.InspectionResult = models.ConditionPending
	}

	if status == models.ReturnStatusInLocalPool {
		if err := s.materializePoolItem(ctx, ret); err != nil {
			return nil, err
		}
	}

	util.ReturnTransitionsTotal.WithLabelValues(status).Inc()
	s.publishStatusChanged(ctx, ret, note)
	return ret, nil
}

// resaleFor maps an inspection grade to its resale decision.
func resaleFor(condition string) string {
	switch condition {
	case models.ConditionLikeNew:
		return models.ResaleLocal
	case models.ConditionGood:
		return models.ResaleDiscounted
	case models.ConditionDamaged:
		return models.ResaleReturnToSeller
	case models.ConditionReject:
		return models.ResaleNonResellable
	default:
		return models.ResalePending
	}
}

// Inspect records the condition grade and its derived resale decision. The
// pipeline stage is untouched.
func (s *ReturnService) Inspect(ctx context.Context, returnID int64, condition, note string) (*models.Return, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.Inspect")
	defer span.End()

	switch condition {
	case models.ConditionLikeNew, models.ConditionGood, models.ConditionDamaged, models.ConditionReject:
	default:
		return nil, fmt.Errorf("condition %q: %w", condition, ErrInvalidCondition)
	}

	ret, err := s.getReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	resale := resaleFor(condition)
	if err := s.store.UpdateReturnInspection(ctx, ret.ID, condition, resale); err != nil {
		return nil, err
	}

	entry := fmt.Sprintf("Condition: %s. Decision: %s.", condition, resale)
	if note != "" {
		entry += " " + note
	}
	if err := s.store.AppendReturnEvent(ctx, ret.ID, "inspection-completed", entry); err != nil {
		return nil, err
	}

	ret.InspectionResult = condition
	ret.ResaleDecision = resale
	return ret, nil
}

// sellerDecisionStatus maps a routing decision to the resulting pipeline stage.
var sellerDecisionStatus = map[string]string{
	models.SellerDecisionKeepLocal:          models.ReturnStatusInLocalPool,
	models.SellerDecisionReturnOriginal:     models.ReturnStatusSentBack,
	models.SellerDecisionTransferHighDemand: models.ReturnStatusTransferred,
}

// SellerDecision routes an approved return to its destination. keep-local
// shares the pool materialization with UpdateStatus; the conditional pooled
// flag keeps the side effect single-shot across both paths.
func (s *ReturnService) SellerDecision(ctx context.Context, principal Principal, returnID int64, decision, note string) (*models.Return, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.SellerDecision")
	defer span.End()

	unlock, err := s.lockReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ret, err := s.loadOwnedReturn(ctx, principal, returnID)
	if err != nil {
		return nil, err
	}

	if ret.ApprovalStatus != models.ApprovalApproved {
		return nil, fmt.Errorf("return %s: %w", ret.ReturnNumber, ErrApprovalRequired)
	}

	status, ok := sellerDecisionStatus[decision]
	if !ok {
		return nil, fmt.Errorf("seller decision %q: %w", decision, ErrInvalidDecision)
	}

	// keep-local needs a destination; fail before anything is written.
	if status == models.ReturnStatusInLocalPool && ret.AssignedWarehouse == nil {
		return nil, fmt.Errorf("return %s has no assigned warehouse: %w", ret.ReturnNumber, ErrInvalidDecision)
	}

	if err := s.store.UpdateReturnSellerDecision(ctx, ret.ID, decision, status); err != nil {
		return nil, err
	}
	if err := s.store.AppendReturnEvent(ctx, ret.ID, "seller-decision: "+decision, note); err != nil {
		return nil, err
	}
	ret.SellerDecision = decision
	ret.Status = status

	if status == models.ReturnStatusInLocalPool {
		if err := s.materializePoolItem(ctx, ret); err != nil {
			return nil, err
		}
	}

	util.ReturnTransitionsTotal.WithLabelValues(status).Inc()
	s.publishStatusChanged(ctx, ret, note)
	return ret, nil
}

// Get retrieves a return by ID
func (s *ReturnService) Get(ctx context.Context, returnID int64) (*models.Return, error) {
	return s.getReturn(ctx, returnID)
}

// List retrieves the returns visible to the principal: own returns for
// users, returns against own products for sellers, everything for admins.
func (s *ReturnService) List(ctx context.Context, principal Principal) ([]models.Return, error) {
	switch principal.Role {
	case RoleUser:
		return s.store.GetReturnsByUserID(ctx, principal.ID)
	case RoleSeller:
		productIDs, err := s.store.GetProductIDsBySeller(ctx, principal.ID)
		if err != nil {
			return nil, err
		}
		return s.store.GetReturnsByProductIDs(ctx, productIDs)
	default:
		return s.store.GetReturns(ctx)
	}
}

// Timeline retrieves a return timeline in chronological order
func (s *ReturnService) Timeline(ctx context.Context, returnID int64) ([]models.TimelineEntry, error) {
	if _, err := s.getReturn(ctx, returnID); err != nil {
		return nil, err
	}
	return s.store.GetReturnTimeline(ctx, returnID)
}

// materializePoolItem creates the single local-pool inventory line for a
// return entering in-local-pool. A nil item means the return was already
// pooled and nothing happened.
func (s *ReturnService) materializePoolItem(ctx context.Context, ret *models.Return) error {
	item, err := s.store.CreatePooledItemTx(ctx, ret)
	if err != nil {
		return fmt.Errorf("failed to materialize pool inventory: %w", err)
	}
	if item == nil {
		return nil
	}

	util.InventoryPooledTotal.Inc()
	s.logger.Info("Return added to local pool",
		zap.String("return_number", ret.ReturnNumber),
		zap.Int64("warehouse_id", item.WarehouseID),
		zap.Int64("inventory_id", item.ID))

	if s.publisher != nil {
		event := &models.InventoryPooledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeInventoryPooled,
				Timestamp: time.Now(),
			},
			ReturnID:    ret.ID,
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			InventoryID: item.ID,
		}
		if err := s.publisher.PublishInventoryPooled(ctx, event); err != nil {
			s.logger.Error("Failed to publish InventoryPooled event", zap.Error(err))
		}
	}
	return nil
}

func (s *ReturnService) getReturn(ctx context.Context, returnID int64) (*models.Return, error) {
	ret, err := s.store.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, fmt.Errorf("failed to load return: %w", err)
	}
	if ret == nil {
		return nil, fmt.Errorf("return %d: %w", returnID, ErrNotFound)
	}
	return ret, nil
}

// loadOwnedReturn loads a return and verifies a seller principal owns the
// underlying product. Admins pass through.
func (s *ReturnService) loadOwnedReturn(ctx context.Context, principal Principal, returnID int64) (*models.Return, error) {
	ret, err := s.getReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if principal.Role == RoleSeller {
		product, err := s.store.GetProductByID(ctx, ret.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
		if product == nil || product.SellerID != principal.ID {
			return nil, fmt.Errorf("return %s: %w", ret.ReturnNumber, ErrUnauthorized)
		}
	}
	return ret, nil
}

// lockReturn takes the per-return mutex so concurrent transitions cannot
// interleave their read-modify-write sequences.
func (s *ReturnService) lockReturn(ctx context.Context, returnID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("return:%d", returnID)
	token, err := s.locker.AcquireLock(ctx, key, returnLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock return: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("return %d: %w", returnID, ErrConflict)
	}

	return func() {
		if err := s.locker.ReleaseLock(ctx, key, token); err != nil {
			s.logger.Warn("Failed to release return lock", zap.Int64("return_id", returnID), zap.Error(err))
		}
	}, nil
}

func (s *ReturnService) publishReturnCreated(ctx context.Context, ret *models.Return) {
	if s.publisher == nil {
		return
	}

	event := &models.ReturnCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnCreated,
			Timestamp: time.Now(),
		},
		ReturnID:          ret.ID,
		ReturnNumber:      ret.ReturnNumber,
		OrderID:           ret.OrderID,
		UserID:            ret.UserID,
		ProductID:         ret.ProductID,
		ReturnScore:       ret.ReturnScore,
		Recommendation:    ret.RecommendationStatus,
		AssignedWarehouse: ret.AssignedWarehouse,
		DistanceSaved:     ret.DistanceSaved,
		CO2Saved:          ret.CO2Saved,
	}
	if err := s.publisher.PublishReturnCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReturnCreated event", zap.Error(err))
	}
}

func (s *ReturnService) publishStatusChanged(ctx context.Context, ret *models.Return, note string) {
	if s.publisher == nil {
		return
	}

	event := &models.ReturnStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnStatusChanged,
			Timestamp: time.Now(),
		},
		ReturnID:          ret.ID,
		ReturnNumber:      ret.ReturnNumber,
		Status:            ret.Status,
		AssignedWarehouse: ret.AssignedWarehouse,
		Note:              note,
	}
	if err := s.publisher.PublishReturnStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReturnStatusChanged event", zap.Error(err))
	}
}
