package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reloop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateReturn creates a new return record
func (s *Store) CreateReturn(ctx context.Context, ret *models.Return) error {
	query := `
		INSERT INTO returns (return_number, order_id, user_id, product_id, category, reason,
		                     status, approval_status, return_score, recommendation_status,
		                     original_delivery_lat, original_delivery_lng, original_delivery_address,
		                     pickup_lat, pickup_lng, pickup_address,
		                     assigned_warehouse, original_warehouse,
		                     seller_decision, inspection_result, resale_decision,
		                     distance_saved, distance_between_locations, co2_saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, ret, query,
		ret.ReturnNumber, ret.OrderID, ret.UserID, ret.ProductID, ret.Category, ret.Reason,
		ret.Status, ret.ApprovalStatus, ret.ReturnScore, ret.RecommendationStatus,
		ret.OriginalDeliveryLat, ret.OriginalDeliveryLng, ret.OriginalDeliveryAddress,
		ret.PickupLat, ret.PickupLng, ret.PickupAddress,
		ret.AssignedWarehouse, ret.OriginalWarehouse,
		ret.SellerDecision, ret.InspectionResult, ret.ResaleDecision,
		ret.DistanceSaved, ret.DistanceBetweenLocations, ret.CO2Saved)
}

// GetReturnByID retrieves a return by ID
func (s *Store) GetReturnByID(ctx context.Context, id int64) (*models.Return, error) {
	var ret models.Return
	err := s.db.GetContext(ctx, &ret, "SELECT * FROM returns WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetReturns retrieves all returns, newest first
func (s *Store) GetReturns(ctx context.Context) ([]models.Return, error) {
	var returns []models.Return
	err := s.db.SelectContext(ctx, &returns,
		"SELECT * FROM returns ORDER BY created_at DESC")
	return returns, err
}

// GetReturnsByUserID retrieves returns for a user
func (s *Store) GetReturnsByUserID(ctx context.Context, userID int64) ([]models.Return, error) {
	var returns []models.Return
	err := s.db.SelectContext(ctx, &returns,
		"SELECT * FROM returns WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return returns, err
}

// GetReturnsByProductIDs retrieves returns whose product is in the given set
func (s *Store) GetReturnsByProductIDs(ctx context.Context, productIDs []int64) ([]models.Return, error) {
	if len(productIDs) == 0 {
		return []models.Return{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM returns WHERE product_id IN (?) ORDER BY created_at DESC", productIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var returns []models.Return
	err = s.db.SelectContext(ctx, &returns, query, args...)
	return returns, err
}

// CountReturnsByUserSince counts a user's returns created after the cutoff.
// Feeds the frequency factor of the return score.
func (s *Store) CountReturnsByUserSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM returns WHERE user_id = $1 AND created_at > $2",
		userID, since)
	return count, err
}

// UpdateReturnApproval records the approval decision and resulting status
func (s *Store) UpdateReturnApproval(ctx context.Context, returnID int64, approvalStatus, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE returns SET approval_status = $1, status = $2, updated_at = NOW() WHERE id = $3",
		approvalStatus, status, returnID)
	return err
}

// UpdateReturnStatus updates the pipeline stage
func (s *Store) UpdateReturnStatus(ctx context.Context, returnID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE returns SET status = $1, updated_at = NOW() WHERE id = $2",
		status, returnID)
	return err
}

// ResetReturnInspection sets the inspection result back to pending
func (s *Store) ResetReturnInspection(ctx context.Context, returnID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE returns SET inspection_result = $1, updated_at = NOW() WHERE id = $2",
		models.ConditionPending, returnID)
	return err
}

// UpdateReturnInspection records the inspection grade and derived resale decision
func (s *Store) UpdateReturnInspection(ctx context.Context, returnID int64, condition, resaleDecision string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE returns SET inspection_result = $1, resale_decision = $2, updated_at = NOW() WHERE id = $3",
		condition, resaleDecision, returnID)
	return err
}

// UpdateReturnSellerDecision records the routing choice and resulting status
func (s *Store) UpdateReturnSellerDecision(ctx context.Context, returnID int64, decision, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE returns SET seller_decision = $1, status = $2, updated_at = NOW() WHERE id = $3",
		decision, status, returnID)
	return err
}

// UpdateReturnAssignment records the assigned warehouse and distance to it
func (s *Store) UpdateReturnAssignment(ctx context.Context, returnID int64, warehouseID *int64, distanceKm float64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE returns SET assigned_warehouse = $1, distance_saved = $2, updated_at = NOW() WHERE id = $3",
		warehouseID, distanceKm, returnID)
	return err
}

// AppendReturnEvent appends an immutable entry to a return timeline
func (s *Store) AppendReturnEvent(ctx context.Context, returnID int64, status, note string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO return_events (return_id, status, note) VALUES ($1, $2, $3)",
		returnID, status, note)
	if err != nil {
		return fmt.Errorf("failed to append return event: %w", err)
	}
	return nil
}

// GetReturnTimeline retrieves a return timeline in chronological order
func (s *Store) GetReturnTimeline(ctx context.Context, returnID int64) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT id, status, note, created_at FROM return_events WHERE return_id = $1 ORDER BY created_at, id",
		returnID)
	return entries, err
}

// CountReturns counts all returns
func (s *Store) CountReturns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM returns")
	return count, err
}

// CountReturnsByStatuses counts returns whose status is in the given set
func (s *Store) CountReturnsByStatuses(ctx context.Context, statuses []string) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("SELECT COUNT(*) FROM returns WHERE status IN (?)", statuses)
	if err != nil {
		return 0, err
	}
	query = s.db.Rebind(query)

	var count int64
	err = s.db.GetContext(ctx, &count, query, args...)
	return count, err
}

// GetReturnsByStatuses retrieves returns whose status is in the given set
func (s *Store) GetReturnsByStatuses(ctx context.Context, statuses []string) ([]models.Return, error) {
	if len(statuses) == 0 {
		return []models.Return{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM returns WHERE status IN (?) ORDER BY created_at DESC", statuses)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var returns []models.Return
	err = s.db.SelectContext(ctx, &returns, query, args...)
	return returns, err
}
