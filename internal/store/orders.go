package store

import (
	"context"
	"database/sql"
	"fmt"

	"reloop-service/internal/models"
)

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (order_number, user_id, product_id, quantity, total_price, status,
		                    fulfilled_from, fulfilled_from_local, delivery_lat, delivery_lng,
		                    delivery_address, estimated_delivery, cost_saved, time_saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.OrderNumber, order.UserID, order.ProductID, order.Quantity,
		order.TotalPrice, order.Status, order.FulfilledFrom, order.FulfilledFromLocal,
		order.DeliveryLat, order.DeliveryLng, order.DeliveryAddress,
		order.EstimatedDelivery, order.CostSaved, order.TimeSaved)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrders retrieves all orders, newest first
func (s *Store) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// MarkOrderDelivered updates status and stamps the actual delivery time
func (s *Store) MarkOrderDelivered(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, actual_delivery = NOW(), updated_at = NOW() WHERE id = $2",
		models.OrderStatusDelivered, orderID)
	return err
}

// AppendOrderEvent appends an immutable entry to an order timeline
func (s *Store) AppendOrderEvent(ctx context.Context, orderID int64, status, note string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO order_events (order_id, status, note) VALUES ($1, $2, $3)",
		orderID, status, note)
	if err != nil {
		return fmt.Errorf("failed to append order event: %w", err)
	}
	return nil
}

// GetOrderTimeline retrieves an order timeline in chronological order
func (s *Store) GetOrderTimeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT id, status, note, created_at FROM order_events WHERE order_id = $1 ORDER BY created_at, id",
		orderID)
	return entries, err
}

// CountOrders counts all orders
func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM orders")
	return count, err
}

// LocalFulfillmentStats aggregates savings over locally fulfilled orders
type LocalFulfillmentStats struct {
	TotalCostSaved int64   `db:"total_cost_saved"`
	TotalTimeSaved float64 `db:"total_time_saved"`
	LocalCount     int64   `db:"local_count"`
}

// GetLocalFulfillmentStats sums savings across locally fulfilled orders
func (s *Store) GetLocalFulfillmentStats(ctx context.Context) (*LocalFulfillmentStats, error) {
	var stats LocalFulfillmentStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COALESCE(SUM(cost_saved), 0) AS total_cost_saved,
		       COALESCE(SUM(time_saved), 0) AS total_time_saved,
		       COUNT(*) AS local_count
		FROM orders WHERE fulfilled_from_local`)
	return &stats, err
}
