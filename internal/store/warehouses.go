package store

import (
	"context"
	"database/sql"

	"reloop-service/internal/models"
)

// GetWarehouses retrieves all warehouses
func (s *Store) GetWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	err := s.db.SelectContext(ctx, &warehouses, "SELECT * FROM warehouses ORDER BY id")
	return warehouses, err
}

// GetWarehouseByID retrieves a warehouse by ID
func (s *Store) GetWarehouseByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := s.db.GetContext(ctx, &warehouse, "SELECT * FROM warehouses WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &warehouse, nil
}

// CreateWarehouse creates a new warehouse
func (s *Store) CreateWarehouse(ctx context.Context, wh *models.Warehouse) error {
	query := `
		INSERT INTO warehouses (name, code, lat, lng, address, capacity, current_load, status, manager, demand_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, wh, query,
		wh.Name, wh.Code, wh.Lat, wh.Lng, wh.Address,
		wh.Capacity, wh.CurrentLoad, wh.Status, wh.Manager, wh.DemandScore)
}

// UpdateWarehouse updates mutable warehouse fields
func (s *Store) UpdateWarehouse(ctx context.Context, wh *models.Warehouse) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE warehouses
		SET name = $1, lat = $2, lng = $3, address = $4, capacity = $5,
		    status = $6, manager = $7, demand_score = $8, updated_at = NOW()
		WHERE id = $9`,
		wh.Name, wh.Lat, wh.Lng, wh.Address, wh.Capacity,
		wh.Status, wh.Manager, wh.DemandScore, wh.ID)
	return err
}

// AdjustDemandScore shifts a warehouse demand score by delta, clamped to [0, 100]
func (s *Store) AdjustDemandScore(ctx context.Context, warehouseID int64, delta int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE warehouses
		SET demand_score = LEAST(100, GREATEST(0, demand_score + $1)), updated_at = NOW()
		WHERE id = $2`,
		delta, warehouseID)
	return err
}
