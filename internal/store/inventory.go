package store

import (
	"context"
	"database/sql"
	"fmt"

	"reloop-service/internal/models"
)

// FindLocalPoolItem finds a fully processed local-pool line for the product at
// the given warehouse with at least the requested quantity.
func (s *Store) FindLocalPoolItem(ctx context.Context, productID, warehouseID int64, quantity int) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, `
		SELECT * FROM inventory
		WHERE product_id = $1 AND warehouse_id = $2
		  AND is_local_pool AND label_generated
		  AND inspection_status = $3 AND repackaging_status = $4
		  AND quantity >= $5
		ORDER BY id
		LIMIT 1`,
		productID, warehouseID,
		models.InspectionPassed, models.RepackagingDone, quantity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindAnyStock finds any inventory line holding enough of the product,
// regardless of warehouse or pool membership.
func (s *Store) FindAnyStock(ctx context.Context, productID int64, quantity int) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, `
		SELECT * FROM inventory
		WHERE product_id = $1 AND quantity >= $2
		ORDER BY id
		LIMIT 1`,
		productID, quantity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ConsumeInventoryTx decrements an inventory line by quantity inside a
// transaction, deleting the line when it reaches zero and keeping the owning
// warehouse load in step. The row is locked for the duration, so concurrent
// orders against the same line cannot lose updates.
func (s *Store) ConsumeInventoryTx(ctx context.Context, itemID int64, quantity int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var item models.InventoryItem
	err = tx.GetContext(ctx, &item,
		"SELECT * FROM inventory WHERE id = $1 FOR UPDATE", itemID)
	if err != nil {
		return fmt.Errorf("failed to lock inventory line: %w", err)
	}

	if item.Quantity < quantity {
		return fmt.Errorf("insufficient stock: available=%d, requested=%d", item.Quantity, quantity)
	}

	remaining := item.Quantity - quantity
	if remaining <= 0 {
		_, err = tx.ExecContext(ctx, "DELETE FROM inventory WHERE id = $1", itemID)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE inventory SET quantity = $1, updated_at = NOW() WHERE id = $2",
			remaining, itemID)
	}
	if err != nil {
		return fmt.Errorf("failed to consume inventory: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE warehouses SET current_load = GREATEST(0, current_load - $1), updated_at = NOW() WHERE id = $2",
		quantity, item.WarehouseID)
	if err != nil {
		return fmt.Errorf("failed to adjust warehouse load: %w", err)
	}

	return tx.Commit()
}

// CreatePooledItemTx materializes the single local-pool inventory line for a
// return reaching in-local-pool. The pooled flag is flipped with a conditional
// update inside the same transaction, so the side effect fires exactly once no
// matter how many transitions race to the terminal state. Returns nil when the
// return was already pooled.
func (s *Store) CreatePooledItemTx(ctx context.Context, ret *models.Return) (*models.InventoryItem, error) {
	if ret.AssignedWarehouse == nil {
		return nil, fmt.Errorf("return %d has no assigned warehouse", ret.ID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE returns SET pooled = TRUE, updated_at = NOW() WHERE id = $1 AND NOT pooled",
		ret.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark return pooled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	item := &models.InventoryItem{
		ProductID:         ret.ProductID,
		WarehouseID:       *ret.AssignedWarehouse,
		Quantity:          1,
		Condition:         models.ItemConditionLikeNew,
		InspectionStatus:  models.InspectionPassed,
		RepackagingStatus: models.RepackagingDone,
		LabelGenerated:    true,
		IsLocalPool:       true,
		Source:            models.SourceReturn,
		ReturnRef:         &ret.ID,
	}

	err = tx.GetContext(ctx, item, `
		INSERT INTO inventory (product_id, warehouse_id, quantity, condition,
		                       inspection_status, repackaging_status, label_generated,
		                       is_local_pool, source, return_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		item.ProductID, item.WarehouseID, item.Quantity, item.Condition,
		item.InspectionStatus, item.RepackagingStatus, item.LabelGenerated,
		item.IsLocalPool, item.Source, item.ReturnRef)
	if err != nil {
		return nil, fmt.Errorf("failed to create pooled inventory: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE warehouses SET current_load = current_load + $1, updated_at = NOW() WHERE id = $2",
		item.Quantity, item.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust warehouse load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateInventoryItem inserts a plain stock line and bumps the warehouse load
func (s *Store) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, item, `
		INSERT INTO inventory (product_id, warehouse_id, quantity, condition,
		                       inspection_status, repackaging_status, label_generated,
		                       is_local_pool, source, return_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		item.ProductID, item.WarehouseID, item.Quantity, item.Condition,
		item.InspectionStatus, item.RepackagingStatus, item.LabelGenerated,
		item.IsLocalPool, item.Source, item.ReturnRef)
	if err != nil {
		return fmt.Errorf("failed to create inventory: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE warehouses SET current_load = current_load + $1, updated_at = NOW() WHERE id = $2",
		item.Quantity, item.WarehouseID)
	if err != nil {
		return fmt.Errorf("failed to adjust warehouse load: %w", err)
	}

	return tx.Commit()
}

// GetInventoryItemByID retrieves an inventory line by ID
func (s *Store) GetInventoryItemByID(ctx context.Context, id int64) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM inventory WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// InventoryFilter narrows inventory listings
type InventoryFilter struct {
	WarehouseID      *int64
	IsLocalPool      *bool
	InspectionStatus string
}

// ListInventory retrieves inventory lines matching the filter, newest first
func (s *Store) ListInventory(ctx context.Context, filter InventoryFilter) ([]models.InventoryItem, error) {
	query := "SELECT * FROM inventory WHERE 1=1"
	args := []interface{}{}

	if filter.WarehouseID != nil {
		args = append(args, *filter.WarehouseID)
		query += fmt.Sprintf(" AND warehouse_id = $%d", len(args))
	}
	if filter.IsLocalPool != nil {
		args = append(args, *filter.IsLocalPool)
		query += fmt.Sprintf(" AND is_local_pool = $%d", len(args))
	}
	if filter.InspectionStatus != "" {
		args = append(args, filter.InspectionStatus)
		query += fmt.Sprintf(" AND inspection_status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	var items []models.InventoryItem
	err := s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// FindLocalAvailable lists qualified local-pool lines for a product
func (s *Store) FindLocalAvailable(ctx context.Context, productID int64) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT * FROM inventory
		WHERE product_id = $1 AND is_local_pool AND label_generated
		  AND inspection_status = $2 AND repackaging_status = $3
		  AND quantity > 0
		ORDER BY id`,
		productID, models.InspectionPassed, models.RepackagingDone)
	return items, err
}

// UpdateInspectionStatus updates an inventory line inspection status.
// A passed inspection promotes repackaging from not-needed to pending.
func (s *Store) UpdateInspectionStatus(ctx context.Context, itemID int64, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET inspection_status = $1,
		    repackaging_status = CASE
		        WHEN $1 = $2 AND repackaging_status = $3 THEN $4
		        ELSE repackaging_status
		    END,
		    updated_at = NOW()
		WHERE id = $5`,
		status, models.InspectionPassed, models.RepackagingNotNeeded,
		models.RepackagingPending, itemID)
	return err
}

// UpdateRepackagingStatus updates an inventory line repackaging status.
// Completing repackaging also marks the label generated.
func (s *Store) UpdateRepackagingStatus(ctx context.Context, itemID int64, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET repackaging_status = $1,
		    label_generated = label_generated OR $1 = $2,
		    updated_at = NOW()
		WHERE id = $3`,
		status, models.RepackagingDone, itemID)
	return err
}

// InventoryStats aggregates queue depths across all inventory
type InventoryStats struct {
	Total             int64 `db:"total"`
	PendingInspection int64 `db:"pending_inspection"`
	RepackagingQueue  int64 `db:"repackaging_queue"`
	LocalPoolItems    int64 `db:"local_pool_items"`
}

// GetInventoryStats computes inspection/repackaging queue depths in one pass
func (s *Store) GetInventoryStats(ctx context.Context) (*InventoryStats, error) {
	var stats InventoryStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE inspection_status = $1) AS pending_inspection,
		       COUNT(*) FILTER (WHERE repackaging_status IN ($2, $3)) AS repackaging_queue,
		       COUNT(*) FILTER (WHERE is_local_pool) AS local_pool_items
		FROM inventory`,
		models.InspectionPending, models.RepackagingPending, models.RepackagingInProgress)
	return &stats, err
}
