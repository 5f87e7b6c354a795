package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/checkout-engine/domain"
)

var (
	ErrSKUNotFound = errors.New("sku not found in inventory")

	// ErrVersionConflict means the version-conditioned update matched no row:
	// another writer got between our read and our write.
	ErrVersionConflict = errors.New("inventory version conflict")
)

func (r *Repository) GetInventoryRecord(ctx context.Context, storeID int64, sku string) (*domain.InventoryRecord, error) {
	query := `SELECT store_id, sku, quantity_on_hand, quantity_available, quantity_reserved, version
	          FROM inventory WHERE store_id = $1 AND sku = $2`

	var rec domain.InventoryRecord
	err := r.db.QueryRowContext(ctx, query, storeID, sku).Scan(
		&rec.StoreID,
		&rec.SKU,
		&rec.OnHand,
		&rec.Available,
		&rec.Reserved,
		&rec.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSKUNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory record: %w", err)
	}
	return &rec, nil
}

// ReserveStock converts available quantity into reserved quantity for one
// SKU, conditioned on the version read at validation time. on_hand is left
// untouched, preserving on_hand == available + reserved.
func (r *Repository) ReserveStock(ctx context.Context, storeID int64, sku string, quantity int32, version int64) error {
	query := `UPDATE inventory
	          SET quantity_available = quantity_available - $1,
	              quantity_reserved  = quantity_reserved + $1,
	              version            = version + 1
	          WHERE store_id = $2 AND sku = $3 AND version = $4
	            AND quantity_available >= $1`

	return r.casUpdate(ctx, query, quantity, storeID, sku, version)
}

// ReturnStock reverses a prior ReserveStock for one SKU, again under version
// protection.
func (r *Repository) ReturnStock(ctx context.Context, storeID int64, sku string, quantity int32, version int64) error {
	query := `UPDATE inventory
	          SET quantity_available = quantity_available + $1,
	              quantity_reserved  = quantity_reserved - $1,
	              version            = version + 1
	          WHERE store_id = $2 AND sku = $3 AND version = $4
	            AND quantity_reserved >= $1`

	return r.casUpdate(ctx, query, quantity, storeID, sku, version)
}

func (r *Repository) casUpdate(ctx context.Context, query string, quantity int32, storeID int64, sku string, version int64) error {
	res, err := r.db.ExecContext(ctx, query, quantity, storeID, sku, version)
	if err != nil {
		return fmt.Errorf("inventory cas update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inventory cas rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}
