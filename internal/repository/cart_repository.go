package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/checkout-engine/domain"
	"github.com/google/uuid"
)

// ErrCartStatusConflict is returned when a conditional status update matched
// no row because another attempt moved the cart first.
var ErrCartStatusConflict = errors.New("cart status changed concurrently")

func (r *Repository) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	query := `SELECT id, customer_id, store_id, status, expires_at, updated_at
	          FROM carts WHERE id = $1`

	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, query, cartID).Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.StoreID,
		&cart.Status,
		&cart.ExpiresAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart by id: %w", err)
	}

	linesQuery := `SELECT sku, quantity, client_unit_price
	               FROM cart_lines WHERE cart_id = $1 ORDER BY position`
	rows, err := r.db.QueryContext(ctx, linesQuery, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if e2 := rows.Scan(&line.SKU, &line.Quantity, &line.ClientUnitPrice); e2 != nil {
			return nil, fmt.Errorf("scan cart line: %w", e2)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if e2 := rows.Err(); e2 != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", e2)
	}

	return &cart, nil
}

// UpdateCartStatus moves a cart from one status to another. The update is
// conditioned on the current status so a racing attempt can never clobber a
// transition it did not own.
func (r *Repository) UpdateCartStatus(ctx context.Context, cartID uuid.UUID, from, to domain.CartStatus) error {
	query := `UPDATE carts SET status = $1, updated_at = NOW()
	          WHERE id = $2 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, to, cartID, from)
	if err != nil {
		return fmt.Errorf("update cart status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartStatusConflict
	}
	return nil
}
