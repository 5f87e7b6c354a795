package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/checkout-engine/domain"
	"github.com/google/uuid"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationStatusConflict means a conditional status update matched
	// no row; the reservation is already in some other terminal state.
	ErrReservationStatusConflict = errors.New("reservation status changed concurrently")
)

func (r *Repository) CreateReservation(ctx context.Context, res *domain.Reservation) error {
	itemsJSON, err := json.Marshal(res.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation items: %w", err)
	}

	query := `INSERT INTO reservations (id, cart_id, store_id, items, status, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, insertErr := r.db.ExecContext(ctx, query,
		res.ID,
		res.CartID,
		res.StoreID,
		itemsJSON,
		res.Status,
		res.CreatedAt,
		res.ExpiresAt)
	if insertErr != nil {
		return fmt.Errorf("insert reservation: %w", insertErr)
	}
	return nil
}

func (r *Repository) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	query := `SELECT id, cart_id, store_id, items, status, created_at, expires_at
	          FROM reservations WHERE id = $1`

	return r.scanReservation(r.db.QueryRowContext(ctx, query, id))
}

// UpdateReservationStatus moves a reservation between statuses, conditioned
// on the expected current status. Double releases land on the conflict error
// and are treated as no-ops by the caller.
func (r *Repository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) error {
	query := `UPDATE reservations SET status = $1 WHERE id = $2 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrReservationStatusConflict
	}
	return nil
}

// GetExpiredActiveReservations returns reservations still ACTIVE past their
// expiry, oldest first, for the background sweep.
func (r *Repository) GetExpiredActiveReservations(ctx context.Context, limit int) ([]*domain.Reservation, error) {
	query := `SELECT id, cart_id, store_id, items, status, created_at, expires_at
	          FROM reservations
	          WHERE status = $1 AND expires_at < NOW()
	          ORDER BY expires_at ASC
	          LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, domain.ReservationStatusActive, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired reservations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Reservation
	for rows.Next() {
		res, e2 := r.scanReservation(rows)
		if e2 != nil {
			return nil, e2
		}
		out = append(out, res)
	}
	if e2 := rows.Err(); e2 != nil {
		return nil, fmt.Errorf("iterate expired reservations: %w", e2)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanReservation(row rowScanner) (*domain.Reservation, error) {
	var res domain.Reservation
	var itemsJSON []byte
	err := row.Scan(
		&res.ID,
		&res.CartID,
		&res.StoreID,
		&itemsJSON,
		&res.Status,
		&res.CreatedAt,
		&res.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reservation: %w", err)
	}
	if e2 := json.Unmarshal(itemsJSON, &res.Items); e2 != nil {
		return nil, fmt.Errorf("unmarshal reservation items: %w", e2)
	}
	return &res, nil
}
