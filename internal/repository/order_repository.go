package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/checkout-engine/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CommitOrder persists the order and finalizes its cart and reservation in a
// single transaction, together with the order-created outbox event. This is
// the only multi-row transaction in the engine; everything before it
// compensates step by step instead.
func (r *Repository) CommitOrder(ctx context.Context, order *domain.Order) error {
	linesJSON, err := json.Marshal(order.Snapshot.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order lines: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `INSERT INTO orders (id, order_number, cart_id, reservation_id, store_id, customer_id,
	                   payment_method_id, payment_type, delivery_type, lines, subtotal, discount_amount,
	                   tax_amount, delivery_fee, grand_total, currency, promo_code, promo_rejected,
	                   status, created_at)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())`

	_, insertErr := tx.ExecContext(ctx, orderQuery,
		order.ID,
		order.OrderNumber,
		order.CartID,
		order.ReservationID,
		order.StoreID,
		order.CustomerID,
		order.PaymentMethodID,
		order.PaymentType,
		order.DeliveryType,
		linesJSON,
		order.Snapshot.Subtotal,
		order.Snapshot.DiscountAmount,
		order.Snapshot.TaxAmount,
		order.Snapshot.DeliveryFee,
		order.Snapshot.GrandTotal,
		order.Snapshot.Currency,
		order.Snapshot.PromoCode,
		order.Snapshot.PromoRejected,
		order.Status)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrCartAlreadyConverted
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	cartQuery := `UPDATE carts SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	res, err := tx.ExecContext(ctx, cartQuery, domain.CartStatusConverted, order.CartID, domain.CartStatusLocked)
	if err != nil {
		return fmt.Errorf("convert cart: %w", err)
	}
	if affected, e2 := res.RowsAffected(); e2 != nil {
		return fmt.Errorf("convert cart rows affected: %w", e2)
	} else if affected == 0 {
		return ErrCartStatusConflict
	}

	resQuery := `UPDATE reservations SET status = $1 WHERE id = $2 AND status = $3`
	res, err = tx.ExecContext(ctx, resQuery, domain.ReservationStatusConsumed, order.ReservationID, domain.ReservationStatusActive)
	if err != nil {
		return fmt.Errorf("consume reservation: %w", err)
	}
	if affected, e2 := res.RowsAffected(); e2 != nil {
		return fmt.Errorf("consume reservation rows affected: %w", e2)
	} else if affected == 0 {
		return ErrReservationStatusConflict
	}

	payload, err := orderCreatedPayload(order)
	if err != nil {
		return err
	}
	outboxQuery := `INSERT INTO outbox_events (id, event_type, payload, created_at)
	                VALUES ($1, $2, $3, NOW())`
	if _, e2 := tx.ExecContext(ctx, outboxQuery, uuid.New(), eventTypeOrderCreated, payload); e2 != nil {
		return fmt.Errorf("insert outbox event: %w", e2)
	}

	if e2 := tx.Commit(); e2 != nil {
		return fmt.Errorf("commit order tx: %w", e2)
	}
	return nil
}

func (r *Repository) GetOrderByCartID(ctx context.Context, cartID uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, order_number, cart_id, reservation_id, store_id, customer_id,
	              payment_method_id, payment_type, delivery_type, lines, subtotal, discount_amount,
	              tax_amount, delivery_fee, grand_total, currency, promo_code, promo_rejected,
	              status, created_at
	          FROM orders WHERE cart_id = $1`

	var order domain.Order
	var linesJSON []byte
	err := r.db.QueryRowContext(ctx, query, cartID).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CartID,
		&order.ReservationID,
		&order.StoreID,
		&order.CustomerID,
		&order.PaymentMethodID,
		&order.PaymentType,
		&order.DeliveryType,
		&linesJSON,
		&order.Snapshot.Subtotal,
		&order.Snapshot.DiscountAmount,
		&order.Snapshot.TaxAmount,
		&order.Snapshot.DeliveryFee,
		&order.Snapshot.GrandTotal,
		&order.Snapshot.Currency,
		&order.Snapshot.PromoCode,
		&order.Snapshot.PromoRejected,
		&order.Status,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by cart id: %w", err)
	}
	if e2 := json.Unmarshal(linesJSON, &order.Snapshot.Lines); e2 != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", e2)
	}
	return &order, nil
}
