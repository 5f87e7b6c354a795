package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/google/uuid"
)

const eventTypeOrderCreated = "order.created"

// OutboxEvent is one pending publication. Events are written in the same
// transaction as the state change they describe and shipped asynchronously.
type OutboxEvent struct {
	ID        uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// OrderCreatedEvent is the payload delivery, payment and notification
// systems consume off the order-created topic.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CartID      uuid.UUID `json:"cart_id"`
	StoreID     int64     `json:"store_id"`
	GrandTotal  string    `json:"grand_total"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

func orderCreatedPayload(order *domain.Order) ([]byte, error) {
	payload, err := json.Marshal(OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CartID:      order.CartID,
		StoreID:     order.StoreID,
		GrandTotal:  order.Snapshot.GrandTotal.String(),
		Currency:    order.Snapshot.Currency,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order created event: %w", err)
	}
	return payload, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	query := `SELECT id, event_type, payload, created_at
	          FROM outbox_events
	          WHERE processed_at IS NULL
	          ORDER BY created_at ASC
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if e2 := rows.Scan(&ev.ID, &ev.EventType, &ev.Payload, &ev.CreatedAt); e2 != nil {
			return nil, fmt.Errorf("scan outbox event: %w", e2)
		}
		events = append(events, ev)
	}
	if e2 := rows.Err(); e2 != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", e2)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark event as processed: %w", err)
	}
	return nil
}
