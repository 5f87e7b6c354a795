package inventory

import (
	"context"
	"sync"

	"github.com/fjod/checkout-engine/domain"
	"github.com/fjod/checkout-engine/internal/repository"
	"github.com/google/uuid"
)

type stockKey struct {
	storeID int64
	sku     string
}

// MemStore implements Store in memory with the same version-conditioned
// update semantics as the Postgres repository, so concurrency tests exercise
// real CAS behavior.
type MemStore struct {
	mu           sync.Mutex
	stocks       map[stockKey]*domain.InventoryRecord
	reservations map[uuid.UUID]*domain.Reservation

	CreateReservationErr error
}

func NewMemStore() *MemStore {
	return &MemStore{
		stocks:       make(map[stockKey]*domain.InventoryRecord),
		reservations: make(map[uuid.UUID]*domain.Reservation),
	}
}

func (m *MemStore) SetStock(storeID int64, sku string, available, reserved int32, version int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stocks[stockKey{storeID, sku}] = &domain.InventoryRecord{
		StoreID:   storeID,
		SKU:       sku,
		OnHand:    available + reserved,
		Available: available,
		Reserved:  reserved,
		Version:   version,
	}
}

func (m *MemStore) Record(storeID int64, sku string) domain.InventoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.stocks[stockKey{storeID, sku}]
}

func (m *MemStore) Reservation(id uuid.UUID) *domain.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := *m.reservations[id]
	return &res
}

func (m *MemStore) GetInventoryRecord(_ context.Context, storeID int64, sku string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.stocks[stockKey{storeID, sku}]
	if !ok {
		return nil, repository.ErrSKUNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemStore) ReserveStock(_ context.Context, storeID int64, sku string, quantity int32, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.stocks[stockKey{storeID, sku}]
	if !ok || rec.Version != version || rec.Available < quantity {
		return repository.ErrVersionConflict
	}
	rec.Available -= quantity
	rec.Reserved += quantity
	rec.Version++
	return nil
}

func (m *MemStore) ReturnStock(_ context.Context, storeID int64, sku string, quantity int32, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.stocks[stockKey{storeID, sku}]
	if !ok || rec.Version != version || rec.Reserved < quantity {
		return repository.ErrVersionConflict
	}
	rec.Available += quantity
	rec.Reserved -= quantity
	rec.Version++
	return nil
}

func (m *MemStore) CreateReservation(_ context.Context, res *domain.Reservation) error {
	if m.CreateReservationErr != nil {
		return m.CreateReservationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *res
	m.reservations[res.ID] = &cp
	return nil
}

func (m *MemStore) GetReservation(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *MemStore) UpdateReservationStatus(_ context.Context, id uuid.UUID, from, to domain.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.Status != from {
		return repository.ErrReservationStatusConflict
	}
	res.Status = to
	return nil
}

func (m *MemStore) GetExpiredActiveReservations(_ context.Context, limit int) ([]*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reservation
	for _, res := range m.reservations {
		if res.Status == domain.ReservationStatusActive && res.IsExpired() {
			cp := *res
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// invariantHolds reports whether on_hand == available + reserved for every
// record.
func (m *MemStore) invariantHolds() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.stocks {
		if rec.OnHand != rec.Available+rec.Reserved {
			return false
		}
	}
	return true
}
