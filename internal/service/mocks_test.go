package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/fjod/checkout-engine/internal/lock"
	"github.com/fjod/checkout-engine/internal/repository"
	"github.com/google/uuid"
)

// MockCartStore implements CartStore with the repository's conditional
// update semantics so compensation paths can be asserted against real
// status transitions.
type MockCartStore struct {
	mu       sync.Mutex
	carts    map[uuid.UUID]*domain.Cart
	GetErr   error
	GetCalls int
}

func NewMockCartStore(carts ...*domain.Cart) *MockCartStore {
	m := &MockCartStore{carts: make(map[uuid.UUID]*domain.Cart)}
	for _, c := range carts {
		cp := *c
		m.carts[c.ID] = &cp
	}
	return m
}

func (m *MockCartStore) GetCart(_ context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	cp := *cart
	return &cp, nil
}

func (m *MockCartStore) UpdateCartStatus(_ context.Context, cartID uuid.UUID, from, to domain.CartStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok || cart.Status != from {
		return repository.ErrCartStatusConflict
	}
	cart.Status = to
	return nil
}

func (m *MockCartStore) Status(cartID uuid.UUID) domain.CartStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[cartID].Status
}

func (m *MockCartStore) SetStatus(cartID uuid.UUID, status domain.CartStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cartID].Status = status
}

// MockOrderStore implements OrderStore for testing
type MockOrderStore struct {
	mu        sync.Mutex
	CommitErr error
	// OnCommit runs inside a successful commit, mirroring the side effects
	// the real transaction carries (cart conversion, reservation consumption).
	OnCommit  func(order *domain.Order)
	Committed []*domain.Order
	byCart    map[uuid.UUID]*domain.Order
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{byCart: make(map[uuid.UUID]*domain.Order)}
}

func (m *MockOrderStore) CommitOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CommitErr != nil {
		return m.CommitErr
	}
	if _, exists := m.byCart[order.CartID]; exists {
		return domain.ErrCartAlreadyConverted
	}
	m.Committed = append(m.Committed, order)
	m.byCart[order.CartID] = order
	if m.OnCommit != nil {
		m.OnCommit(order)
	}
	return nil
}

func (m *MockOrderStore) GetOrderByCartID(_ context.Context, cartID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.byCart[cartID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// MemLocker implements Locker with real per-key mutual exclusion so
// serialization tests block the way advisory locks do.
type MemLocker struct {
	mu         sync.Mutex
	sems       map[string]chan struct{}
	AcquireErr error
	Acquired   int
	Released   int
}

func NewMemLocker() *MemLocker {
	return &MemLocker{sems: make(map[string]chan struct{})}
}

func (l *MemLocker) sem(storeID int64, cartID uuid.UUID) chan struct{} {
	key := fmt.Sprintf("%d:%s", storeID, cartID)
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.sems[key] = sem
	}
	return sem
}

func (l *MemLocker) Acquire(ctx context.Context, storeID int64, cartID uuid.UUID, timeout time.Duration) (LockHandle, error) {
	if l.AcquireErr != nil {
		return nil, l.AcquireErr
	}
	sem := l.sem(storeID, cartID)
	select {
	case sem <- struct{}{}:
	case <-time.After(timeout):
		return nil, lock.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	l.mu.Lock()
	l.Acquired++
	l.mu.Unlock()
	return &memLockHandle{locker: l, sem: sem}, nil
}

// Hold takes the lock for a cart out of band, simulating a competing
// session that never lets go.
func (l *MemLocker) Hold(storeID int64, cartID uuid.UUID) {
	l.sem(storeID, cartID) <- struct{}{}
}

type memLockHandle struct {
	locker *MemLocker
	sem    chan struct{}
	once   sync.Once
}

func (h *memLockHandle) Release(_ context.Context) error {
	h.once.Do(func() {
		<-h.sem
		h.locker.mu.Lock()
		h.locker.Released++
		h.locker.mu.Unlock()
	})
	return nil
}

// MockReserver implements Reserver for testing
type MockReserver struct {
	mu          sync.Mutex
	ReserveErr  error
	Reservation *domain.Reservation
	Released    []uuid.UUID
}

func (m *MockReserver) ValidateAndReserve(_ context.Context, cart *domain.Cart) (*domain.Reservation, error) {
	if m.ReserveErr != nil {
		return nil, m.ReserveErr
	}
	if m.Reservation != nil {
		return m.Reservation, nil
	}
	return &domain.Reservation{
		ID:      uuid.New(),
		CartID:  cart.ID,
		StoreID: cart.StoreID,
		Status:  domain.ReservationStatusActive,
	}, nil
}

func (m *MockReserver) Release(_ context.Context, reservation *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Released = append(m.Released, reservation.ID)
	return nil
}

func (m *MockReserver) ReleasedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Released)
}

// MockPricer implements Pricer for testing
type MockPricer struct {
	Snapshot *domain.PricingSnapshot
	Err      error
}

func (m *MockPricer) Calculate(_ context.Context, _ *domain.Cart, _ domain.DeliveryType, _, _ string) (*domain.PricingSnapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Snapshot, nil
}

// MockPayments implements pricing.PaymentMethods for testing
type MockPayments struct {
	PaymentType string
	Err         error
}

func (m *MockPayments) Resolve(_ context.Context, _ string, _ string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.PaymentType, nil
}
