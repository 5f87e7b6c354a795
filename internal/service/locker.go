package service

import (
	"context"
	"time"

	"github.com/fjod/checkout-engine/internal/lock"
	"github.com/google/uuid"
)

// LockHandle is one held cart lock. Release must be idempotent.
type LockHandle interface {
	Release(ctx context.Context) error
}

// Locker acquires per-cart mutual exclusion.
type Locker interface {
	Acquire(ctx context.Context, storeID int64, cartID uuid.UUID, timeout time.Duration) (LockHandle, error)
}

// advisoryLocker adapts the advisory-lock coordinator to the Locker
// interface the orchestrator consumes.
type advisoryLocker struct {
	coordinator *lock.Coordinator
}

func NewAdvisoryLocker(coordinator *lock.Coordinator) Locker {
	return &advisoryLocker{coordinator: coordinator}
}

func (l *advisoryLocker) Acquire(ctx context.Context, storeID int64, cartID uuid.UUID, timeout time.Duration) (LockHandle, error) {
	handle, err := l.coordinator.Acquire(ctx, storeID, cartID, timeout)
	if err != nil {
		return nil, err
	}
	return handle, nil
}
