package lock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrTimeout is returned when the advisory lock could not be acquired within
// the configured timeout. Safe for the caller to retry after backoff.
var ErrTimeout = errors.New("timed out waiting for cart lock")

// Coordinator hands out per-cart mutual exclusion backed by Postgres
// session-scoped advisory locks. Each acquired lock pins one connection from
// the pool for its whole lifetime; if the holder dies, the session dies with
// it and Postgres releases the lock.
type Coordinator struct {
	db           *sql.DB
	pollInterval time.Duration
	logger       zerolog.Logger
}

func NewCoordinator(db *sql.DB, pollInterval time.Duration, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		db:           db,
		pollInterval: pollInterval,
		logger:       logger.With().Str("component", "lock").Logger(),
	}
}

// Handle represents one held cart lock. Release is idempotent.
type Handle struct {
	key  int64
	conn *sql.Conn

	mu       sync.Mutex
	released bool

	coordinator *Coordinator
}

// Key derives the advisory lock key for a cart. Stable across processes so
// every worker contends on the same key for the same cart.
func Key(storeID int64, cartID uuid.UUID) int64 {
	return int64(xxhash.Sum64String(fmt.Sprintf("%d:%s", storeID, cartID)))
}

// Acquire obtains the advisory lock for the given cart, polling until it
// succeeds or timeout elapses. The returned handle is bound to a dedicated
// database session; the caller must Release it on every exit path.
func (c *Coordinator) Acquire(ctx context.Context, storeID int64, cartID uuid.UUID, timeout time.Duration) (*Handle, error) {
	key := Key(storeID, cartID)

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkout lock session: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		var locked bool
		if e2 := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&locked); e2 != nil {
			discard(conn)
			return nil, fmt.Errorf("try advisory lock: %w", e2)
		}
		if locked {
			c.logger.Debug().Int64("key", key).Stringer("cart_id", cartID).Msg("cart lock acquired")
			return &Handle{key: key, conn: conn, coordinator: c}, nil
		}

		if time.Now().After(deadline) {
			if e2 := conn.Close(); e2 != nil {
				c.logger.Warn().Err(e2).Msg("failed to return lock session")
			}
			return nil, ErrTimeout
		}

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			if e2 := conn.Close(); e2 != nil {
				c.logger.Warn().Err(e2).Msg("failed to return lock session")
			}
			return nil, ctx.Err()
		}
	}
}

// Release unlocks the advisory lock and returns its session to the pool.
// Calling it again on the same handle is a no-op.
func (h *Handle) Release(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		h.coordinator.logger.Debug().Int64("key", h.key).Msg("cart lock already released")
		return nil
	}
	h.released = true

	var unlocked bool
	err := h.conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, h.key).Scan(&unlocked)
	if err != nil {
		// The unlock did not go through on this session; drop the session so
		// Postgres releases the lock with it.
		discard(h.conn)
		return fmt.Errorf("advisory unlock: %w", err)
	}
	if !unlocked {
		h.coordinator.logger.Warn().Int64("key", h.key).Msg("advisory unlock reported lock not held")
	}

	if e2 := h.conn.Close(); e2 != nil {
		return fmt.Errorf("return lock session: %w", e2)
	}
	h.coordinator.logger.Debug().Int64("key", h.key).Msg("cart lock released")
	return nil
}

// discard forces the pool to throw the underlying session away instead of
// reusing it, which also releases any advisory locks it still holds.
func discard(conn *sql.Conn) {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = conn.Close()
}
