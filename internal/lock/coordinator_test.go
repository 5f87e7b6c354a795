package lock

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%d user=testuser password=testpass dbname=testdb sslmode=disable", host, port.Int())
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return db, cleanup
}

func TestKey_StableAndStoreScoped(t *testing.T) {
	cartID := uuid.New()

	assert.Equal(t, Key(1, cartID), Key(1, cartID))
	assert.NotEqual(t, Key(1, cartID), Key(2, cartID))
	assert.NotEqual(t, Key(1, cartID), Key(1, uuid.New()))
}

func TestAcquireRelease(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	coordinator := NewCoordinator(db, 10*time.Millisecond, zerolog.Nop())

	handle, err := coordinator.Acquire(ctx, 1, uuid.New(), time.Second)
	require.NoError(t, err)
	require.NoError(t, handle.Release(ctx))
}

func TestAcquire_ContendedTimesOut(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	coordinator := NewCoordinator(db, 10*time.Millisecond, zerolog.Nop())
	cartID := uuid.New()

	holder, err := coordinator.Acquire(ctx, 1, cartID, time.Second)
	require.NoError(t, err)
	defer holder.Release(ctx)

	started := time.Now()
	_, err = coordinator.Acquire(ctx, 1, cartID, 200*time.Millisecond)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(started), 200*time.Millisecond)
}

func TestAcquire_FreeAfterRelease(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	coordinator := NewCoordinator(db, 10*time.Millisecond, zerolog.Nop())
	cartID := uuid.New()

	first, err := coordinator.Acquire(ctx, 1, cartID, time.Second)
	require.NoError(t, err)
	require.NoError(t, first.Release(ctx))

	second, err := coordinator.Acquire(ctx, 1, cartID, time.Second)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestRelease_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	coordinator := NewCoordinator(db, 10*time.Millisecond, zerolog.Nop())

	handle, err := coordinator.Acquire(ctx, 1, uuid.New(), time.Second)
	require.NoError(t, err)

	require.NoError(t, handle.Release(ctx))
	require.NoError(t, handle.Release(ctx))
}

func TestAcquire_DifferentCartsDoNotContend(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	coordinator := NewCoordinator(db, 10*time.Millisecond, zerolog.Nop())

	first, err := coordinator.Acquire(ctx, 1, uuid.New(), time.Second)
	require.NoError(t, err)
	defer first.Release(ctx)

	second, err := coordinator.Acquire(ctx, 1, uuid.New(), time.Second)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestAcquire_MutualExclusionUnderContention(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	coordinator := NewCoordinator(db, 5*time.Millisecond, zerolog.Nop())
	cartID := uuid.New()

	const workers = 5
	var holders int32
	var maxHolders int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handle, err := coordinator.Acquire(ctx, 1, cartID, 5*time.Second)
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			mu.Lock()
			holders++
			if holders > maxHolders {
				maxHolders = holders
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			if err := handle.Release(ctx); err != nil {
				t.Errorf("release failed: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxHolders, "only one worker may hold the cart lock at a time")
}
