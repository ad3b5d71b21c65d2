package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
)

// Pruebas contra PostgreSQL real. Requieren LEDGER_TEST_DATABASE_URL; sin ella se omiten.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL no definido")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.EnsureSchema(ctx, pool))
	return pool
}

func TestIntegration_AdjustConcurrenteNuncaQuedaNegativo(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	productID := "it-" + uuid.NewString()
	_, err := postgres.UpsertProducts(ctx, pool, []entity.Product{{ID: productID, Code: productID, Name: "Prueba"}})
	require.NoError(t, err)
	loc := newLocation(uuid.NewString(), "it-"+uuid.NewString())
	require.NoError(t, postgres.NewLocationRepository(pool).Create(ctx, loc))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM stock_records WHERE product_id = $1`, productID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM locations WHERE id = $1`, loc.ID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM products WHERE id = $1`, productID)
	})

	repo := postgres.NewStockRepository(pool)
	_, err = repo.Adjust(ctx, productID, loc.ID, 10, false, "it")
	require.NoError(t, err)

	const workers = 25
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
		unexpected   []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Adjust(ctx, productID, loc.ID, -1, false, "it")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, 10, ok)
	assert.Equal(t, workers-10, rejected)
	rec, err := repo.Get(ctx, productID, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Quantity)
}

func TestIntegration_CreateIfAbsentConcurrenteCreaUnaSola(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	code := "it-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM locations WHERE code = $1`, code)
	})

	repo := postgres.NewLocationRepository(pool)
	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = make(map[string]struct{})
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, isNew, err := repo.CreateIfAbsent(ctx, newLocation(uuid.NewString(), code))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if isNew {
				created++
			}
			ids[stored.ID] = struct{}{}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
}
