package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
)

// ──────────────────────────────────────────────────────────────────────────────
// Adjust: descuento condicional
// ──────────────────────────────────────────────────────────────────────────────

func TestStockAdjust_DescuentoEsUnUpdateCondicional(t *testing.T) {
	db := &fakeQuerier{}
	db.push(quantityRow(2))
	repo := postgres.NewStockRepository(db)

	qty, err := repo.Adjust(context.Background(), "prod-1", "loc-1", -3, false, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), qty)

	require.Len(t, db.calls, 1)
	sql := normalizedSQL(db.calls[0].sql)
	assert.Equal(t,
		"UPDATE stock_records SET quantity = quantity + $3, updated_by = $4, updated_at = NOW() "+
			"WHERE product_id = $1 AND location_id = $2 AND quantity + $3 >= 0 RETURNING quantity",
		sql)
	assert.NotContains(t, sql, "INSERT")
	assert.Equal(t, []any{"prod-1", "loc-1", int64(-3), "user-1"}, db.calls[0].args)
}

func TestStockAdjust_SinFilaAfectadaEsStockInsuficiente(t *testing.T) {
	db := &fakeQuerier{}
	db.push(errRow(pgx.ErrNoRows))
	repo := postgres.NewStockRepository(db)

	_, err := repo.Adjust(context.Background(), "prod-1", "loc-1", -1, false, "user-1")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestStockAdjust_ErrorDeBaseNoEsStockInsuficiente(t *testing.T) {
	db := &fakeQuerier{}
	db.push(errRow(errors.New("conexión cerrada")))
	repo := postgres.NewStockRepository(db)

	_, err := repo.Adjust(context.Background(), "prod-1", "loc-1", -1, false, "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "conexión cerrada")
}

// ──────────────────────────────────────────────────────────────────────────────
// Adjust: upsert
// ──────────────────────────────────────────────────────────────────────────────

func TestStockAdjust_IngresoEsUpsertAcumulativo(t *testing.T) {
	db := &fakeQuerier{}
	db.push(quantityRow(7))
	repo := postgres.NewStockRepository(db)

	qty, err := repo.Adjust(context.Background(), "prod-1", "loc-1", 5, false, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), qty)

	sql := normalizedSQL(db.calls[0].sql)
	assert.Contains(t, sql, "INSERT INTO stock_records (product_id, location_id, quantity, updated_by, updated_at) VALUES ($1, $2, $3, $4, NOW())")
	assert.Contains(t, sql, "ON CONFLICT (product_id, location_id) DO UPDATE SET quantity = stock_records.quantity + EXCLUDED.quantity")
	assert.Contains(t, sql, "RETURNING quantity")
	assert.NotContains(t, sql, ">= 0")
	assert.Equal(t, []any{"prod-1", "loc-1", int64(5), "user-1"}, db.calls[0].args)
}

func TestStockAdjust_SaldoNegativoPermitidoUsaUpsert(t *testing.T) {
	db := &fakeQuerier{}
	db.push(quantityRow(-2))
	repo := postgres.NewStockRepository(db)

	qty, err := repo.Adjust(context.Background(), "prod-1", "loc-1", -2, true, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), qty)
	assert.Contains(t, normalizedSQL(db.calls[0].sql), "ON CONFLICT (product_id, location_id) DO UPDATE")
}
