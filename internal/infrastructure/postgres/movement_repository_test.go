package postgres_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
)

func TestBuildFindQuery_SinFiltros(t *testing.T) {
	query, args, err := postgres.BuildFindQuery(repository.MovementQuery{})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, type, from_location_id, to_location_id, related_order_id, notes, created_by, created_at "+
			"FROM movement_headers ORDER BY created_at DESC, id",
		query)
	assert.Empty(t, args)
}

func TestBuildFindQuery_TodosLosFiltros(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	query, args, err := postgres.BuildFindQuery(repository.MovementQuery{
		Type:           "sale",
		FromLocationID: "loc-1",
		ToLocationID:   "loc-2",
		DateFrom:       &from,
		DateTo:         &to,
		Limit:          500,
	})
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE type = $1 AND from_location_id = $2 AND to_location_id = $3 AND created_at >= $4 AND created_at <= $5")
	assert.Contains(t, query, "ORDER BY created_at DESC, id LIMIT 500")
	assert.Equal(t, []any{"sale", "loc-1", "loc-2", from, to}, args)
}
