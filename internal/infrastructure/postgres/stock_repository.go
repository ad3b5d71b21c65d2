package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación del puerto StockRepository sobre PostgreSQL.
type StockRepo struct {
	db Querier
}

// NewStockRepository construye el adaptador de stock.
func NewStockRepository(db Querier) *StockRepo {
	return &StockRepo{db: db}
}

type stockRow struct {
	ProductID  string    `db:"product_id"`
	LocationID string    `db:"location_id"`
	Quantity   int64     `db:"quantity"`
	UpdatedBy  string    `db:"updated_by"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (s stockRow) toEntity() *entity.StockRecord {
	return &entity.StockRecord{
		ProductID:  s.ProductID,
		LocationID: s.LocationID,
		Quantity:   s.Quantity,
		UpdatedBy:  s.UpdatedBy,
		UpdatedAt:  s.UpdatedAt,
	}
}

// Get obtiene el stock del par; si no existe devuelve cantidad 0 sin crear la fila.
func (r *StockRepo) Get(ctx context.Context, productID, locationID string) (*entity.StockRecord, error) {
	query := `
		SELECT product_id, location_id, quantity, updated_by, updated_at
		FROM stock_records WHERE product_id = $1 AND location_id = $2`
	var row stockRow
	if err := pgxscan.Get(ctx, r.db, &row, query, productID, locationID); err != nil {
		if pgxscan.NotFound(err) {
			return &entity.StockRecord{ProductID: productID, LocationID: locationID}, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return row.toEntity(), nil
}

// Adjust aplica delta en una sola sentencia. Los descuentos sin saldo negativo permitido
// solo actualizan si la cantidad resultante no queda bajo cero; si no hay fila afectada
// el stock es insuficiente (un registro inexistente cuenta como 0).
func (r *StockRepo) Adjust(ctx context.Context, productID, locationID string, delta int64, allowNegative bool, actor string) (int64, error) {
	var qty int64
	if delta < 0 && !allowNegative {
		query := `
			UPDATE stock_records
			SET quantity = quantity + $3, updated_by = $4, updated_at = NOW()
			WHERE product_id = $1 AND location_id = $2 AND quantity + $3 >= 0
			RETURNING quantity`
		err := r.db.QueryRow(ctx, query, productID, locationID, delta, actor).Scan(&qty)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, domain.ErrInsufficientStock
			}
			return 0, fmt.Errorf("adjust stock: %w", err)
		}
		return qty, nil
	}

	query := `
		INSERT INTO stock_records (product_id, location_id, quantity, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (product_id, location_id) DO UPDATE
		SET quantity = stock_records.quantity + EXCLUDED.quantity,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = EXCLUDED.updated_at
		RETURNING quantity`
	if err := r.db.QueryRow(ctx, query, productID, locationID, delta, actor).Scan(&qty); err != nil {
		return 0, fmt.Errorf("upsert stock: %w", err)
	}
	return qty, nil
}

// ListByLocation lista el stock de una ubicación con paginación.
func (r *StockRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockRecord, error) {
	query := `
		SELECT product_id, location_id, quantity, updated_by, updated_at
		FROM stock_records WHERE location_id = $1
		ORDER BY product_id LIMIT $2 OFFSET $3`
	var rows []stockRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, locationID, limit, offset); err != nil {
		return nil, fmt.Errorf("list stock by location: %w", err)
	}
	return toStockEntities(rows), nil
}

// ListByProduct lista el stock de un producto en todas las ubicaciones.
func (r *StockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockRecord, error) {
	query := `
		SELECT product_id, location_id, quantity, updated_by, updated_at
		FROM stock_records WHERE product_id = $1 ORDER BY location_id`
	var rows []stockRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, productID); err != nil {
		return nil, fmt.Errorf("list stock by product: %w", err)
	}
	return toStockEntities(rows), nil
}

func toStockEntities(rows []stockRow) []*entity.StockRecord {
	out := make([]*entity.StockRecord, 0, len(rows))
	for _, s := range rows {
		out = append(out, s.toEntity())
	}
	return out
}
