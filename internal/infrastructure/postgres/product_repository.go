package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo lectura del catálogo de productos (tabla products, administrada fuera del ledger).
type ProductRepo struct {
	db Querier
}

// NewProductRepository construye el adaptador de productos.
func NewProductRepository(db Querier) *ProductRepo {
	return &ProductRepo{db: db}
}

// GetByID obtiene un producto no eliminado; nil si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT id, code, name FROM products WHERE id = $1 AND deleted_at IS NULL`
	var p entity.Product
	if err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Code, &p.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetByIDs obtiene varios productos indexados por ID (incluye eliminados, para reportes históricos).
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, code, name FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list products by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name); err != nil {
			return nil, err
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}

// UpsertProducts carga el catálogo (entornos locales / seed). Devuelve cuántos productos se escribieron.
func UpsertProducts(ctx context.Context, db Querier, products []entity.Product) (int, error) {
	query := `
		INSERT INTO products (id, code, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, deleted_at = NULL`
	n := 0
	for _, p := range products {
		if _, err := db.Exec(ctx, query, p.ID, p.Code, p.Name); err != nil {
			return n, fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		n++
	}
	return n, nil
}
