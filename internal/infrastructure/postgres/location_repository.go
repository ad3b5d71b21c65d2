package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.LocationRepository = (*LocationRepo)(nil)

const locationColumns = `id, code, name, description, active, created_at, updated_at, deleted_at`

// LocationRepo implementación del puerto LocationRepository sobre PostgreSQL.
type LocationRepo struct {
	db Querier
}

// NewLocationRepository construye el adaptador de persistencia para ubicaciones.
func NewLocationRepository(db Querier) *LocationRepo {
	return &LocationRepo{db: db}
}

// Create persiste una nueva ubicación.
func (r *LocationRepo) Create(ctx context.Context, location *entity.Location) error {
	query := `
		INSERT INTO locations (id, code, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		location.ID, location.Code, location.Name, location.Description, location.Active,
		location.CreatedAt, location.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// CreateIfAbsent inserta la ubicación salvo que ya exista una activa con el mismo código.
// El índice único parcial sobre code (WHERE active) resuelve la carrera entre instancias.
func (r *LocationRepo) CreateIfAbsent(ctx context.Context, location *entity.Location) (*entity.Location, bool, error) {
	query := `
		INSERT INTO locations (id, code, name, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		ON CONFLICT (code) WHERE active DO NOTHING
		RETURNING ` + locationColumns
	stored, err := scanLocation(r.db.QueryRow(ctx, query,
		location.ID, location.Code, location.Name, location.Description,
		location.CreatedAt, location.UpdatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert location: %w", err)
	}
	existing, err := r.GetActiveByCode(ctx, location.Code)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("ubicación %s: conflicto sin fila activa", location.Code)
	}
	return existing, false, nil
}

// GetByID obtiene una ubicación por ID (activa o retirada).
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	l, err := scanLocation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

// GetActiveByCode obtiene la ubicación activa con el código dado.
func (r *LocationRepo) GetActiveByCode(ctx context.Context, code string) (*entity.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE code = $1 AND active`
	l, err := scanLocation(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location by code: %w", err)
	}
	return l, nil
}

// GetByIDs obtiene varias ubicaciones indexadas por ID.
func (r *LocationRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Location, error) {
	out := make(map[string]*entity.Location, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list locations by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out[l.ID] = l
	}
	return out, rows.Err()
}

// Update actualiza nombre y descripción.
func (r *LocationRepo) Update(ctx context.Context, location *entity.Location) error {
	query := `UPDATE locations SET name = $2, description = $3, updated_at = $4 WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, location.ID, location.Name, location.Description, location.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista ubicaciones ordenadas por código.
func (r *LocationRepo) List(ctx context.Context, includeInactive bool, limit, offset int) ([]*entity.Location, error) {
	query := `
		SELECT ` + locationColumns + ` FROM locations
		WHERE ($1 OR active) ORDER BY code, created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, includeInactive, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// Retire marca la ubicación como inactiva (soft delete).
func (r *LocationRepo) Retire(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE locations SET active = FALSE, deleted_at = $2, updated_at = $2 WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("retire location: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanLocation(row pgx.Row) (*entity.Location, error) {
	var l entity.Location
	if err := row.Scan(
		&l.ID, &l.Code, &l.Name, &l.Description, &l.Active, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}
