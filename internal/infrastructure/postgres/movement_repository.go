package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// MovementRepo implementación del puerto MovementRepository (cabeceras y líneas).
type MovementRepo struct {
	db Querier
}

// NewMovementRepository construye el adaptador de movimientos.
func NewMovementRepository(db Querier) *MovementRepo {
	return &MovementRepo{db: db}
}

type headerRow struct {
	ID             string    `db:"id"`
	Type           string    `db:"type"`
	FromLocationID *string   `db:"from_location_id"`
	ToLocationID   *string   `db:"to_location_id"`
	RelatedOrderID *string   `db:"related_order_id"`
	Notes          string    `db:"notes"`
	CreatedBy      string    `db:"created_by"`
	CreatedAt      time.Time `db:"created_at"`
}

type lineRow struct {
	ID        string `db:"id"`
	HeaderID  string `db:"header_id"`
	ProductID string `db:"product_id"`
	Quantity  int64  `db:"quantity"`
}

func (h headerRow) toEntity() *entity.MovementHeader {
	out := &entity.MovementHeader{
		ID:             h.ID,
		Type:           h.Type,
		RelatedOrderID: h.RelatedOrderID,
		Notes:          h.Notes,
		CreatedBy:      h.CreatedBy,
		CreatedAt:      h.CreatedAt,
	}
	if h.FromLocationID != nil {
		out.FromLocationID = *h.FromLocationID
	}
	if h.ToLocationID != nil {
		out.ToLocationID = *h.ToLocationID
	}
	return out
}

// CreateHeader inserta la cabecera (sin líneas).
func (r *MovementRepo) CreateHeader(ctx context.Context, h *entity.MovementHeader) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO movement_headers (id, type, from_location_id, to_location_id, related_order_id, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		h.ID, h.Type, nullIfEmpty(h.FromLocationID), nullIfEmpty(h.ToLocationID),
		h.RelatedOrderID, h.Notes, h.CreatedBy, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create movement header: %w", err)
	}
	return nil
}

// DeleteHeader elimina la cabecera; las líneas caen por ON DELETE CASCADE.
func (r *MovementRepo) DeleteHeader(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM movement_headers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete movement header: %w", err)
	}
	return nil
}

// CreateLine inserta una línea de la cabecera.
func (r *MovementRepo) CreateLine(ctx context.Context, l *entity.MovementLine) error {
	query := `INSERT INTO movement_lines (id, header_id, product_id, quantity) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.Exec(ctx, query, l.ID, l.HeaderID, l.ProductID, l.Quantity); err != nil {
		return fmt.Errorf("create movement line: %w", err)
	}
	return nil
}

// DeleteLine elimina una línea (compensación de entrada fallida).
func (r *MovementRepo) DeleteLine(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM movement_lines WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete movement line: %w", err)
	}
	return nil
}

// GetByID devuelve la cabecera con sus líneas; nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.MovementHeader, error) {
	query, args, err := headerColumns().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var row headerRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement header: %w", err)
	}
	headers := []*entity.MovementHeader{row.toEntity()}
	if err := r.attachLines(ctx, headers); err != nil {
		return nil, err
	}
	return headers[0], nil
}

// Find aplica los filtros de almacén y carga las líneas en una segunda consulta.
func (r *MovementRepo) Find(ctx context.Context, q repository.MovementQuery) ([]*entity.MovementHeader, error) {
	query, args, err := BuildFindQuery(q)
	if err != nil {
		return nil, err
	}
	var rows []headerRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find movement headers: %w", err)
	}
	headers := make([]*entity.MovementHeader, 0, len(rows))
	for _, row := range rows {
		headers = append(headers, row.toEntity())
	}
	if err := r.attachLines(ctx, headers); err != nil {
		return nil, err
	}
	return headers, nil
}

func headerColumns() sq.SelectBuilder {
	return psql.Select(
		"id", "type", "from_location_id", "to_location_id",
		"related_order_id", "notes", "created_by", "created_at",
	).From("movement_headers")
}

// BuildFindQuery arma el SELECT de cabeceras para los filtros dados.
func BuildFindQuery(q repository.MovementQuery) (string, []any, error) {
	b := headerColumns()
	if q.Type != "" {
		b = b.Where(sq.Eq{"type": q.Type})
	}
	if q.FromLocationID != "" {
		b = b.Where(sq.Eq{"from_location_id": q.FromLocationID})
	}
	if q.ToLocationID != "" {
		b = b.Where(sq.Eq{"to_location_id": q.ToLocationID})
	}
	if q.DateFrom != nil {
		b = b.Where(sq.GtOrEq{"created_at": *q.DateFrom})
	}
	if q.DateTo != nil {
		b = b.Where(sq.LtOrEq{"created_at": *q.DateTo})
	}
	b = b.OrderBy("created_at DESC", "id")
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b.ToSql()
}

func (r *MovementRepo) attachLines(ctx context.Context, headers []*entity.MovementHeader) error {
	if len(headers) == 0 {
		return nil
	}
	ids := make([]string, 0, len(headers))
	byID := make(map[string]*entity.MovementHeader, len(headers))
	for _, h := range headers {
		ids = append(ids, h.ID)
		byID[h.ID] = h
	}
	query, args, err := psql.
		Select("id", "header_id", "product_id", "quantity").
		From("movement_lines").
		Where(sq.Eq{"header_id": ids}).
		OrderBy("header_id", "seq").
		ToSql()
	if err != nil {
		return err
	}
	var lines []lineRow
	if err := pgxscan.Select(ctx, r.db, &lines, query, args...); err != nil {
		return fmt.Errorf("list movement lines: %w", err)
	}
	for _, l := range lines {
		h := byID[l.HeaderID]
		h.Lines = append(h.Lines, entity.MovementLine{
			ID:        l.ID,
			HeaderID:  l.HeaderID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}
	return nil
}
