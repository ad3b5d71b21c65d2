package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// MovementQuery filtros aplicados en el almacén al leer cabeceras.
type MovementQuery struct {
	Type           string
	FromLocationID string
	ToLocationID   string
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
}

// MovementRepository define el puerto de persistencia para cabeceras y líneas de movimiento.
type MovementRepository interface {
	CreateHeader(ctx context.Context, header *entity.MovementHeader) error
	// DeleteHeader elimina la cabecera y sus líneas (compensación de lote fallido).
	DeleteHeader(ctx context.Context, id string) error
	CreateLine(ctx context.Context, line *entity.MovementLine) error
	DeleteLine(ctx context.Context, id string) error
	// GetByID devuelve la cabecera con sus líneas, o nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.MovementHeader, error)
	// Find devuelve cabeceras con sus líneas, ordenadas por created_at descendente.
	Find(ctx context.Context, q MovementQuery) ([]*entity.MovementHeader, error)
}
