package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia para ubicaciones (DIP).
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	// CreateIfAbsent devuelve la ubicación activa con el mismo código o inserta la recibida.
	// created indica si se insertó una fila nueva.
	CreateIfAbsent(ctx context.Context, location *entity.Location) (stored *entity.Location, created bool, err error)
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	GetActiveByCode(ctx context.Context, code string) (*entity.Location, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Location, error)
	Update(ctx context.Context, location *entity.Location) error
	List(ctx context.Context, includeInactive bool, limit, offset int) ([]*entity.Location, error)
	Retire(ctx context.Context, id string, at time.Time) error
}
