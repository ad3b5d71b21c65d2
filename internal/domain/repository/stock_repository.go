package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockRepository define el puerto para consultar/ajustar stock por producto+ubicación.
type StockRepository interface {
	// Get devuelve el registro; si no existe devuelve uno con cantidad 0.
	Get(ctx context.Context, productID, locationID string) (*entity.StockRecord, error)
	// Adjust aplica delta en una única escritura y devuelve la cantidad resultante.
	// Si allowNegative es false y el resultado sería negativo, no escribe y devuelve domain.ErrInsufficientStock.
	Adjust(ctx context.Context, productID, locationID string, delta int64, allowNegative bool, actor string) (int64, error)
	ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockRecord, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockRecord, error)
}
