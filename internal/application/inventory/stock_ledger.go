package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// StockLedger primitiva única de ajuste de stock por (producto, ubicación).
type StockLedger struct {
	stockRepo     repository.StockRepository
	allowNegative bool
}

// NewStockLedger construye el ledger. allowNegative permite saldos negativos (backorder).
func NewStockLedger(stockRepo repository.StockRepository, allowNegative bool) *StockLedger {
	return &StockLedger{stockRepo: stockRepo, allowNegative: allowNegative}
}

// AdjustStock aplica delta con signo y devuelve la cantidad resultante.
// Un registro inexistente cuenta como 0. Hace exactamente una escritura.
func (l *StockLedger) AdjustStock(ctx context.Context, productID, locationID string, delta int64, actor string) (int64, error) {
	if productID == "" || locationID == "" || delta == 0 {
		return 0, domain.ErrInvalidInput
	}
	qty, err := l.stockRepo.Adjust(ctx, productID, locationID, delta, l.allowNegative, actor)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return qty, err
		}
		return 0, fmt.Errorf("%w: ajustar stock: %v", domain.ErrPersistence, err)
	}
	return qty, nil
}

// GetStock cantidad actual del par (0 si no hay registro).
func (l *StockLedger) GetStock(ctx context.Context, productID, locationID string) (int64, error) {
	rec, err := l.stockRepo.Get(ctx, productID, locationID)
	if err != nil {
		return 0, fmt.Errorf("%w: leer stock: %v", domain.ErrPersistence, err)
	}
	return rec.Quantity, nil
}

// AllowsNegative indica si el ledger acepta saldos negativos.
func (l *StockLedger) AllowsNegative() bool {
	return l.allowNegative
}
