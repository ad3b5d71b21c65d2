package entity

import "time"

// StockRecord representa la cantidad actual de un producto en una ubicación.
// Se crea en el primer ajuste y solo cambia a través del ledger de stock.
type StockRecord struct {
	ProductID  string
	LocationID string
	Quantity   int64
	UpdatedBy  string
	UpdatedAt  time.Time
}
