package entity

import "time"

// GroupedMovement agrupa, para reportes, todas las cabeceras de un mismo pedido
// (o una sola cabecera en lotes manuales). No se persiste.
type GroupedMovement struct {
	Key            string
	RelatedOrderID *string
	OrderNumber    string
	MovementIDs    []string
	MovementTypes  []string

	FromLocationID   string
	FromLocationName string
	ToLocationID     string
	ToLocationName   string

	Products      []GroupedProduct
	TotalQuantity int64
	TotalProducts int
	Notes         string
	CreatedBy     string
	CreatedAt     time.Time
}

// GroupedProduct cantidad acumulada de un producto dentro de un grupo.
type GroupedProduct struct {
	ProductID   string
	ProductName string
	ProductCode string
	Quantity    int64
}
