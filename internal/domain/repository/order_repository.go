package repository

import "context"

// OrderRepository puerto de solo lectura al almacén externo de pedidos.
type OrderRepository interface {
	// GetNumbers resuelve id de pedido -> número legible. Los ids desconocidos se omiten.
	GetNumbers(ctx context.Context, ids []string) (map[string]string, error)
}
