package inventory

import (
	"context"
	"io"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Vistas que la capa de presentación debe refrescar tras una mutación de inventario.
const (
	ViewStock            = "inventory_stock"
	ViewMovements        = "inventory_movements"
	ViewGroupedMovements = "inventory_grouped_movements"
	ViewOrders           = "orders"
)

// ViewInvalidator señala vistas a refrescar. Es fire-and-forget: su falla no afecta el ledger.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, views ...string) error
}

// OrderMovementEvent se publica cuando una transición de pedido produjo un movimiento.
type OrderMovementEvent struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	MovementID  string `json:"movement_id"`
	Type        string `json:"movement_type"`
}

// Notifier notificación best-effort de flujos de pedidos.
type Notifier interface {
	NotifyOrderMovement(ctx context.Context, event OrderMovementEvent) error
}

// LocationResolver resuelve (y aprovisiona si faltan) ubicaciones conocidas: código -> id.
type LocationResolver interface {
	EnsureLocations(ctx context.Context, specs []entity.LocationSpec) (map[string]string, error)
}

// ReportGenerator genera el PDF del reporte de movimientos agrupados.
type ReportGenerator interface {
	GroupedMovementsPDF(w io.Writer, title string, groups []entity.GroupedMovement) error
}
