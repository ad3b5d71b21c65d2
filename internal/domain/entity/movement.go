package entity

import "time"

// Tipos de movimiento de inventario.
const (
	MovementTypeEntry      = "entry"
	MovementTypeExit       = "exit"
	MovementTypeTransfer   = "transfer"
	MovementTypeAdjustment = "adjustment"
	MovementTypeLoss       = "loss"
	MovementTypeReturn     = "return"
	MovementTypeInitial    = "initial"
	MovementTypeProduction = "production"
	MovementTypeSale       = "sale"
	MovementTypePurchase   = "purchase"
)

// IsValidMovementType indica si t es un tipo de movimiento conocido.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementTypeEntry, MovementTypeExit, MovementTypeTransfer, MovementTypeAdjustment,
		MovementTypeLoss, MovementTypeReturn, MovementTypeInitial, MovementTypeProduction,
		MovementTypeSale, MovementTypePurchase:
		return true
	}
	return false
}

// MovementHeader es la cabecera inmutable de una transacción de inventario.
// Una cabecera sin líneas no debe persistir.
type MovementHeader struct {
	ID             string
	Type           string
	FromLocationID string // vacío si no aplica (ej. entrada de proveedor)
	ToLocationID   string // vacío si no aplica (ej. salida por pérdida)
	RelatedOrderID *string
	Notes          string
	CreatedBy      string
	CreatedAt      time.Time
	Lines          []MovementLine

	// Campos de lectura, llenados al enriquecer para reportes.
	FromLocationName string
	ToLocationName   string
}

// MovementLine es una línea producto/cantidad dentro de una cabecera. Quantity siempre > 0.
type MovementLine struct {
	ID        string
	HeaderID  string
	ProductID string
	Quantity  int64

	ProductName string
	ProductCode string
}

// BatchEntry es un producto/cantidad solicitado en una operación por lotes.
type BatchEntry struct {
	ProductID string
	Quantity  int64
}

// Códigos de falla por producto dentro de un lote.
const (
	FailureNotFound          = "NOT_FOUND"
	FailureInsufficientStock = "INSUFFICIENT_STOCK"
	FailurePersistence       = "PERSISTENCE"
)

// FailedEntry registra un producto que no pudo procesarse dentro de un lote.
type FailedEntry struct {
	ProductID string
	Quantity  int64
	Code      string
	Reason    string
}
