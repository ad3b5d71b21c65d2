package dto

import "time"

// BatchEntryRequest producto/cantidad dentro de un lote.
type BatchEntryRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"gt=0"`
}

// BatchMovementRequest body para POST /api/inventory/entries|exits|transfers.
// movement_type es opcional: por defecto entry, exit o transfer según la operación.
type BatchMovementRequest struct {
	Entries        []BatchEntryRequest `json:"entries" validate:"required,min=1,dive"`
	MovementType   string              `json:"movement_type,omitempty"`
	FromLocationID string              `json:"from_location,omitempty"`
	ToLocationID   string              `json:"to_location,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	RelatedOrderID *string             `json:"related_order_id,omitempty"`
}

// FailedEntryResponse producto omitido dentro de un lote.
type FailedEntryResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// BatchMovementResponse resultado de un lote. success=false implica que no quedó cabecera.
type BatchMovementResponse struct {
	Success             bool                  `json:"success"`
	Message             string                `json:"message,omitempty"`
	MovementID          string                `json:"movement_id,omitempty"`
	InventoryMovementID string                `json:"inventory_movement_id,omitempty"`
	FailedEntries       []FailedEntryResponse `json:"failedEntries,omitempty"`
}

// OrderTransitionRequest body para POST /api/inventory/orders/transitions.
type OrderTransitionRequest struct {
	OrderID        string              `json:"order_id" validate:"required"`
	OrderNumber    string              `json:"order_number"`
	Products       []BatchEntryRequest `json:"products" validate:"dive"`
	PreviousStatus string              `json:"previous_status"`
	NewStatus      string              `json:"new_status" validate:"required"`
	Notes          string              `json:"notes,omitempty"`
}

// OrderTransitionResponse resultado de una transición de pedido.
type OrderTransitionResponse struct {
	Success       bool                  `json:"success"`
	Message       string                `json:"message,omitempty"`
	MovementID    string                `json:"movement_id,omitempty"`
	FailedEntries []FailedEntryResponse `json:"failedEntries,omitempty"`
}

// GroupedMovementQuery filtros (query string) del reporte agrupado.
type GroupedMovementQuery struct {
	MovementType   string `query:"movement_type"`
	FromLocationID string `query:"from_location"`
	ToLocationID   string `query:"to_location"`
	DateFrom       string `query:"date_from"` // RFC3339 o YYYY-MM-DD
	DateTo         string `query:"date_to"`
	ProductID      string `query:"product_id"`
	Search         string `query:"search"`
	Page           int    `query:"page" validate:"omitempty,min=1,max=100000"`
	PageSize       int    `query:"page_size" validate:"omitempty,min=1,max=200"`
}

// GroupedProductResponse cantidad acumulada de un producto en un grupo.
type GroupedProductResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	ProductCode string `json:"product_code,omitempty"`
	Quantity    int64  `json:"quantity"`
}

// GroupedMovementResponse unidad de reporte (un pedido o un lote manual).
type GroupedMovementResponse struct {
	Key              string                   `json:"key"`
	RelatedOrderID   *string                  `json:"related_order_id,omitempty"`
	OrderNumber      string                   `json:"order_number,omitempty"`
	MovementIDs      []string                 `json:"movement_ids"`
	MovementTypes    []string                 `json:"movement_types"`
	FromLocationID   string                   `json:"from_location,omitempty"`
	FromLocationName string                   `json:"from_location_name,omitempty"`
	ToLocationID     string                   `json:"to_location,omitempty"`
	ToLocationName   string                   `json:"to_location_name,omitempty"`
	Products         []GroupedProductResponse `json:"products"`
	TotalQuantity    int64                    `json:"total_quantity"`
	TotalProducts    int                      `json:"total_products"`
	Notes            string                   `json:"notes,omitempty"`
	CreatedBy        string                   `json:"created_by,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
}

// GroupedMovementPageResponse página del reporte agrupado.
type GroupedMovementPageResponse struct {
	Groups     []GroupedMovementResponse `json:"groups"`
	Total      int                       `json:"total"`
	Page       int                       `json:"page"`
	PageSize   int                       `json:"pageSize"`
	TotalPages int                       `json:"totalPages"`
	Truncated  bool                      `json:"truncated"`
}

// MovementLineResponse línea de una cabecera.
type MovementLineResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	ProductCode string `json:"product_code,omitempty"`
	Quantity    int64  `json:"quantity"`
}

// MovementResponse cabecera con sus líneas.
type MovementResponse struct {
	ID               string                 `json:"id"`
	Type             string                 `json:"type"`
	FromLocationID   string                 `json:"from_location,omitempty"`
	FromLocationName string                 `json:"from_location_name,omitempty"`
	ToLocationID     string                 `json:"to_location,omitempty"`
	ToLocationName   string                 `json:"to_location_name,omitempty"`
	RelatedOrderID   *string                `json:"related_order_id,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
	CreatedBy        string                 `json:"created_by"`
	CreatedAt        time.Time              `json:"created_at"`
	Lines            []MovementLineResponse `json:"lines"`
}

// StockRecordResponse cantidad de un producto en una ubicación.
type StockRecordResponse struct {
	ProductID  string    `json:"product_id"`
	LocationID string    `json:"location_id"`
	Quantity   int64     `json:"quantity"`
	UpdatedBy  string    `json:"updated_by,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StockListResponse listado de stock.
type StockListResponse struct {
	Items []StockRecordResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}
