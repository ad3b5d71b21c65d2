package http

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

// InventoryHandler maneja lotes de movimientos, transiciones de pedidos y consultas (protegido).
type InventoryHandler struct {
	batch  *inventory.BatchMovementUseCase
	driver *inventory.OrderMovementDriver
	query  *inventory.MovementQueryUseCase
	log    zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	batch *inventory.BatchMovementUseCase,
	driver *inventory.OrderMovementDriver,
	query *inventory.MovementQueryUseCase,
	log zerolog.Logger,
) *InventoryHandler {
	return &InventoryHandler{batch: batch, driver: driver, query: query, log: log}
}

// RegisterEntries godoc
// @Summary      Registrar entrada por lotes
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchMovementRequest  true  "entries, to_location"
// @Success      201   {object}  dto.BatchMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.BatchMovementResponse
// @Router       /api/inventory/entries [post]
func (h *InventoryHandler) RegisterEntries(c *fiber.Ctx) error {
	return h.registerBatch(c, inventory.OperationEntry)
}

// RegisterExits godoc
// @Summary      Registrar salida por lotes
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchMovementRequest  true  "entries, from_location"
// @Success      201   {object}  dto.BatchMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.BatchMovementResponse
// @Router       /api/inventory/exits [post]
func (h *InventoryHandler) RegisterExits(c *fiber.Ctx) error {
	return h.registerBatch(c, inventory.OperationExit)
}

// RegisterTransfers godoc
// @Summary      Registrar transferencia por lotes
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchMovementRequest  true  "entries, from_location, to_location"
// @Success      201   {object}  dto.BatchMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.BatchMovementResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) RegisterTransfers(c *fiber.Ctx) error {
	return h.registerBatch(c, inventory.OperationTransfer)
}

func (h *InventoryHandler) registerBatch(c *fiber.Ctx, op inventory.Operation) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.BatchMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.batch.RegisterFromRequest(c.UserContext(), op, userID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !out.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// HandleOrderTransition godoc
// @Summary      Aplicar transición de estado de pedido
// @Description  Mueve inventario entre ubicaciones conocidas según la transición. Las transiciones sin regla no mueven inventario.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OrderTransitionRequest  true  "order_id, products, previous_status, new_status"
// @Success      200   {object}  dto.OrderTransitionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.OrderTransitionResponse
// @Router       /api/inventory/orders/transitions [post]
func (h *InventoryHandler) HandleOrderTransition(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.OrderTransitionRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.driver.HandleTransitionFromRequest(c.UserContext(), userID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !out.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
	}
	return c.JSON(out)
}

// ListGroupedMovements godoc
// @Summary      Reporte de movimientos agrupados por pedido
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        movement_type  query  string  false  "Tipo de movimiento"
// @Param        from_location  query  string  false  "Ubicación origen"
// @Param        to_location    query  string  false  "Ubicación destino"
// @Param        date_from      query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        date_to        query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        product_id     query  string  false  "Producto contenido en el grupo"
// @Param        search         query  string  false  "Texto (sin distinguir tildes)"
// @Param        page           query  int     false  "Página"  default(1)
// @Param        page_size      query  int     false  "Tamaño"  default(20)
// @Success      200  {object}  dto.GroupedMovementPageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/grouped [get]
func (h *InventoryHandler) ListGroupedMovements(c *fiber.Ctx) error {
	var q dto.GroupedMovementQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	out, err := h.query.QueryGroupedMovementsFromRequest(c.UserContext(), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// ExportGroupedMovementsPDF godoc
// @Summary      Reporte PDF de movimientos agrupados
// @Tags         inventory
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/grouped/report.pdf [get]
func (h *InventoryHandler) ExportGroupedMovementsPDF(c *fiber.Ctx) error {
	var q dto.GroupedMovementQuery
	if ok, err := parseQuery(c, &q); !ok {
		return err
	}
	f, err := inventory.FilterFromQuery(q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var buf bytes.Buffer
	if err := h.query.ExportGroupedMovementsPDF(c.UserContext(), &buf, f); err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="movimientos.pdf"`)
	return c.Send(buf.Bytes())
}

// GetMovement godoc
// @Summary      Obtener movimiento con sus líneas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la cabecera"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	out, err := h.query.GetMovementResponse(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// ListStock godoc
// @Summary      Consultar stock por ubicación o por producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Ubicación"
// @Param        product_id   query  string  false  "Producto"
// @Param        limit        query  int     false  "Límite"  default(20)
// @Param        offset       query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.StockListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) ListStock(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	if err := validate.Struct(page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
	}
	out, err := h.query.ListStockResponse(c.UserContext(), c.Query("location_id"), c.Query("product_id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
