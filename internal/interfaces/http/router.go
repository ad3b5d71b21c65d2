package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LocationUC *usecase.LocationUseCase
	BatchUC    *inventory.BatchMovementUseCase
	Driver     *inventory.OrderMovementDriver
	QueryUC    *inventory.MovementQueryUseCase
	JWTSecret  string
	Log        zerolog.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", RequestLogger(deps.Log), AuthMiddleware(deps.JWTSecret))

	// Inventory: lotes, pedidos y consultas
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.BatchUC, deps.Driver, deps.QueryUC, deps.Log)
	inv.Post("/entries", inventoryHandler.RegisterEntries)
	inv.Post("/exits", inventoryHandler.RegisterExits)
	inv.Post("/transfers", inventoryHandler.RegisterTransfers)
	inv.Post("/orders/transitions", inventoryHandler.HandleOrderTransition)
	inv.Get("/movements/grouped", inventoryHandler.ListGroupedMovements)
	inv.Get("/movements/grouped/report.pdf", inventoryHandler.ExportGroupedMovementsPDF)
	inv.Get("/movements/:id", inventoryHandler.GetMovement)
	inv.Get("/stock", inventoryHandler.ListStock)

	// Locations
	locations := api.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC, deps.Log)
	locations.Post("/ensure", locationHandler.Ensure)
	locations.Post("/", locationHandler.Create)
	locations.Get("/", locationHandler.List)
	locations.Get("/:id", locationHandler.GetByID)
	locations.Put("/:id", locationHandler.Update)
	locations.Delete("/:id", locationHandler.Retire)
}
