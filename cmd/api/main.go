package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	infrapdf "github.com/jhoicas/inventario-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/redisbus"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("esquema del ledger")
		}
	}

	locationRepo := postgres.NewLocationRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Redis es opcional: sin REDIS_ADDRESS no hay invalidación de vistas, notificaciones ni lock distribuido.
	var (
		invalidator inventory.ViewInvalidator
		notifier    inventory.Notifier
		locker      usecase.ProvisionLocker
	)
	rdb, err := redisbus.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis no disponible; se continúa sin invalidación ni notificaciones")
	}
	if rdb != nil {
		defer rdb.Close()
		publisher := redisbus.NewPublisher(rdb, cfg.Redis.ViewsChannel, cfg.Redis.NotifyChannel)
		invalidator, notifier = publisher, publisher
		locker = redisbus.NewLocker(rdb, log.Component("locker"))
	}

	locationUC := usecase.NewLocationUseCase(locationRepo, txRunner, locker, log.Component("locations"))
	ledger := inventory.NewStockLedger(stockRepo, cfg.Ledger.AllowNegativeStock)
	batchUC := inventory.NewBatchMovementUseCase(ledger, movementRepo, productRepo, locationRepo, invalidator, log.Component("batch"))
	queryUC := inventory.NewMovementQueryUseCase(
		movementRepo, locationRepo, productRepo, orderRepo, stockRepo,
		infrapdf.NewMovementReportGenerator(), cfg.Ledger.ReportScanLimit, log.Component("movement-query"),
	)
	driver, err := inventory.NewOrderMovementDriver(
		batchUC, locationUC, wellKnownLocations(cfg.Ledger), orderStatuses(cfg.Ledger),
		notifier, log.Component("order-driver"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración de flujos de pedidos")
	}

	// Aprovisionamiento anticipado; si falla, cada transición lo reintenta.
	if ids, err := locationUC.EnsureLocations(ctx, driver.WellKnownSpecs()); err != nil {
		log.Warn().Err(err).Msg("aprovisionar ubicaciones conocidas")
	} else {
		log.Info().Interface("locations", ids).Msg("ubicaciones conocidas listas")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		LocationUC: locationUC,
		BatchUC:    batchUC,
		Driver:     driver,
		QueryUC:    queryUC,
		JWTSecret:  cfg.JWT.Secret,
		Log:        log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func wellKnownLocations(cfg config.LedgerConfig) map[inventory.LocationRole]entity.LocationSpec {
	out := make(map[inventory.LocationRole]entity.LocationSpec, len(cfg.Locations))
	for role, l := range cfg.Locations {
		out[inventory.LocationRole(role)] = entity.LocationSpec{Code: l.Code, Name: l.Name, Description: l.Description}
	}
	return out
}

func orderStatuses(cfg config.LedgerConfig) inventory.OrderStatuses {
	s := cfg.OrderStatuses
	return inventory.OrderStatuses{
		PendingPayment:   s.PendingPayment,
		Paid:             s.Paid,
		AwaitingDelivery: s.AwaitingDelivery,
		Delivered:        s.Delivered,
		Cancelled:        s.Cancelled,
	}
}
