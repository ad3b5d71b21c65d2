package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var tracer = otel.Tracer("inventario-ledger/inventory")

// precheckConcurrency lecturas de stock simultáneas en la pre-validación.
const precheckConcurrency = 8

// sideEffectTimeout tiempo máximo de invalidaciones y notificaciones en segundo plano.
const sideEffectTimeout = 5 * time.Second

// Operation operación por lotes soportada.
type Operation string

const (
	OperationEntry    Operation = "entry"
	OperationExit     Operation = "exit"
	OperationTransfer Operation = "transfer"
)

// BatchRequest entrada común de entrada/salida/transferencia.
type BatchRequest struct {
	Entries        []entity.BatchEntry
	MovementType   string // vacío = tipo por defecto de la operación
	FromLocationID string
	ToLocationID   string
	Notes          string
	RelatedOrderID *string
	Actor          string
}

// BatchResult resultado agregado. Success=false implica que no quedó cabecera persistida.
type BatchResult struct {
	Success             bool
	Message             string
	MovementID          string
	InventoryMovementID string
	FailedEntries       []entity.FailedEntry
}

// BatchMovementUseCase procesa lotes de productos sin transacción global: la consistencia
// entre cabecera, líneas y stock se mantiene con compensaciones explícitas.
type BatchMovementUseCase struct {
	ledger       *StockLedger
	movRepo      repository.MovementRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	invalidator  ViewInvalidator
	log          zerolog.Logger
}

// NewBatchMovementUseCase construye el caso de uso. invalidator es opcional.
func NewBatchMovementUseCase(
	ledger *StockLedger,
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	invalidator ViewInvalidator,
	log zerolog.Logger,
) *BatchMovementUseCase {
	return &BatchMovementUseCase{
		ledger:       ledger,
		movRepo:      movRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		invalidator:  invalidator,
		log:          log,
	}
}

// RegisterEntry suma cada cantidad en la ubicación destino.
func (uc *BatchMovementUseCase) RegisterEntry(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	return uc.Execute(ctx, OperationEntry, req)
}

// RegisterExit descuenta cada cantidad de la ubicación origen.
func (uc *BatchMovementUseCase) RegisterExit(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	return uc.Execute(ctx, OperationExit, req)
}

// RegisterTransfer mueve cada cantidad de origen a destino.
func (uc *BatchMovementUseCase) RegisterTransfer(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	return uc.Execute(ctx, OperationTransfer, req)
}

// Execute valida, pre-verifica stock, crea la cabecera y procesa cada producto en secuencia.
// Los errores devueltos son fatales (validación o persistencia antes de tener cabecera);
// las fallas por producto van en BatchResult.FailedEntries.
func (uc *BatchMovementUseCase) Execute(ctx context.Context, op Operation, req BatchRequest) (*BatchResult, error) {
	ctx, span := tracer.Start(ctx, "inventory.batch",
		trace.WithAttributes(
			attribute.String("batch.operation", string(op)),
			attribute.Int("batch.entries", len(req.Entries)),
		))
	defer span.End()

	movementType, err := uc.validate(ctx, op, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validación")
		return nil, err
	}

	var outcome inventory.BatchOutcome
	pending := req.Entries
	if op != OperationEntry {
		pending = uc.precheck(ctx, req, &outcome)
		if len(pending) == 0 {
			span.SetAttributes(attribute.Int("batch.failed", len(outcome.Failed)))
			return &BatchResult{Success: false, Message: outcome.Summary(), FailedEntries: outcome.Failed}, nil
		}
	}

	header := &entity.MovementHeader{
		ID:             uuid.New().String(),
		Type:           movementType,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		RelatedOrderID: req.RelatedOrderID,
		Notes:          req.Notes,
		CreatedBy:      req.Actor,
		CreatedAt:      time.Now(),
	}
	if err := uc.movRepo.CreateHeader(ctx, header); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cabecera")
		return nil, fmt.Errorf("%w: crear cabecera: %v", domain.ErrPersistence, err)
	}

	for _, e := range pending {
		uc.applyEntry(ctx, op, header, e, req.Actor, &outcome)
	}

	span.SetAttributes(
		attribute.Int("batch.processed", len(outcome.Processed)),
		attribute.Int("batch.failed", len(outcome.Failed)),
	)

	if !outcome.Success() {
		msg := outcome.Summary()
		if err := uc.movRepo.DeleteHeader(ctx, header.ID); err != nil {
			uc.log.Error().Err(err).Str("movement_id", header.ID).Msg("no se pudo eliminar la cabecera de un lote fallido")
			msg += fmt.Sprintf(". No se pudo eliminar la cabecera %s", header.ID)
		}
		return &BatchResult{Success: false, Message: msg, FailedEntries: outcome.Failed}, nil
	}

	views := []string{ViewStock, ViewMovements, ViewGroupedMovements}
	if req.RelatedOrderID != nil {
		views = append(views, ViewOrders)
	}
	uc.invalidate(ctx, views...)

	return &BatchResult{
		Success:             true,
		Message:             outcome.Summary(),
		MovementID:          header.ID,
		InventoryMovementID: header.ID,
		FailedEntries:       outcome.Failed,
	}, nil
}

// validate revisa la entrada completa antes de cualquier escritura y devuelve el tipo de movimiento.
func (uc *BatchMovementUseCase) validate(ctx context.Context, op Operation, req BatchRequest) (string, error) {
	if len(req.Entries) == 0 {
		return "", fmt.Errorf("%w: el lote debe incluir al menos un producto", domain.ErrInvalidInput)
	}
	for i, e := range req.Entries {
		if e.ProductID == "" {
			return "", fmt.Errorf("%w: producto vacío en la posición %d", domain.ErrInvalidInput, i)
		}
		if e.Quantity <= 0 {
			return "", fmt.Errorf("%w: cantidad debe ser mayor a cero (producto %s)", domain.ErrInvalidInput, e.ProductID)
		}
	}
	if req.Actor == "" {
		return "", fmt.Errorf("%w: usuario requerido", domain.ErrInvalidInput)
	}

	movementType := req.MovementType
	if movementType == "" {
		movementType = string(op)
	}
	if !entity.IsValidMovementType(movementType) {
		return "", fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrInvalidInput, movementType)
	}

	switch op {
	case OperationEntry:
		if req.ToLocationID == "" {
			return "", fmt.Errorf("%w: ubicación destino requerida", domain.ErrInvalidInput)
		}
	case OperationExit:
		if req.FromLocationID == "" {
			return "", fmt.Errorf("%w: ubicación origen requerida", domain.ErrInvalidInput)
		}
	case OperationTransfer:
		if req.FromLocationID == "" || req.ToLocationID == "" {
			return "", fmt.Errorf("%w: ubicaciones origen y destino requeridas", domain.ErrInvalidInput)
		}
		if req.FromLocationID == req.ToLocationID {
			return "", fmt.Errorf("%w: origen y destino deben ser distintos", domain.ErrInvalidInput)
		}
	default:
		return "", fmt.Errorf("%w: operación desconocida %q", domain.ErrInvalidInput, op)
	}

	for _, id := range []string{req.FromLocationID, req.ToLocationID} {
		if id == "" {
			continue
		}
		loc, err := uc.locationRepo.GetByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("%w: validar ubicación %s: %v", domain.ErrPersistence, id, err)
		}
		if loc == nil || !loc.Active {
			return "", fmt.Errorf("%w: la ubicación %s no existe o está inactiva", domain.ErrInvalidInput, id)
		}
	}
	return movementType, nil
}

// precheck lee en paralelo el stock de origen de cada producto y descarta los insuficientes.
// Es solo una verificación previa: el ajuste condicional del ledger es el que garantiza el saldo.
func (uc *BatchMovementUseCase) precheck(ctx context.Context, req BatchRequest, outcome *inventory.BatchOutcome) []entity.BatchEntry {
	available := make([]int64, len(req.Entries))
	readErrs := make([]error, len(req.Entries))

	var g errgroup.Group
	g.SetLimit(precheckConcurrency)
	for i, e := range req.Entries {
		g.Go(func() error {
			available[i], readErrs[i] = uc.ledger.GetStock(ctx, e.ProductID, req.FromLocationID)
			return nil
		})
	}
	_ = g.Wait()

	pending := make([]entity.BatchEntry, 0, len(req.Entries))
	for i, e := range req.Entries {
		switch {
		case readErrs[i] != nil:
			outcome.Fail(entity.FailedEntry{
				ProductID: e.ProductID,
				Quantity:  e.Quantity,
				Code:      entity.FailurePersistence,
				Reason:    fmt.Sprintf("No se pudo consultar el stock: %v", readErrs[i]),
			})
		case !uc.ledger.AllowsNegative() && available[i] < e.Quantity:
			outcome.Fail(entity.FailedEntry{
				ProductID: e.ProductID,
				Quantity:  e.Quantity,
				Code:      entity.FailureInsufficientStock,
				Reason:    fmt.Sprintf("Stock insuficiente: disponible %d, solicitado %d", available[i], e.Quantity),
			})
		default:
			pending = append(pending, e)
		}
	}
	return pending
}

// applyEntry procesa un producto: existencia, línea y ajuste(s) de stock.
// Si el ajuste falla, la línea ya insertada se retira para que la cabecera refleje el stock real.
func (uc *BatchMovementUseCase) applyEntry(ctx context.Context, op Operation, header *entity.MovementHeader, e entity.BatchEntry, actor string, outcome *inventory.BatchOutcome) {
	fail := func(code, reason string) {
		outcome.Fail(entity.FailedEntry{ProductID: e.ProductID, Quantity: e.Quantity, Code: code, Reason: reason})
	}

	product, err := uc.productRepo.GetByID(ctx, e.ProductID)
	if err != nil {
		fail(entity.FailurePersistence, fmt.Sprintf("No se pudo verificar el producto: %v", err))
		return
	}
	if product == nil {
		fail(entity.FailureNotFound, "Producto no encontrado")
		return
	}

	line := &entity.MovementLine{
		ID:        uuid.New().String(),
		HeaderID:  header.ID,
		ProductID: e.ProductID,
		Quantity:  e.Quantity,
	}
	if err := uc.movRepo.CreateLine(ctx, line); err != nil {
		fail(entity.FailurePersistence, fmt.Sprintf("No se pudo registrar la línea: %v", err))
		return
	}

	if err := uc.applyLedger(ctx, op, header, e, actor); err != nil {
		code, reason := entity.FailurePersistence, fmt.Sprintf("No se pudo ajustar el stock: %v", err)
		if errors.Is(err, domain.ErrInsufficientStock) {
			code, reason = entity.FailureInsufficientStock, "Stock insuficiente en la ubicación de origen"
		}
		if derr := uc.movRepo.DeleteLine(ctx, line.ID); derr != nil {
			uc.log.Error().Err(derr).
				Str("movement_id", header.ID).
				Str("line_id", line.ID).
				Msg("no se pudo retirar la línea de un producto fallido")
			reason += fmt.Sprintf(" (la línea %s no pudo retirarse: %v)", line.ID, derr)
		}
		fail(code, reason)
		return
	}
	outcome.Succeed(e)
}

// applyLedger aplica los ajustes de stock de la operación. En transferencias, si el destino
// falla se repone el origen antes de reportar el error.
func (uc *BatchMovementUseCase) applyLedger(ctx context.Context, op Operation, header *entity.MovementHeader, e entity.BatchEntry, actor string) error {
	switch op {
	case OperationEntry:
		_, err := uc.ledger.AdjustStock(ctx, e.ProductID, header.ToLocationID, e.Quantity, actor)
		return err
	case OperationExit:
		_, err := uc.ledger.AdjustStock(ctx, e.ProductID, header.FromLocationID, -e.Quantity, actor)
		return err
	case OperationTransfer:
		if _, err := uc.ledger.AdjustStock(ctx, e.ProductID, header.FromLocationID, -e.Quantity, actor); err != nil {
			return err
		}
		if _, err := uc.ledger.AdjustStock(ctx, e.ProductID, header.ToLocationID, e.Quantity, actor); err != nil {
			if _, cerr := uc.ledger.AdjustStock(ctx, e.ProductID, header.FromLocationID, e.Quantity, actor); cerr != nil {
				uc.log.Error().Err(cerr).
					Str("movement_id", header.ID).
					Str("product_id", e.ProductID).
					Int64("quantity", e.Quantity).
					Msg("no se pudo reponer el origen de una transferencia fallida")
				return fmt.Errorf("destino: %w; la reposición en origen también falló: %v", err, cerr)
			}
			uc.log.Warn().Err(err).
				Str("movement_id", header.ID).
				Str("product_id", e.ProductID).
				Msg("transferencia revertida en origen")
			return fmt.Errorf("destino: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: operación desconocida %q", domain.ErrInvalidInput, op)
}

// invalidate avisa en segundo plano qué vistas refrescar; las fallas solo se registran.
func (uc *BatchMovementUseCase) invalidate(ctx context.Context, views ...string) {
	if uc.invalidator == nil {
		return
	}
	go func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := uc.invalidator.Invalidate(bg, views...); err != nil {
			uc.log.Warn().Err(err).Strs("views", views).Msg("no se pudieron invalidar las vistas")
		}
	}()
}
