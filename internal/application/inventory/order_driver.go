package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// NoMovementMessage respuesta de transiciones que no mueven inventario.
const NoMovementMessage = "No se requiere movimiento de inventario para esta transición"

// LocationRole rol semántico de una ubicación conocida.
type LocationRole string

const (
	RoleBranch            LocationRole = "branch"
	RolePendingOnlineExit LocationRole = "pending_online_exit"
	RoleCustomerDelivered LocationRole = "customer_delivered"
)

// OrderStatuses nombres de estado del pedido externo.
type OrderStatuses struct {
	PendingPayment   string
	Paid             string
	AwaitingDelivery string
	Delivered        string
	Cancelled        string
}

// OrderTransition cambio de estado de un pedido.
type OrderTransition struct {
	OrderID        string
	OrderNumber    string
	Products       []entity.BatchEntry
	PreviousStatus string
	NewStatus      string
	Notes          string
	Actor          string
}

// TransitionResult resultado de aplicar una transición.
type TransitionResult struct {
	Success       bool
	Message       string
	MovementID    string
	FailedEntries []entity.FailedEntry
}

type transitionRule struct {
	from         LocationRole
	to           LocationRole
	movementType string
}

// OrderMovementDriver traduce transiciones de pedidos en transferencias entre ubicaciones conocidas.
// No deduplica transiciones repetidas: el llamador lleva el estado del pedido.
type OrderMovementDriver struct {
	batch     *BatchMovementUseCase
	resolver  LocationResolver
	locations map[LocationRole]entity.LocationSpec
	statuses  OrderStatuses
	notifier  Notifier
	log       zerolog.Logger
}

// NewOrderMovementDriver construye el driver. notifier es opcional.
func NewOrderMovementDriver(
	batch *BatchMovementUseCase,
	resolver LocationResolver,
	locations map[LocationRole]entity.LocationSpec,
	statuses OrderStatuses,
	notifier Notifier,
	log zerolog.Logger,
) (*OrderMovementDriver, error) {
	for _, role := range []LocationRole{RoleBranch, RolePendingOnlineExit, RoleCustomerDelivered} {
		if spec, ok := locations[role]; !ok || spec.Code == "" {
			return nil, fmt.Errorf("ubicación conocida sin configurar: %s", role)
		}
	}
	if statuses.PendingPayment == "" || statuses.Paid == "" || statuses.AwaitingDelivery == "" ||
		statuses.Delivered == "" || statuses.Cancelled == "" {
		return nil, fmt.Errorf("estados de pedido incompletos")
	}
	return &OrderMovementDriver{
		batch:     batch,
		resolver:  resolver,
		locations: locations,
		statuses:  statuses,
		notifier:  notifier,
		log:       log,
	}, nil
}

// WellKnownSpecs ubicaciones requeridas por los flujos de pedidos.
func (d *OrderMovementDriver) WellKnownSpecs() []entity.LocationSpec {
	return []entity.LocationSpec{
		d.locations[RoleBranch],
		d.locations[RolePendingOnlineExit],
		d.locations[RoleCustomerDelivered],
	}
}

func (d *OrderMovementDriver) rule(previous, next string) (transitionRule, bool) {
	s := d.statuses
	switch {
	case previous == s.PendingPayment && next == s.Paid:
		return transitionRule{from: RoleBranch, to: RolePendingOnlineExit, movementType: entity.MovementTypeSale}, true
	case previous == s.AwaitingDelivery && next == s.Delivered:
		return transitionRule{from: RolePendingOnlineExit, to: RoleCustomerDelivered, movementType: entity.MovementTypeExit}, true
	case previous == s.PendingPayment && next == s.Cancelled:
		return transitionRule{from: RolePendingOnlineExit, to: RoleBranch, movementType: entity.MovementTypeReturn}, true
	}
	return transitionRule{}, false
}

// HandleTransition aplica la transferencia asociada a la transición, si existe.
// Las transiciones sin regla devuelven éxito sin crear cabecera.
func (d *OrderMovementDriver) HandleTransition(ctx context.Context, t OrderTransition) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, "inventory.order_transition",
		trace.WithAttributes(
			attribute.String("order.id", t.OrderID),
			attribute.String("order.previous_status", t.PreviousStatus),
			attribute.String("order.new_status", t.NewStatus),
		))
	defer span.End()

	if t.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id requerido", domain.ErrInvalidInput)
	}
	rule, ok := d.rule(t.PreviousStatus, t.NewStatus)
	if !ok {
		span.SetAttributes(attribute.Bool("order.movement", false))
		return &TransitionResult{Success: true, Message: NoMovementMessage}, nil
	}

	fromSpec, toSpec := d.locations[rule.from], d.locations[rule.to]
	ids, err := d.resolver.EnsureLocations(ctx, []entity.LocationSpec{fromSpec, toSpec})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("resolver ubicaciones del pedido: %w", err)
	}

	notes := t.Notes
	if notes == "" {
		notes = fmt.Sprintf("Pedido %s: %s a %s", orderLabel(t), t.PreviousStatus, t.NewStatus)
	}
	orderID := t.OrderID
	res, err := d.batch.RegisterTransfer(ctx, BatchRequest{
		Entries:        t.Products,
		MovementType:   rule.movementType,
		FromLocationID: ids[fromSpec.Code],
		ToLocationID:   ids[toSpec.Code],
		Notes:          notes,
		RelatedOrderID: &orderID,
		Actor:          t.Actor,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("order.movement", res.Success))

	if res.Success {
		d.notify(ctx, OrderMovementEvent{
			OrderID:     t.OrderID,
			OrderNumber: t.OrderNumber,
			Status:      t.NewStatus,
			MovementID:  res.MovementID,
			Type:        rule.movementType,
		})
	} else {
		d.log.Warn().
			Str("order_id", t.OrderID).
			Int("failed", len(res.FailedEntries)).
			Msg("la transición del pedido no movió inventario")
	}

	return &TransitionResult{
		Success:       res.Success,
		Message:       res.Message,
		MovementID:    res.MovementID,
		FailedEntries: res.FailedEntries,
	}, nil
}

// HandleTransitionFromRequest adapta el request HTTP a HandleTransition.
func (d *OrderMovementDriver) HandleTransitionFromRequest(ctx context.Context, userID string, in dto.OrderTransitionRequest) (*dto.OrderTransitionResponse, error) {
	res, err := d.HandleTransition(ctx, OrderTransition{
		OrderID:        in.OrderID,
		OrderNumber:    in.OrderNumber,
		Products:       toBatchEntries(in.Products),
		PreviousStatus: in.PreviousStatus,
		NewStatus:      in.NewStatus,
		Notes:          in.Notes,
		Actor:          userID,
	})
	if err != nil {
		return nil, err
	}
	return &dto.OrderTransitionResponse{
		Success:       res.Success,
		Message:       res.Message,
		MovementID:    res.MovementID,
		FailedEntries: toFailedEntryResponses(res.FailedEntries),
	}, nil
}

// notify publica el evento en segundo plano; sus fallas nunca revierten el movimiento.
func (d *OrderMovementDriver) notify(ctx context.Context, event OrderMovementEvent) {
	if d.notifier == nil {
		return
	}
	go func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := d.notifier.NotifyOrderMovement(bg, event); err != nil {
			d.log.Warn().Err(err).
				Str("order_id", event.OrderID).
				Str("movement_id", event.MovementID).
				Msg("no se pudo notificar el movimiento del pedido")
		}
	}()
}

func orderLabel(t OrderTransition) string {
	if t.OrderNumber != "" {
		return t.OrderNumber
	}
	return t.OrderID
}
