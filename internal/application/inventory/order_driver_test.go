package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memorytest"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var (
	testStatuses = appinv.OrderStatuses{
		PendingPayment:   "PendientePago",
		Paid:             "Pagado",
		AwaitingDelivery: "PendienteEntrega",
		Delivered:        "Entregado",
		Cancelled:        "Cancelado",
	}
	testLocations = map[appinv.LocationRole]entity.LocationSpec{
		appinv.RoleBranch:            {Code: "sucursal-principal", Name: "Sucursal principal"},
		appinv.RolePendingOnlineExit: {Code: "pendiente-salida-online", Name: "Pendiente salida online"},
		appinv.RoleCustomerDelivered: {Code: "entregado-cliente", Name: "Entregado al cliente"},
	}
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []appinv.OrderMovementEvent
	err    error
}

func (n *recordingNotifier) NotifyOrderMovement(_ context.Context, e appinv.OrderMovementEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) Events() []appinv.OrderMovementEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]appinv.OrderMovementEvent(nil), n.events...)
}

type driverFixture struct {
	store    *memorytest.Store
	driver   *appinv.OrderMovementDriver
	notifier *recordingNotifier
	ids      map[string]string
}

func newDriverFixture(t *testing.T) *driverFixture {
	t.Helper()
	store := memorytest.NewStore()
	store.PutProduct(entity.Product{ID: "A", Code: "SKU-A", Name: "Crema facial"})
	store.PutProduct(entity.Product{ID: "B", Code: "SKU-B", Name: "Jabón"})

	locations := usecase.NewLocationUseCase(store.Locations(), store, nil, zerolog.Nop())
	ledger := appinv.NewStockLedger(store.Stock(), false)
	batch := appinv.NewBatchMovementUseCase(ledger, store.Movements(), store.Products(), store.Locations(), nil, zerolog.Nop())
	notifier := &recordingNotifier{}

	driver, err := appinv.NewOrderMovementDriver(batch, locations, testLocations, testStatuses, notifier, zerolog.Nop())
	require.NoError(t, err)

	ids, err := locations.EnsureLocations(context.Background(), driver.WellKnownSpecs())
	require.NoError(t, err)
	return &driverFixture{store: store, driver: driver, notifier: notifier, ids: ids}
}

func (f *driverFixture) loc(role appinv.LocationRole) string {
	return f.ids[testLocations[role].Code]
}

func transition(prev, next string) appinv.OrderTransition {
	return appinv.OrderTransition{
		OrderID:        "pedido-1",
		OrderNumber:    "WEB-0001",
		Products:       entries("A", 2, "B", 1),
		PreviousStatus: prev,
		NewStatus:      next,
		Actor:          actor,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones
// ──────────────────────────────────────────────────────────────────────────────

func TestHandleTransition_PagadoMueveASalidaOnline(t *testing.T) {
	f := newDriverFixture(t)
	branch, pending := f.loc(appinv.RoleBranch), f.loc(appinv.RolePendingOnlineExit)
	f.store.SetStock("A", branch, 5)
	f.store.SetStock("B", branch, 5)

	res, err := f.driver.HandleTransition(context.Background(), transition(testStatuses.PendingPayment, testStatuses.Paid))
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotEmpty(t, res.MovementID)

	assert.Equal(t, int64(3), f.store.StockOf("A", branch))
	assert.Equal(t, int64(2), f.store.StockOf("A", pending))
	assert.Equal(t, int64(1), f.store.StockOf("B", pending))

	h, err := f.store.Movements().GetByID(context.Background(), res.MovementID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeSale, h.Type)
	require.NotNil(t, h.RelatedOrderID)
	assert.Equal(t, "pedido-1", *h.RelatedOrderID)
	assert.Contains(t, h.Notes, "WEB-0001")

	assert.Eventually(t, func() bool { return len(f.notifier.Events()) == 1 }, time.Second, 10*time.Millisecond)
	ev := f.notifier.Events()[0]
	assert.Equal(t, res.MovementID, ev.MovementID)
	assert.Equal(t, testStatuses.Paid, ev.Status)
}

func TestHandleTransition_EntregadoMueveACliente(t *testing.T) {
	f := newDriverFixture(t)
	pending, delivered := f.loc(appinv.RolePendingOnlineExit), f.loc(appinv.RoleCustomerDelivered)
	f.store.SetStock("A", pending, 2)
	f.store.SetStock("B", pending, 1)

	res, err := f.driver.HandleTransition(context.Background(), transition(testStatuses.AwaitingDelivery, testStatuses.Delivered))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(0), f.store.StockOf("A", pending))
	assert.Equal(t, int64(2), f.store.StockOf("A", delivered))
	assert.Equal(t, int64(1), f.store.StockOf("B", delivered))
}

func TestHandleTransition_CanceladoDevuelveASucursal(t *testing.T) {
	f := newDriverFixture(t)
	branch, pending := f.loc(appinv.RoleBranch), f.loc(appinv.RolePendingOnlineExit)
	f.store.SetStock("A", pending, 2)
	f.store.SetStock("B", pending, 1)

	res, err := f.driver.HandleTransition(context.Background(), transition(testStatuses.PendingPayment, testStatuses.Cancelled))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(2), f.store.StockOf("A", branch))

	h, err := f.store.Movements().GetByID(context.Background(), res.MovementID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeReturn, h.Type)
}

func TestHandleTransition_SinReglaNoMueveInventario(t *testing.T) {
	f := newDriverFixture(t)

	// el estado previo requerido para entregar es PendienteEntrega, no Pagado
	res, err := f.driver.HandleTransition(context.Background(), transition(testStatuses.Paid, testStatuses.Delivered))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, appinv.NoMovementMessage, res.Message)
	assert.Empty(t, res.MovementID)
	assert.Equal(t, 0, f.store.HeaderCount())
	assert.Never(t, func() bool { return len(f.notifier.Events()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestHandleTransition_StockInsuficienteNoNotifica(t *testing.T) {
	f := newDriverFixture(t)

	res, err := f.driver.HandleTransition(context.Background(), transition(testStatuses.PendingPayment, testStatuses.Paid))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Len(t, res.FailedEntries, 2)
	assert.Equal(t, 0, f.store.HeaderCount())
	assert.Never(t, func() bool { return len(f.notifier.Events()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestHandleTransition_FallaDeNotificacionNoRevierte(t *testing.T) {
	f := newDriverFixture(t)
	f.notifier.err = errors.New("smtp caído")
	branch := f.loc(appinv.RoleBranch)
	f.store.SetStock("A", branch, 5)
	f.store.SetStock("B", branch, 5)

	res, err := f.driver.HandleTransition(context.Background(), transition(testStatuses.PendingPayment, testStatuses.Paid))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Eventually(t, func() bool { return len(f.notifier.Events()) == 1 }, time.Second, 10*time.Millisecond)
	assert.True(t, f.store.HeaderExists(res.MovementID))
	assert.Equal(t, int64(3), f.store.StockOf("A", branch))
}

func TestHandleTransition_AprovisionaUbicacionesFaltantes(t *testing.T) {
	store := memorytest.NewStore()
	store.PutProduct(entity.Product{ID: "A", Code: "SKU-A", Name: "Crema"})
	locations := usecase.NewLocationUseCase(store.Locations(), store, nil, zerolog.Nop())
	ledger := appinv.NewStockLedger(store.Stock(), true)
	batch := appinv.NewBatchMovementUseCase(ledger, store.Movements(), store.Products(), store.Locations(), nil, zerolog.Nop())
	driver, err := appinv.NewOrderMovementDriver(batch, locations, testLocations, testStatuses, nil, zerolog.Nop())
	require.NoError(t, err)

	t1 := transition(testStatuses.PendingPayment, testStatuses.Paid)
	t1.Products = entries("A", 1)
	res, err := driver.HandleTransition(context.Background(), t1)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, store.LocationCount("sucursal-principal"))
	assert.Equal(t, 1, store.LocationCount("pendiente-salida-online"))
	assert.Equal(t, 0, store.LocationCount("entregado-cliente"))
}

func TestHandleTransition_SinPedidoEsInvalido(t *testing.T) {
	f := newDriverFixture(t)
	tr := transition(testStatuses.PendingPayment, testStatuses.Paid)
	tr.OrderID = ""
	_, err := f.driver.HandleTransition(context.Background(), tr)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestNewOrderMovementDriver_ConfiguracionIncompleta(t *testing.T) {
	partial := map[appinv.LocationRole]entity.LocationSpec{
		appinv.RoleBranch: {Code: "sucursal", Name: "Sucursal"},
	}
	_, err := appinv.NewOrderMovementDriver(nil, nil, partial, testStatuses, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = appinv.NewOrderMovementDriver(nil, nil, testLocations, appinv.OrderStatuses{Paid: "x"}, nil, zerolog.Nop())
	assert.Error(t, err)
}
