package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	appinv "github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memorytest"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type apiFixture struct {
	app    *fiber.App
	store  *memorytest.Store
	branch string
	web    string
	token  string
}

var statuses = appinv.OrderStatuses{
	PendingPayment:   "pendiente_pago",
	Paid:             "pagado",
	AwaitingDelivery: "pendiente_entrega",
	Delivered:        "entregado",
	Cancelled:        "cancelado",
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memorytest.NewStore()
	store.PutProduct(entity.Product{ID: "A", Code: "SKU-A", Name: "Crema facial"})
	store.PutProduct(entity.Product{ID: "B", Code: "SKU-B", Name: "Jabón"})

	locations := usecase.NewLocationUseCase(store.Locations(), store, nil, zerolog.Nop())
	ledger := appinv.NewStockLedger(store.Stock(), false)
	batch := appinv.NewBatchMovementUseCase(ledger, store.Movements(), store.Products(), store.Locations(), nil, zerolog.Nop())
	driver, err := appinv.NewOrderMovementDriver(batch, locations, map[appinv.LocationRole]entity.LocationSpec{
		appinv.RoleBranch:            {Code: "sucursal-principal", Name: "Sucursal principal"},
		appinv.RolePendingOnlineExit: {Code: "pendiente-salida-online", Name: "Pendiente salida online"},
		appinv.RoleCustomerDelivered: {Code: "entregado-cliente", Name: "Entregado al cliente"},
	}, statuses, nil, zerolog.Nop())
	require.NoError(t, err)
	query := appinv.NewMovementQueryUseCase(store.Movements(), store.Locations(), store.Products(), store.Orders(),
		store.Stock(), pdf.NewMovementReportGenerator(), 5000, zerolog.Nop())

	ids, err := locations.EnsureLocations(context.Background(), driver.WellKnownSpecs())
	require.NoError(t, err)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		LocationUC: locations,
		BatchUC:    batch,
		Driver:     driver,
		QueryUC:    query,
		JWTSecret:  testJWTSecret,
		Log:        zerolog.Nop(),
	})
	return &apiFixture{
		app:    app,
		store:  store,
		branch: ids["sucursal-principal"],
		web:    ids["pendiente-salida-online"],
		token:  bearer(t),
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", f.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

// ──────────────────────────────────────────────────────────────────────────────
// Lotes
// ──────────────────────────────────────────────────────────────────────────────

func TestEntries_Crea201(t *testing.T) {
	f := newAPI(t)

	resp, body := f.do(t, http.MethodPost, "/api/inventory/entries", dto.BatchMovementRequest{
		Entries:      []dto.BatchEntryRequest{{ProductID: "A", Quantity: 5}, {ProductID: "B", Quantity: 2}},
		ToLocationID: f.branch,
		Notes:        "Compra proveedor",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out dto.BatchMovementResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.MovementID)
	assert.Equal(t, out.MovementID, out.InventoryMovementID)
	assert.Equal(t, int64(5), f.store.StockOf("A", f.branch))
}

func TestExits_ParcialReportaFallidas(t *testing.T) {
	f := newAPI(t)
	f.store.SetStock("A", f.branch, 5)

	resp, body := f.do(t, http.MethodPost, "/api/inventory/exits", dto.BatchMovementRequest{
		Entries:        []dto.BatchEntryRequest{{ProductID: "A", Quantity: 2}, {ProductID: "B", Quantity: 1}},
		FromLocationID: f.branch,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"failedEntries"`)
	assert.Contains(t, string(body), `"INSUFFICIENT_STOCK"`)
	assert.Equal(t, int64(3), f.store.StockOf("A", f.branch))
}

func TestTransfers_TodoFallido422(t *testing.T) {
	f := newAPI(t)

	resp, body := f.do(t, http.MethodPost, "/api/inventory/transfers", dto.BatchMovementRequest{
		Entries:        []dto.BatchEntryRequest{{ProductID: "A", Quantity: 2}},
		FromLocationID: f.branch,
		ToLocationID:   f.web,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	var out dto.BatchMovementResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Success)
	require.Len(t, out.FailedEntries, 1)
	assert.Equal(t, 0, f.store.HeaderCount())
}

func TestEntries_ValidacionDeBody(t *testing.T) {
	f := newAPI(t)

	resp, body := f.do(t, http.MethodPost, "/api/inventory/entries", dto.BatchMovementRequest{
		Entries:      []dto.BatchEntryRequest{{ProductID: "A", Quantity: 0}},
		ToLocationID: f.branch,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "VALIDATION")

	resp, _ = f.do(t, http.MethodPost, "/api/inventory/entries", dto.BatchMovementRequest{
		Entries:      []dto.BatchEntryRequest{{ProductID: "A", Quantity: 1}},
		ToLocationID: "no-existe",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntries_SinToken401(t *testing.T) {
	f := newAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/entries", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Pedidos y consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestOrderTransition_PagadoYReporte(t *testing.T) {
	f := newAPI(t)
	f.store.SetStock("A", f.branch, 5)
	f.store.PutOrder("pedido-1", "WEB-0001")

	resp, body := f.do(t, http.MethodPost, "/api/inventory/orders/transitions", dto.OrderTransitionRequest{
		OrderID:        "pedido-1",
		OrderNumber:    "WEB-0001",
		Products:       []dto.BatchEntryRequest{{ProductID: "A", Quantity: 2}},
		PreviousStatus: statuses.PendingPayment,
		NewStatus:      statuses.Paid,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.OrderTransitionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	require.NotEmpty(t, out.MovementID)
	assert.Equal(t, int64(2), f.store.StockOf("A", f.web))

	resp, body = f.do(t, http.MethodGet, "/api/inventory/movements/grouped?search=web-0001", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var page dto.GroupedMovementPageResponse
	require.NoError(t, json.Unmarshal(body, &page))
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "WEB-0001", page.Groups[0].OrderNumber)
	assert.Contains(t, string(body), `"pageSize":20`)

	resp, body = f.do(t, http.MethodGet, "/api/inventory/movements/"+out.MovementID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "SKU-A")

	resp, body = f.do(t, http.MethodGet, "/api/inventory/movements/grouped/report.pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestOrderTransition_SinReglaNoMueve(t *testing.T) {
	f := newAPI(t)

	resp, body := f.do(t, http.MethodPost, "/api/inventory/orders/transitions", dto.OrderTransitionRequest{
		OrderID:        "pedido-1",
		PreviousStatus: statuses.Paid,
		NewStatus:      statuses.Delivered,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), appinv.NoMovementMessage)
}

func TestGroupedMovements_FechaInvalida400(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.do(t, http.MethodGet, "/api/inventory/movements/grouped?date_from=ayer", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/inventory/movements/grouped?page_size=500", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGroupedMovements_PaginaEnorme400(t *testing.T) {
	f := newAPI(t)
	resp, body := f.do(t, http.MethodGet, "/api/inventory/movements/grouped?page=46116860184273879", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = f.do(t, http.MethodGet, "/api/inventory/movements/grouped?page=5000", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"groups":[]`)
}

func TestGetMovement_NoExiste404(t *testing.T) {
	f := newAPI(t)
	resp, body := f.do(t, http.MethodGet, "/api/inventory/movements/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestListStock(t *testing.T) {
	f := newAPI(t)
	f.store.SetStock("A", f.branch, 4)

	resp, body := f.do(t, http.MethodGet, "/api/inventory/stock?location_id="+f.branch, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.StockListResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(4), out.Items[0].Quantity)

	resp, _ = f.do(t, http.MethodGet, "/api/inventory/stock", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ubicaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestLocations_CRUD(t *testing.T) {
	f := newAPI(t)

	resp, body := f.do(t, http.MethodPost, "/api/locations", dto.CreateLocationRequest{Code: "bodega-norte", Name: "Bodega norte"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created dto.LocationResponse
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ = f.do(t, http.MethodPost, "/api/locations", dto.CreateLocationRequest{Code: "bodega-norte", Name: "Otra"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	name := "Bodega norte 2"
	resp, body = f.do(t, http.MethodPut, "/api/locations/"+created.ID, dto.UpdateLocationRequest{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), name)

	resp, _ = f.do(t, http.MethodDelete, "/api/locations/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/api/locations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"active":false`)

	resp, _ = f.do(t, http.MethodDelete, "/api/locations/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLocations_Ensure(t *testing.T) {
	f := newAPI(t)

	req := dto.EnsureLocationsRequest{Locations: []dto.CreateLocationRequest{
		{Code: "sucursal-principal", Name: "Sucursal principal"},
		{Code: "bodega-sur", Name: "Bodega sur"},
	}}
	resp, body := f.do(t, http.MethodPost, "/api/locations/ensure", req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.EnsureLocationsResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, f.branch, out.Locations["sucursal-principal"])
	assert.NotEmpty(t, out.Locations["bodega-sur"])

	resp, _ = f.do(t, http.MethodPost, "/api/locations/ensure", dto.EnsureLocationsRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
