package inventory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// MovementFilter filtros del reporte agrupado. Tipo, ubicaciones y fechas se aplican en el almacén;
// producto y búsqueda se aplican sobre los grupos ya calculados.
type MovementFilter struct {
	MovementType   string
	FromLocationID string
	ToLocationID   string
	DateFrom       *time.Time
	DateTo         *time.Time
	ProductID      string
	Search         string
}

// GroupedMovementPage página del reporte agrupado.
type GroupedMovementPage struct {
	Groups     []entity.GroupedMovement
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	// Truncated indica que se alcanzó el límite de lectura: faltan cabeceras antiguas y los totales son parciales.
	Truncated bool
}

// MovementQueryUseCase lecturas del ledger: reporte agrupado, detalle de movimiento y stock.
type MovementQueryUseCase struct {
	movRepo      repository.MovementRepository
	locationRepo repository.LocationRepository
	productRepo  repository.ProductRepository
	orderRepo    repository.OrderRepository
	stockRepo    repository.StockRepository
	report       ReportGenerator
	scanLimit    int
	log          zerolog.Logger
}

// NewMovementQueryUseCase construye el caso de uso. scanLimit acota las cabeceras leídas por consulta.
func NewMovementQueryUseCase(
	movRepo repository.MovementRepository,
	locationRepo repository.LocationRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	stockRepo repository.StockRepository,
	report ReportGenerator,
	scanLimit int,
	log zerolog.Logger,
) *MovementQueryUseCase {
	return &MovementQueryUseCase{
		movRepo:      movRepo,
		locationRepo: locationRepo,
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		stockRepo:    stockRepo,
		report:       report,
		scanLimit:    scanLimit,
		log:          log,
	}
}

// QueryGroupedMovements lee, enriquece, agrupa, filtra y pagina los movimientos.
func (uc *MovementQueryUseCase) QueryGroupedMovements(ctx context.Context, f MovementFilter, page, pageSize int) (*GroupedMovementPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	groups, truncated, err := uc.groups(ctx, f)
	if err != nil {
		return nil, err
	}
	items, total, totalPages := inventory.Paginate(groups, page, pageSize)
	return &GroupedMovementPage{
		Groups:     items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Truncated:  truncated,
	}, nil
}

// ExportGroupedMovementsPDF escribe en w el reporte completo (sin paginar) que coincide con f.
func (uc *MovementQueryUseCase) ExportGroupedMovementsPDF(ctx context.Context, w io.Writer, f MovementFilter) error {
	if uc.report == nil {
		return fmt.Errorf("generador de reportes no configurado")
	}
	groups, truncated, err := uc.groups(ctx, f)
	if err != nil {
		return err
	}
	title := "Movimientos de inventario"
	if truncated {
		title += fmt.Sprintf(" (parcial: últimas %d cabeceras)", uc.scanLimit)
	}
	return uc.report.GroupedMovementsPDF(w, title, groups)
}

// GetMovement devuelve una cabecera con sus líneas enriquecidas.
func (uc *MovementQueryUseCase) GetMovement(ctx context.Context, id string) (*entity.MovementHeader, error) {
	h, err := uc.movRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: leer movimiento: %v", domain.ErrPersistence, err)
	}
	if h == nil {
		return nil, domain.ErrNotFound
	}
	uc.enrich(ctx, []*entity.MovementHeader{h})
	return h, nil
}

// ListStock lista stock por ubicación (paginado) o por producto.
func (uc *MovementQueryUseCase) ListStock(ctx context.Context, locationID, productID string, limit, offset int) ([]*entity.StockRecord, error) {
	var (
		list []*entity.StockRecord
		err  error
	)
	switch {
	case locationID != "":
		list, err = uc.stockRepo.ListByLocation(ctx, locationID, limit, offset)
	case productID != "":
		list, err = uc.stockRepo.ListByProduct(ctx, productID)
	default:
		return nil, fmt.Errorf("%w: location_id o product_id requerido", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listar stock: %v", domain.ErrPersistence, err)
	}
	return list, nil
}

// groups lee hasta scanLimit cabeceras (pide una más para detectar el corte) y las agrupa.
func (uc *MovementQueryUseCase) groups(ctx context.Context, f MovementFilter) ([]entity.GroupedMovement, bool, error) {
	if f.MovementType != "" && !entity.IsValidMovementType(f.MovementType) {
		return nil, false, fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrInvalidInput, f.MovementType)
	}
	limit := 0
	if uc.scanLimit > 0 {
		limit = uc.scanLimit + 1
	}
	headers, err := uc.movRepo.Find(ctx, repository.MovementQuery{
		Type:           f.MovementType,
		FromLocationID: f.FromLocationID,
		ToLocationID:   f.ToLocationID,
		DateFrom:       f.DateFrom,
		DateTo:         f.DateTo,
		Limit:          limit,
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: leer movimientos: %v", domain.ErrPersistence, err)
	}
	truncated := uc.scanLimit > 0 && len(headers) > uc.scanLimit
	if truncated {
		headers = headers[:uc.scanLimit]
		uc.log.Warn().Int("limit", uc.scanLimit).Msg("reporte de movimientos truncado al límite de lectura")
	}

	uc.enrich(ctx, headers)
	orderNumbers := uc.orderNumbers(ctx, headers)

	groups := inventory.GroupMovements(headers, orderNumbers)
	return inventory.FilterGroups(groups, f.ProductID, f.Search), truncated, nil
}

// enrich completa nombres de ubicaciones y productos. Las fallas degradan el reporte, no lo abortan.
func (uc *MovementQueryUseCase) enrich(ctx context.Context, headers []*entity.MovementHeader) {
	locIDs := make(map[string]struct{})
	prodIDs := make(map[string]struct{})
	for _, h := range headers {
		if h.FromLocationID != "" {
			locIDs[h.FromLocationID] = struct{}{}
		}
		if h.ToLocationID != "" {
			locIDs[h.ToLocationID] = struct{}{}
		}
		for _, l := range h.Lines {
			prodIDs[l.ProductID] = struct{}{}
		}
	}

	locations := map[string]*entity.Location{}
	if len(locIDs) > 0 {
		found, err := uc.locationRepo.GetByIDs(ctx, keys(locIDs))
		if err != nil {
			uc.log.Warn().Err(err).Msg("no se pudieron resolver nombres de ubicaciones")
		} else {
			locations = found
		}
	}
	products := map[string]*entity.Product{}
	if len(prodIDs) > 0 {
		found, err := uc.productRepo.GetByIDs(ctx, keys(prodIDs))
		if err != nil {
			uc.log.Warn().Err(err).Msg("no se pudieron resolver nombres de productos")
		} else {
			products = found
		}
	}

	for _, h := range headers {
		if l, ok := locations[h.FromLocationID]; ok {
			h.FromLocationName = l.Name
		}
		if l, ok := locations[h.ToLocationID]; ok {
			h.ToLocationName = l.Name
		}
		for i := range h.Lines {
			if p, ok := products[h.Lines[i].ProductID]; ok {
				h.Lines[i].ProductName = p.Name
				h.Lines[i].ProductCode = p.Code
			}
		}
	}
}

func (uc *MovementQueryUseCase) orderNumbers(ctx context.Context, headers []*entity.MovementHeader) map[string]string {
	ids := make(map[string]struct{})
	for _, h := range headers {
		if h.RelatedOrderID != nil && *h.RelatedOrderID != "" {
			ids[*h.RelatedOrderID] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return map[string]string{}
	}
	numbers, err := uc.orderRepo.GetNumbers(ctx, keys(ids))
	if err != nil {
		uc.log.Warn().Err(err).Msg("no se pudieron resolver números de pedido")
		return map[string]string{}
	}
	return numbers
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// --- adaptadores HTTP ---

// FilterFromQuery convierte los parámetros de consulta en MovementFilter.
// Fechas: RFC3339 o YYYY-MM-DD (date_to con solo fecha incluye el día completo).
func FilterFromQuery(q dto.GroupedMovementQuery) (MovementFilter, error) {
	f := MovementFilter{
		MovementType:   strings.TrimSpace(q.MovementType),
		FromLocationID: strings.TrimSpace(q.FromLocationID),
		ToLocationID:   strings.TrimSpace(q.ToLocationID),
		ProductID:      strings.TrimSpace(q.ProductID),
		Search:         q.Search,
	}
	if q.DateFrom != "" {
		t, _, err := parseDate(q.DateFrom)
		if err != nil {
			return f, fmt.Errorf("%w: date_from inválida", domain.ErrInvalidInput)
		}
		f.DateFrom = &t
	}
	if q.DateTo != "" {
		t, dateOnly, err := parseDate(q.DateTo)
		if err != nil {
			return f, fmt.Errorf("%w: date_to inválida", domain.ErrInvalidInput)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.DateTo = &t
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return f, fmt.Errorf("%w: date_to anterior a date_from", domain.ErrInvalidInput)
	}
	return f, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t, true, err
}

// QueryGroupedMovementsFromRequest adapta la consulta HTTP al reporte agrupado.
func (uc *MovementQueryUseCase) QueryGroupedMovementsFromRequest(ctx context.Context, q dto.GroupedMovementQuery) (*dto.GroupedMovementPageResponse, error) {
	f, err := FilterFromQuery(q)
	if err != nil {
		return nil, err
	}
	page, err := uc.QueryGroupedMovements(ctx, f, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	out := &dto.GroupedMovementPageResponse{
		Groups:     make([]dto.GroupedMovementResponse, 0, len(page.Groups)),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Truncated:  page.Truncated,
	}
	for _, g := range page.Groups {
		out.Groups = append(out.Groups, toGroupedMovementResponse(g))
	}
	return out, nil
}

// GetMovementResponse adapta GetMovement al DTO de salida.
func (uc *MovementQueryUseCase) GetMovementResponse(ctx context.Context, id string) (*dto.MovementResponse, error) {
	h, err := uc.GetMovement(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &dto.MovementResponse{
		ID:               h.ID,
		Type:             h.Type,
		FromLocationID:   h.FromLocationID,
		FromLocationName: h.FromLocationName,
		ToLocationID:     h.ToLocationID,
		ToLocationName:   h.ToLocationName,
		RelatedOrderID:   h.RelatedOrderID,
		Notes:            h.Notes,
		CreatedBy:        h.CreatedBy,
		CreatedAt:        h.CreatedAt,
		Lines:            make([]dto.MovementLineResponse, 0, len(h.Lines)),
	}
	for _, l := range h.Lines {
		out.Lines = append(out.Lines, dto.MovementLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			ProductCode: l.ProductCode,
			Quantity:    l.Quantity,
		})
	}
	return out, nil
}

// ListStockResponse adapta ListStock al DTO de salida.
func (uc *MovementQueryUseCase) ListStockResponse(ctx context.Context, locationID, productID string, limit, offset int) (*dto.StockListResponse, error) {
	list, err := uc.ListStock(ctx, locationID, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.StockRecordResponse, 0, len(list))
	for _, r := range list {
		items = append(items, dto.StockRecordResponse{
			ProductID:  r.ProductID,
			LocationID: r.LocationID,
			Quantity:   r.Quantity,
			UpdatedBy:  r.UpdatedBy,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	return &dto.StockListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset, Total: len(items)},
	}, nil
}

func toGroupedMovementResponse(g entity.GroupedMovement) dto.GroupedMovementResponse {
	products := make([]dto.GroupedProductResponse, 0, len(g.Products))
	for _, p := range g.Products {
		products = append(products, dto.GroupedProductResponse{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			ProductCode: p.ProductCode,
			Quantity:    p.Quantity,
		})
	}
	return dto.GroupedMovementResponse{
		Key:              g.Key,
		RelatedOrderID:   g.RelatedOrderID,
		OrderNumber:      g.OrderNumber,
		MovementIDs:      g.MovementIDs,
		MovementTypes:    g.MovementTypes,
		FromLocationID:   g.FromLocationID,
		FromLocationName: g.FromLocationName,
		ToLocationID:     g.ToLocationID,
		ToLocationName:   g.ToLocationName,
		Products:         products,
		TotalQuantity:    g.TotalQuantity,
		TotalProducts:    g.TotalProducts,
		Notes:            g.Notes,
		CreatedBy:        g.CreatedBy,
		CreatedAt:        g.CreatedAt,
	}
}
