// Package memorytest es soporte de pruebas: implementa los puertos de persistencia en memoria,
// con inyección de fallas por operación para probar los caminos de compensación.
// No se usa en el binario; solo lo importan archivos _test.
package memorytest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Op identifica una operación del almacén sobre la que se puede inyectar una falla.
type Op string

const (
	OpLocationCreate Op = "location.create"
	OpLocationGet    Op = "location.get"
	OpStockGet       Op = "stock.get"
	OpStockAdjust    Op = "stock.adjust"
	OpHeaderCreate   Op = "header.create"
	OpHeaderDelete   Op = "header.delete"
	OpLineCreate     Op = "line.create"
	OpLineDelete     Op = "line.delete"
	OpMovementFind   Op = "movement.find"
	OpProductGet     Op = "product.get"
	OpOrderNumbers   Op = "order.numbers"
)

// ErrInjected error por defecto de las fallas inyectadas.
var ErrInjected = errors.New("memorytest: falla inyectada")

type faultKey struct {
	op  Op
	key string
}

type fault struct {
	err  error
	skip int
}

// Store almacén en memoria seguro para uso concurrente.
//
// Claves de falla: stock = productID+"@"+locationID, línea = productID, producto = productID,
// cabecera = id, ubicación (create) = código. Clave vacía aplica a cualquier llamada de la operación.
type Store struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	locations map[string]*entity.Location
	stock     map[string]*entity.StockRecord
	headers   map[string]*entity.MovementHeader
	lines     []*entity.MovementLine
	products  map[string]*entity.Product
	orders    map[string]string
	faults    map[faultKey]*fault
	calls     map[Op]int
	now       func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		locations: make(map[string]*entity.Location),
		stock:     make(map[string]*entity.StockRecord),
		headers:   make(map[string]*entity.MovementHeader),
		products:  make(map[string]*entity.Product),
		orders:    make(map[string]string),
		faults:    make(map[faultKey]*fault),
		calls:     make(map[Op]int),
		now:       time.Now,
	}
}

// SetClock fija la fuente de tiempo (para pruebas deterministas).
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailOn hace que op falle con err (ErrInjected si es nil) cuando la clave coincide.
func (s *Store) FailOn(op Op, key string, err error) {
	s.FailAfter(op, key, 0, err)
}

// FailAfter deja pasar las primeras n llamadas coincidentes y luego falla con err.
func (s *Store) FailAfter(op Op, key string, n int, err error) {
	if err == nil {
		err = ErrInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[faultKey{op: op, key: key}] = &fault{err: err, skip: n}
}

// ClearFaults elimina todas las fallas inyectadas.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[faultKey]*fault)
}

// Calls número de invocaciones registradas de op.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// check registra la llamada y devuelve la falla inyectada, si hay. Requiere s.mu tomado.
func (s *Store) check(op Op, key string) error {
	s.calls[op]++
	f, ok := s.faults[faultKey{op: op, key: key}]
	if !ok {
		f, ok = s.faults[faultKey{op: op}]
	}
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	return f.err
}

// Locations devuelve el repositorio de ubicaciones.
func (s *Store) Locations() repository.LocationRepository { return &locationRepo{s: s} }

// Stock devuelve el repositorio de stock.
func (s *Store) Stock() repository.StockRepository { return &stockRepo{s: s} }

// Movements devuelve el repositorio de movimientos.
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{s: s} }

// Products devuelve el catálogo de productos.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }

// Orders devuelve el repositorio de pedidos.
func (s *Store) Orders() repository.OrderRepository { return &orderRepo{s: s} }

// RunLocations ejecuta fn como unidad: si fn falla, las ubicaciones vuelven al estado previo.
func (s *Store) RunLocations(ctx context.Context, fn func(repository.LocationRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[string]*entity.Location, len(s.locations))
	for id, l := range s.locations {
		cp := *l
		snapshot[id] = &cp
	}
	s.mu.Unlock()

	if err := fn(s.Locations()); err != nil {
		s.mu.Lock()
		s.locations = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- helpers de siembra e inspección ---

// PutProduct agrega un producto al catálogo.
func (s *Store) PutProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// PutOrder registra el número legible de un pedido.
func (s *Store) PutOrder(id, number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id] = number
}

// PutLocation guarda una ubicación tal cual (asigna ID si falta).
func (s *Store) PutLocation(l entity.Location) *entity.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	s.locations[l.ID] = &l
	cp := l
	return &cp
}

// SetStock fija la cantidad de un producto en una ubicación.
func (s *Store) SetStock(productID, locationID string, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[stockKey(productID, locationID)] = &entity.StockRecord{
		ProductID: productID, LocationID: locationID, Quantity: qty, UpdatedAt: s.now(),
	}
}

// StockOf cantidad actual (0 si no hay registro).
func (s *Store) StockOf(productID, locationID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.stock[stockKey(productID, locationID)]; ok {
		return r.Quantity
	}
	return 0
}

// HasStockRecord indica si existe registro para el par producto/ubicación.
func (s *Store) HasStockRecord(productID, locationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stock[stockKey(productID, locationID)]
	return ok
}

// PutHeader guarda una cabecera con sus líneas (para sembrar reportes).
func (s *Store) PutHeader(h entity.MovementHeader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := h.Lines
	h.Lines = nil
	s.headers[h.ID] = &h
	for i := range lines {
		l := lines[i]
		l.HeaderID = h.ID
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		s.lines = append(s.lines, &l)
	}
}

// HeaderCount número de cabeceras persistidas.
func (s *Store) HeaderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.headers)
}

// HeaderExists indica si la cabecera sigue persistida.
func (s *Store) HeaderExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.headers[id]
	return ok
}

// LinesOf líneas persistidas de una cabecera, en orden de inserción.
func (s *Store) LinesOf(headerID string) []entity.MovementLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linesOf(headerID)
}

// LocationCount número de ubicaciones (activas e inactivas) con el código dado.
func (s *Store) LocationCount(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.locations {
		if l.Code == code {
			n++
		}
	}
	return n
}

func (s *Store) linesOf(headerID string) []entity.MovementLine {
	var out []entity.MovementLine
	for _, l := range s.lines {
		if l.HeaderID == headerID {
			out = append(out, *l)
		}
	}
	return out
}

func stockKey(productID, locationID string) string {
	return productID + "@" + locationID
}

// --- ubicaciones ---

type locationRepo struct{ s *Store }

func (r *locationRepo) Create(ctx context.Context, location *entity.Location) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpLocationCreate, location.Code); err != nil {
		return err
	}
	if location.Active && s.activeByCode(location.Code) != nil {
		return domain.ErrDuplicate
	}
	if location.ID == "" {
		location.ID = uuid.New().String()
	}
	cp := *location
	s.locations[cp.ID] = &cp
	return nil
}

func (r *locationRepo) CreateIfAbsent(ctx context.Context, location *entity.Location) (*entity.Location, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.activeByCode(location.Code); existing != nil {
		cp := *existing
		return &cp, false, nil
	}
	if err := s.check(OpLocationCreate, location.Code); err != nil {
		return nil, false, err
	}
	if location.ID == "" {
		location.ID = uuid.New().String()
	}
	cp := *location
	s.locations[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (r *locationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpLocationGet, id); err != nil {
		return nil, err
	}
	l, ok := s.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *locationRepo) GetActiveByCode(ctx context.Context, code string) (*entity.Location, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.activeByCode(code)
	if l == nil {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *locationRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Location, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpLocationGet, ""); err != nil {
		return nil, err
	}
	out := make(map[string]*entity.Location, len(ids))
	for _, id := range ids {
		if l, ok := s.locations[id]; ok {
			cp := *l
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *locationRepo) Update(ctx context.Context, location *entity.Location) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[location.ID]
	if !ok {
		return domain.ErrNotFound
	}
	l.Name = location.Name
	l.Description = location.Description
	l.UpdatedAt = location.UpdatedAt
	return nil
}

func (r *locationRepo) List(ctx context.Context, includeInactive bool, limit, offset int) ([]*entity.Location, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*entity.Location
	for _, l := range s.locations {
		if !includeInactive && !l.Active {
			continue
		}
		cp := *l
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	if offset >= len(all) {
		return []*entity.Location{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *locationRepo) Retire(ctx context.Context, id string, at time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Active = false
	l.DeletedAt = &at
	l.UpdatedAt = at
	return nil
}

func (s *Store) activeByCode(code string) *entity.Location {
	for _, l := range s.locations {
		if l.Active && l.Code == code {
			return l
		}
	}
	return nil
}

// --- stock ---

type stockRepo struct{ s *Store }

func (r *stockRepo) Get(ctx context.Context, productID, locationID string) (*entity.StockRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stockKey(productID, locationID)
	if err := s.check(OpStockGet, key); err != nil {
		return nil, err
	}
	if rec, ok := s.stock[key]; ok {
		cp := *rec
		return &cp, nil
	}
	return &entity.StockRecord{ProductID: productID, LocationID: locationID}, nil
}

func (r *stockRepo) Adjust(ctx context.Context, productID, locationID string, delta int64, allowNegative bool, actor string) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	key := stockKey(productID, locationID)
	if err := s.check(OpStockAdjust, key); err != nil {
		return 0, err
	}
	var current int64
	rec, ok := s.stock[key]
	if ok {
		current = rec.Quantity
	}
	next := current + delta
	if delta < 0 && next < 0 && !allowNegative {
		return current, domain.ErrInsufficientStock
	}
	if !ok {
		rec = &entity.StockRecord{ProductID: productID, LocationID: locationID}
		s.stock[key] = rec
	}
	rec.Quantity = next
	rec.UpdatedBy = actor
	rec.UpdatedAt = s.now()
	return next, nil
}

func (r *stockRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.StockRecord
	for _, rec := range s.stock {
		if rec.LocationID == locationID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	if offset >= len(out) {
		return []*entity.StockRecord{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *stockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.StockRecord
	for _, rec := range s.stock {
		if rec.ProductID == productID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

// --- movimientos ---

type movementRepo struct{ s *Store }

func (r *movementRepo) CreateHeader(ctx context.Context, header *entity.MovementHeader) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpHeaderCreate, header.Type); err != nil {
		return err
	}
	if header.ID == "" {
		header.ID = uuid.New().String()
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = s.now()
	}
	cp := *header
	cp.Lines = nil
	s.headers[cp.ID] = &cp
	return nil
}

func (r *movementRepo) DeleteHeader(ctx context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpHeaderDelete, id); err != nil {
		return err
	}
	delete(s.headers, id)
	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.HeaderID != id {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	return nil
}

func (r *movementRepo) CreateLine(ctx context.Context, line *entity.MovementLine) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpLineCreate, line.ProductID); err != nil {
		return err
	}
	if _, ok := s.headers[line.HeaderID]; !ok {
		return domain.ErrNotFound
	}
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	cp := *line
	s.lines = append(s.lines, &cp)
	return nil
}

func (r *movementRepo) DeleteLine(ctx context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.lines {
		if l.ID != id {
			continue
		}
		if err := s.check(OpLineDelete, l.ProductID); err != nil {
			return err
		}
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		return nil
	}
	return nil
}

func (r *movementRepo) GetByID(ctx context.Context, id string) (*entity.MovementHeader, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.headers[id]
	if !ok {
		return nil, nil
	}
	cp := *h
	cp.Lines = s.linesOf(id)
	return &cp, nil
}

func (r *movementRepo) Find(ctx context.Context, q repository.MovementQuery) ([]*entity.MovementHeader, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpMovementFind, ""); err != nil {
		return nil, err
	}
	var out []*entity.MovementHeader
	for _, h := range s.headers {
		if q.Type != "" && h.Type != q.Type {
			continue
		}
		if q.FromLocationID != "" && h.FromLocationID != q.FromLocationID {
			continue
		}
		if q.ToLocationID != "" && h.ToLocationID != q.ToLocationID {
			continue
		}
		if q.DateFrom != nil && h.CreatedAt.Before(*q.DateFrom) {
			continue
		}
		if q.DateTo != nil && h.CreatedAt.After(*q.DateTo) {
			continue
		}
		cp := *h
		cp.Lines = s.linesOf(h.ID)
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// --- catálogo externo ---

type productRepo struct{ s *Store }

func (r *productRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpProductGet, id); err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *productRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpProductGet, ""); err != nil {
		return nil, err
	}
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

type orderRepo struct{ s *Store }

func (r *orderRepo) GetNumbers(ctx context.Context, ids []string) (map[string]string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpOrderNumbers, ""); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if n, ok := s.orders[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}
