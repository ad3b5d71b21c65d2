package inventory

import (
	"sort"
	"strings"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

const notesSeparator = " | "

// GroupKey clave de agrupación: el pedido relacionado o, en lotes manuales, la propia cabecera.
func GroupKey(h *entity.MovementHeader) string {
	if h.RelatedOrderID != nil && *h.RelatedOrderID != "" {
		return "order:" + *h.RelatedOrderID
	}
	return "movement:" + h.ID
}

// GroupMovements agrupa cabeceras (ya enriquecidas) por pedido relacionado.
// Dentro de un grupo suma cantidades y líneas de todas las cabeceras, concatena notas distintas en
// orden cronológico y toma ubicaciones/autor de la cabecera más reciente.
// El resultado se ordena por fecha de creación descendente.
func GroupMovements(headers []*entity.MovementHeader, orderNumbers map[string]string) []entity.GroupedMovement {
	ordered := make([]*entity.MovementHeader, 0, len(headers))
	for _, h := range headers {
		if h != nil {
			ordered = append(ordered, h)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	index := make(map[string]int)
	groups := make([]entity.GroupedMovement, 0)
	productPos := make(map[string]map[string]int)
	seenNotes := make(map[string]map[string]bool)
	notes := make(map[string][]string)

	for _, h := range ordered {
		key := GroupKey(h)
		pos, ok := index[key]
		if !ok {
			g := entity.GroupedMovement{Key: key}
			if h.RelatedOrderID != nil && *h.RelatedOrderID != "" {
				id := *h.RelatedOrderID
				g.RelatedOrderID = &id
				g.OrderNumber = orderNumbers[id]
			}
			groups = append(groups, g)
			pos = len(groups) - 1
			index[key] = pos
			productPos[key] = make(map[string]int)
			seenNotes[key] = make(map[string]bool)
		}
		g := &groups[pos]

		g.MovementIDs = append(g.MovementIDs, h.ID)
		if !containsString(g.MovementTypes, h.Type) {
			g.MovementTypes = append(g.MovementTypes, h.Type)
		}
		g.FromLocationID, g.FromLocationName = h.FromLocationID, h.FromLocationName
		g.ToLocationID, g.ToLocationName = h.ToLocationID, h.ToLocationName
		g.CreatedBy = h.CreatedBy
		if h.CreatedAt.After(g.CreatedAt) {
			g.CreatedAt = h.CreatedAt
		}

		for _, l := range h.Lines {
			g.TotalQuantity += l.Quantity
			g.TotalProducts++
			if i, ok := productPos[key][l.ProductID]; ok {
				g.Products[i].Quantity += l.Quantity
				continue
			}
			productPos[key][l.ProductID] = len(g.Products)
			g.Products = append(g.Products, entity.GroupedProduct{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				ProductCode: l.ProductCode,
				Quantity:    l.Quantity,
			})
		}

		n := strings.TrimSpace(h.Notes)
		if n != "" && !seenNotes[key][n] {
			seenNotes[key][n] = true
			notes[key] = append(notes[key], n)
		}
	}

	for i := range groups {
		groups[i].Notes = strings.Join(notes[groups[i].Key], notesSeparator)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].Key < groups[j].Key
		}
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
	return groups
}

// FilterGroups aplica los filtros en memoria sobre los grupos ya calculados:
// productID exige que el grupo contenga el producto; search busca (sin tildes ni mayúsculas)
// en notas, número de pedido, nombre y código de producto.
func FilterGroups(groups []entity.GroupedMovement, productID, search string) []entity.GroupedMovement {
	productID = strings.TrimSpace(productID)
	needle := Fold(strings.TrimSpace(search))
	if productID == "" && needle == "" {
		return groups
	}
	out := make([]entity.GroupedMovement, 0, len(groups))
	for _, g := range groups {
		if productID != "" && !groupHasProduct(g, productID) {
			continue
		}
		if needle != "" && !groupMatches(g, needle) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Paginate devuelve la página solicitada (1-based), el total y el número de páginas.
func Paginate(groups []entity.GroupedMovement, page, pageSize int) (items []entity.GroupedMovement, total, totalPages int) {
	total = len(groups)
	if pageSize <= 0 {
		return []entity.GroupedMovement{}, total, 0
	}
	totalPages = total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	if page < 1 {
		page = 1
	}
	// fuera de rango antes de multiplicar: page*pageSize puede desbordar int
	if page > totalPages {
		return []entity.GroupedMovement{}, total, totalPages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	return groups[start:end], total, totalPages
}

func groupHasProduct(g entity.GroupedMovement, productID string) bool {
	for _, p := range g.Products {
		if p.ProductID == productID {
			return true
		}
	}
	return false
}

func groupMatches(g entity.GroupedMovement, needle string) bool {
	if strings.Contains(Fold(g.Notes), needle) || strings.Contains(Fold(g.OrderNumber), needle) {
		return true
	}
	for _, p := range g.Products {
		if strings.Contains(Fold(p.ProductName), needle) || strings.Contains(Fold(p.ProductCode), needle) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
