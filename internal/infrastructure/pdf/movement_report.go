// Package pdf genera el reporte imprimible de movimientos de inventario agrupados.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título del reporte       │  Fecha de generación     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  GRUPO: Pedido / Movimiento + tipos + fecha                  │
//	│         Origen -> Destino | Registrado por                   │
//	│  TABLA: Código | Producto | Cantidad                          │
//	│  TOTAL del grupo + notas                                     │
//	│  ... (un bloque por grupo)                                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: grupos y unidades totales                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

var _ inventory.ReportGenerator = (*MovementReportGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MovementReportGenerator implementa inventory.ReportGenerator usando Maroto v2.
type MovementReportGenerator struct {
	now func() time.Time
}

// NewMovementReportGenerator construye el generador.
func NewMovementReportGenerator() *MovementReportGenerator {
	return &MovementReportGenerator{now: time.Now}
}

// GroupedMovementsPDF escribe el PDF en w.
func (g *MovementReportGenerator) GroupedMovementsPDF(w io.Writer, title string, groups []entity.GroupedMovement) error {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(title, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	if len(groups) == 0 {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("Sin movimientos para los filtros seleccionados", props.Text{
				Size: 9, Align: align.Center, Color: colorGray, Top: 3,
			}),
		)))
	}

	var units int64
	for _, grp := range groups {
		m.AddRows(groupRows(grp)...)
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.2}))
		units += grp.TotalQuantity
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(summaryRow(len(groups), units))

	doc, err := m.Generate()
	if err != nil {
		return fmt.Errorf("pdf: generar documento: %w", err)
	}
	if _, err := w.Write(doc.GetBytes()); err != nil {
		return fmt.Errorf("pdf: escribir documento: %w", err)
	}
	return nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(title string, at time.Time) core.Row {
	return row.New(14).Add(
		col.New(8).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(4).Add(
			text.New("Generado: "+at.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 3, Color: colorGray,
			}),
		),
	)
}

// groupRows: encabezado del grupo, tabla de productos y total.
func groupRows(grp entity.GroupedMovement) []core.Row {
	rows := []core.Row{
		row.New(12).Add(
			col.New(8).Add(
				text.New(groupLabel(grp), props.Text{
					Style: fontstyle.Bold, Size: 10, Color: colorPrimary, Top: 1,
				}),
				text.New(fmt.Sprintf("%s -> %s   |   Registrado por: %s",
					nonEmpty(grp.FromLocationName, "-"),
					nonEmpty(grp.ToLocationName, "-"),
					nonEmpty(grp.CreatedBy, "-"),
				), props.Text{Size: 8, Top: 7, Color: colorGray}),
			),
			col.New(4).Add(
				text.New(strings.Join(grp.MovementTypes, ", "), props.Text{
					Size: 8, Align: align.Right, Top: 1,
				}),
				text.New(grp.CreatedAt.Format("02/01/2006 15:04"), props.Text{
					Size: 8, Align: align.Right, Top: 7, Color: colorGray,
				}),
			),
		),
		tableHeaderRow(),
	}

	for _, p := range grp.Products {
		rows = append(rows, row.New(6).Add(
			col.New(3).Add(text.New(nonEmpty(p.ProductCode, p.ProductID), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(7).Add(text.New(nonEmpty(p.ProductName, "-"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatUnits(p.Quantity), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}

	rows = append(rows, row.New(7).Add(
		col.New(10).Add(text.New(fmt.Sprintf("%d productos", grp.TotalProducts), props.Text{
			Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1, Right: 2,
		})),
		col.New(2).Add(text.New(formatUnits(grp.TotalQuantity), props.Text{
			Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1, Right: 1,
		})),
	))
	if grp.Notes != "" {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New("Notas: "+grp.Notes, props.Text{Size: 7, Color: colorGray, Top: 1}),
		)))
	}
	return rows
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 1, Left: 1, Right: 1,
		}))
	}
	return row.New(6).Add(
		h("Código", 3, align.Left),
		h("Producto", 7, align.Left),
		h("Cantidad", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func summaryRow(groups int, units int64) core.Row {
	return row.New(10).Add(
		col.New(8),
		col.New(4).Add(text.New(
			fmt.Sprintf("Grupos: %d   |   Unidades: %s", groups, formatUnits(units)),
			props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 2, Color: colorPrimary},
		)),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func groupLabel(grp entity.GroupedMovement) string {
	switch {
	case grp.OrderNumber != "":
		return "Pedido " + grp.OrderNumber
	case grp.RelatedOrderID != nil:
		return "Pedido " + *grp.RelatedOrderID
	case len(grp.MovementIDs) > 0:
		return "Movimiento " + grp.MovementIDs[0]
	}
	return grp.Key
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatUnits inserta puntos de miles. Ej: 25000 → "25.000", -1500 → "-1.500"
func formatUnits(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, len(s)+len(s)/3)
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
