package inventory

import (
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// BatchOutcome acumula el resultado de procesar un lote producto por producto
// (fold a pares éxitos/fallas).
type BatchOutcome struct {
	Processed []entity.BatchEntry
	Failed    []entity.FailedEntry
}

// Succeed registra un producto procesado.
func (o *BatchOutcome) Succeed(e entity.BatchEntry) {
	o.Processed = append(o.Processed, e)
}

// Fail registra un producto omitido.
func (o *BatchOutcome) Fail(f entity.FailedEntry) {
	o.Failed = append(o.Failed, f)
}

// Success indica si al menos un producto fue procesado.
func (o *BatchOutcome) Success() bool {
	return len(o.Processed) > 0
}

// Summary mensaje legible con el resultado agregado del lote.
func (o *BatchOutcome) Summary() string {
	if len(o.Processed) == 0 {
		return fmt.Sprintf("Ningún producto pudo ser procesado (%d con errores)", len(o.Failed))
	}
	msg := fmt.Sprintf("%d producto(s) procesado(s)", len(o.Processed))
	if len(o.Failed) > 0 {
		msg += fmt.Sprintf(". %d producto(s) omitido(s) por errores", len(o.Failed))
	}
	return msg
}
