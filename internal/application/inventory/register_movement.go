package inventory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// RegisterFromRequest adapta el request HTTP al caso de uso por lotes (entrada, salida o transferencia).
// userID queda como created_by de la cabecera.
func (uc *BatchMovementUseCase) RegisterFromRequest(ctx context.Context, op Operation, userID string, in dto.BatchMovementRequest) (*dto.BatchMovementResponse, error) {
	req := BatchRequest{
		Entries:        toBatchEntries(in.Entries),
		MovementType:   in.MovementType,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Notes:          in.Notes,
		RelatedOrderID: in.RelatedOrderID,
		Actor:          userID,
	}
	res, err := uc.Execute(ctx, op, req)
	if err != nil {
		return nil, err
	}
	return &dto.BatchMovementResponse{
		Success:             res.Success,
		Message:             res.Message,
		MovementID:          res.MovementID,
		InventoryMovementID: res.InventoryMovementID,
		FailedEntries:       toFailedEntryResponses(res.FailedEntries),
	}, nil
}

func toBatchEntries(in []dto.BatchEntryRequest) []entity.BatchEntry {
	out := make([]entity.BatchEntry, 0, len(in))
	for _, e := range in {
		out = append(out, entity.BatchEntry{ProductID: e.ProductID, Quantity: e.Quantity})
	}
	return out
}

func toFailedEntryResponses(in []entity.FailedEntry) []dto.FailedEntryResponse {
	if len(in) == 0 {
		return nil
	}
	out := make([]dto.FailedEntryResponse, 0, len(in))
	for _, f := range in {
		out = append(out, dto.FailedEntryResponse{
			ProductID: f.ProductID,
			Quantity:  f.Quantity,
			Code:      f.Code,
			Reason:    f.Reason,
		})
	}
	return out
}
