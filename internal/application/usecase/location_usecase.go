package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// provisionLockKey clave del lock distribuido de aprovisionamiento.
const provisionLockKey = "inventory:locations:provision"

const provisionLockTTL = 10 * time.Second

// LocationTxRunner ejecuta fn con un repositorio de ubicaciones atado a una transacción.
// Si fn devuelve error no queda ninguna escritura.
type LocationTxRunner interface {
	RunLocations(ctx context.Context, fn func(repo repository.LocationRepository) error) error
}

// ProvisionLocker serializa el aprovisionamiento entre instancias. Puede ser nil.
type ProvisionLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// LocationUseCase casos de uso del registro de ubicaciones.
type LocationUseCase struct {
	repo   repository.LocationRepository
	tx     LocationTxRunner
	locker ProvisionLocker
	log    zerolog.Logger
}

// NewLocationUseCase construye el caso de uso. locker es opcional.
func NewLocationUseCase(repo repository.LocationRepository, tx LocationTxRunner, locker ProvisionLocker, log zerolog.Logger) *LocationUseCase {
	return &LocationUseCase{repo: repo, tx: tx, locker: locker, log: log}
}

// EnsureLocations devuelve código -> id de cada ubicación requerida, creando las que no existan activas.
// Es idempotente y todo-o-nada: ante cualquier falla no se devuelve mapa ni quedan ubicaciones nuevas.
func (uc *LocationUseCase) EnsureLocations(ctx context.Context, specs []entity.LocationSpec) (map[string]string, error) {
	for _, s := range specs {
		if strings.TrimSpace(s.Code) == "" || strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("%w: ubicación requerida sin código o nombre", domain.ErrInvalidInput)
		}
	}
	if len(specs) == 0 {
		return map[string]string{}, nil
	}

	if uc.locker != nil {
		unlock, err := uc.locker.Lock(ctx, provisionLockKey, provisionLockTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: lock de aprovisionamiento: %v", domain.ErrPersistence, err)
		}
		defer unlock()
	}

	var ids map[string]string
	var created []string
	err := uc.tx.RunLocations(ctx, func(repo repository.LocationRepository) error {
		ids = make(map[string]string, len(specs))
		created = created[:0]
		now := time.Now()
		for _, s := range specs {
			loc := &entity.Location{
				ID:          uuid.New().String(),
				Code:        s.Code,
				Name:        s.Name,
				Description: s.Description,
				Active:      true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			stored, isNew, err := repo.CreateIfAbsent(ctx, loc)
			if err != nil {
				return fmt.Errorf("ubicación %s: %w", s.Code, err)
			}
			ids[s.Code] = stored.ID
			if isNew {
				created = append(created, s.Code)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: aprovisionar ubicaciones: %v", domain.ErrPersistence, err)
	}
	if len(created) > 0 {
		uc.log.Info().Strs("codes", created).Msg("ubicaciones aprovisionadas")
	}
	return ids, nil
}

// Create crea una nueva ubicación activa. El código debe ser único entre las activas.
func (uc *LocationUseCase) Create(ctx context.Context, in dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now()
	location := &entity.Location{
		ID:          uuid.New().String(),
		Code:        code,
		Name:        name,
		Description: in.Description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, location); err != nil {
		return nil, err
	}
	return toLocationResponse(location), nil
}

// GetByID obtiene una ubicación por ID (incluye retiradas).
func (uc *LocationUseCase) GetByID(ctx context.Context, id string) (*dto.LocationResponse, error) {
	location, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, nil
	}
	return toLocationResponse(location), nil
}

// Update actualiza nombre y descripción.
func (uc *LocationUseCase) Update(ctx context.Context, id string, in dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	location, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, nil
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.ErrInvalidInput
		}
		location.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		location.Description = *in.Description
	}
	location.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, location); err != nil {
		return nil, err
	}
	return toLocationResponse(location), nil
}

// List lista ubicaciones con paginación.
func (uc *LocationUseCase) List(ctx context.Context, includeInactive bool, limit, offset int) (*dto.LocationListResponse, error) {
	list, err := uc.repo.List(ctx, includeInactive, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, *toLocationResponse(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Retire retira (soft delete) una ubicación. Retirar una ya retirada no es error.
func (uc *LocationUseCase) Retire(ctx context.Context, id string) error {
	location, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if location == nil {
		return domain.ErrNotFound
	}
	if !location.Active {
		return nil
	}
	return uc.repo.Retire(ctx, id, time.Now())
}

func toLocationResponse(l *entity.Location) *dto.LocationResponse {
	if l == nil {
		return nil
	}
	return &dto.LocationResponse{
		ID:          l.ID,
		Code:        l.Code,
		Name:        l.Name,
		Description: l.Description,
		Active:      l.Active,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		DeletedAt:   l.DeletedAt,
	}
}
