package redisbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
)

var _ usecase.ProvisionLocker = (*Locker)(nil)

// Locker lock distribuido sobre redislock.
type Locker struct {
	client *redislock.Client
	retry  time.Duration
	log    zerolog.Logger
}

// NewLocker construye el locker. client es el cliente Redis ya conectado.
func NewLocker(client redislock.RedisClient, log zerolog.Logger) *Locker {
	return &Locker{client: redislock.New(client), retry: 100 * time.Millisecond, log: log}
}

// Lock obtiene el lock reintentando hasta que ctx expire. unlock libera sin propagar errores.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("lock %s no obtenido: %w", key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("obtener lock %s: %w", key, err)
	}
	return func() {
		// el ctx del llamador puede estar cancelado al liberar
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lock.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el lock")
		}
	}, nil
}
