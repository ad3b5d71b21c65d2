package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

var (
	_ inventory.ViewInvalidator = (*Publisher)(nil)
	_ inventory.Notifier        = (*Publisher)(nil)
)

// publishClient subconjunto de redis.Cmdable usado por el publicador.
type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// InvalidationMessage payload publicado en el canal de vistas.
type InvalidationMessage struct {
	Views []string  `json:"views"`
	At    time.Time `json:"at"`
}

// Publisher publica invalidaciones de vistas y eventos de pedidos por Redis pub/sub.
type Publisher struct {
	client        publishClient
	viewsChannel  string
	notifyChannel string
	now           func() time.Time
}

// NewPublisher construye el publicador sobre un cliente Redis (o cualquier Cmdable).
func NewPublisher(client publishClient, viewsChannel, notifyChannel string) *Publisher {
	return &Publisher{
		client:        client,
		viewsChannel:  viewsChannel,
		notifyChannel: notifyChannel,
		now:           time.Now,
	}
}

// Invalidate publica las vistas a refrescar.
func (p *Publisher) Invalidate(ctx context.Context, views ...string) error {
	if len(views) == 0 {
		return nil
	}
	return p.publish(ctx, p.viewsChannel, InvalidationMessage{Views: views, At: p.now().UTC()})
}

// NotifyOrderMovement publica el evento de movimiento de un pedido.
func (p *Publisher) NotifyOrderMovement(ctx context.Context, event inventory.OrderMovementEvent) error {
	return p.publish(ctx, p.notifyChannel, event)
}

func (p *Publisher) publish(ctx context.Context, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", channel, err)
	}
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
