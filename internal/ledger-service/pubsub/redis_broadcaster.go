package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/esports-points-ledger/internal/ledger-service/ws"
	"github.com/radieske/esports-points-ledger/pkg/contracts/events"
)

// RedisBroadcaster publica as mudanças de aposta/saldo no canal que o hub
// WebSocket de cada réplica assina
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	return b.publish(ctx, ws.LedgerUpdate{UserID: e.UserID, Type: ws.UpdateBetPlaced, Payload: e})
}

func (b *RedisBroadcaster) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	return b.publish(ctx, ws.LedgerUpdate{UserID: e.UserID, Type: ws.UpdateBetSettled, Payload: e})
}

func (b *RedisBroadcaster) publish(ctx context.Context, upd ws.LedgerUpdate) error {
	payload, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
