package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/esports-points-ledger/pkg/contracts/events"
)

// MessageWriter é satisfeito por *kafka.Writer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica bet_placed e bet_settled, com userId como chave
// para manter a ordem dos eventos de um mesmo usuário na partição
type KafkaPublisher struct {
	Placed  MessageWriter
	Settled MessageWriter
}

func NewKafkaPublisher(placed, settled MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Placed: placed, Settled: settled}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Placed.WriteMessages(ctx, kafka.Message{Key: []byte(e.UserID), Value: b})
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Settled.WriteMessages(ctx, kafka.Message{Key: []byte(e.UserID), Value: b})
}
