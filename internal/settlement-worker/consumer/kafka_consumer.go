package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/internal/ledger/lifecycle"
	"github.com/radieske/esports-points-ledger/pkg/contracts/events"
)

// Reader é satisfeito por *kafka.Reader
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Settler interface {
	SettleMatch(ctx context.Context, match domain.Match) (lifecycle.Summary, error)
}

// Invalidator descarta a partida em cache antes da releitura
type Invalidator interface {
	Invalidate(ctx context.Context, matchID string) error
}

// Processor consome match_finished, relê a partida na fonte e liquida as apostas pending.
// Falhas são repetidas (a liquidação é idempotente) e, esgotadas as tentativas,
// a mensagem original vai para a DLQ.
type Processor struct {
	Log     *zap.Logger
	Reader  Reader
	Matches domain.MatchSource
	Cache   Invalidator // opcional
	Ledger  Settler
	DLQ     Writer // opcional

	Retries int
	Backoff time.Duration

	OnConsumed func()                  // métricas (counter++)
	OnSettled  func(lifecycle.Summary) // métricas
	OnDLQ      func()                  // métricas
	OnError    func(string)            // métricas por fase
}

// Run inicia o loop de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var ev events.MatchFinished
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.MatchID == "" {
			p.Log.Warn("invalid match_finished message", zap.ByteString("value", m.Value), zap.Error(err))
			p.fail("decode")
			continue
		}

		if err := p.process(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Error("settlement failed, sending to dlq", zap.String("matchId", ev.MatchID), zap.Error(err))
			p.toDLQ(ctx, m)
		}
	}
}

// process tenta até 1+Retries vezes com backoff linear; erros permanentes vão direto para a DLQ
func (p *Processor) process(ctx context.Context, ev events.MatchFinished) error {
	err := p.Handle(ctx, ev)
	for i := 0; err != nil && !permanent(err) && i < p.Retries; i++ {
		p.Log.Warn("settlement attempt failed",
			zap.String("matchId", ev.MatchID), zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * p.Backoff):
		}
		err = p.Handle(ctx, ev)
	}
	return err
}

// Handle liquida a partida do evento. O vencedor usado é o da fonte de partidas;
// o payload só dispara o processo.
func (p *Processor) Handle(ctx context.Context, ev events.MatchFinished) error {
	if p.Cache != nil {
		if err := p.Cache.Invalidate(ctx, ev.MatchID); err != nil {
			p.Log.Warn("match cache invalidate failed", zap.String("matchId", ev.MatchID), zap.Error(err))
			p.fail("cache")
		}
	}

	match, err := p.Matches.GetMatch(ctx, ev.MatchID)
	if err != nil {
		p.fail("match")
		return fmt.Errorf("get match %s: %w", ev.MatchID, err)
	}
	if !match.Closed() {
		p.fail("match")
		return fmt.Errorf("match %s not finished at source: %w", ev.MatchID, domain.ErrInvalidState)
	}
	if ev.Winner != "" && ev.Winner != match.Winner {
		p.Log.Warn("event winner differs from source, using source",
			zap.String("matchId", ev.MatchID), zap.String("event", ev.Winner), zap.String("source", match.Winner))
	}

	sum, err := p.Ledger.SettleMatch(ctx, match)
	if p.OnSettled != nil {
		p.OnSettled(sum)
	}
	if err != nil {
		p.fail("settle")
		return err
	}
	return nil
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	err := p.DLQ.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value, Time: time.Now()})
	if err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
}

func (p *Processor) fail(phase string) {
	if p.OnError != nil {
		p.OnError(phase)
	}
}

// permanent indica erros que não melhoram com nova tentativa
func permanent(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnknownTeam)
}
