// Package sweeper reconcilia periodicamente partidas encerradas que ainda têm
// apostas pending (evento perdido, DLQ, falha parcial).
package sweeper

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/internal/ledger/lifecycle"
)

// DefaultSchedule roda a cada minuto (formato com segundos)
const DefaultSchedule = "0 */1 * * * *"

type PendingLister interface {
	PendingMatchIDs(ctx context.Context) ([]string, error)
}

type Settler interface {
	SettleMatch(ctx context.Context, match domain.Match) (lifecycle.Summary, error)
}

// Invalidator remove a partida do cache de leitura após liquidar
type Invalidator interface {
	Invalidate(ctx context.Context, matchID string) error
}

type Sweeper struct {
	Log     *zap.Logger
	Store   PendingLister
	Matches domain.MatchSource // fonte de registro, sem cache
	Cache   Invalidator        // opcional
	Ledger  Settler

	OnSwept func(settledMatches int) // métricas
}

// Sweep liquida toda partida encerrada na fonte que ainda tenha apostas pending.
// Retorna quantas partidas foram processadas sem erro.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.Store.PendingMatchIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending matches: %w", err)
	}

	var (
		settled int
		errs    []error
	)
	for _, id := range ids {
		match, err := s.Matches.GetMatch(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("get match %s: %w", id, err))
			continue
		}
		if !match.Closed() || match.Winner == "" {
			continue
		}
		if s.Cache != nil {
			if err := s.Cache.Invalidate(ctx, id); err != nil {
				s.Log.Warn("invalidate match cache", zap.String("matchId", id), zap.Error(err))
			}
		}
		sum, err := s.Ledger.SettleMatch(ctx, match)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		settled++
		s.Log.Info("sweep settled match", zap.String("matchId", id), zap.Int("bets", sum.Total))
	}

	if s.OnSwept != nil {
		s.OnSwept(settled)
	}
	return settled, errors.Join(errs...)
}

// Start agenda o Sweep no cron e o inicia; quem chama deve dar Stop no cron retornado
func (s *Sweeper) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(schedule, func() {
		if n, err := s.Sweep(ctx); err != nil {
			s.Log.Warn("sweep finished with errors", zap.Int("settled", n), zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
