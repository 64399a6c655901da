package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/pkg/contracts/events"
)

// Summary resume a liquidação de uma partida
type Summary struct {
	MatchID string
	Total   int
	Won     int
	Lost    int
	Skipped int // já liquidadas por outra execução
	Failed  int
	PaidOut int64
}

// SettleBet liquida uma aposta pending contra o time vencedor (outcome).
// Idempotente: uma aposta já liquidada retorna ErrAlreadySettled sem alterar nada.
func (m *Manager) SettleBet(ctx context.Context, betID, outcome string) (bet domain.Bet, err error) {
	defer func() { m.observe(OpSettle, err) }()

	if outcome == "" {
		return domain.Bet{}, domain.ErrUnknownTeam
	}

	var balance int64
	err = m.retry(ctx, OpSettle, func() error {
		cur, err := m.store.GetBet(ctx, betID)
		if err != nil {
			return err
		}
		if !cur.Pending() {
			return domain.ErrAlreadySettled
		}
		user, err := m.store.GetUser(ctx, cur.UserID)
		if err != nil {
			return err
		}

		nb := cur
		next := user
		entry := "loss"
		if outcome == cur.ChosenTeam {
			// paga o ganho calculado na aposta/aumento, sem recalcular
			nb.Status = domain.BetWon
			nb.SettledAmount = cur.PotentialPayout
			next.Points += cur.PotentialPayout
			next.WonBets++
			entry = "payout"
		} else {
			nb.Status = domain.BetLost
			nb.SettledAmount = 0
		}

		bet, err = m.store.Commit(ctx, domain.Change{User: user, NewUser: next, Bet: &cur, NewBet: nb, Entry: entry})
		balance = next.Points
		return err
	})
	if err != nil {
		return domain.Bet{}, err
	}

	m.Log.Info("bet settled",
		zap.String("betId", bet.ID),
		zap.String("userId", bet.UserID),
		zap.String("matchId", bet.MatchID),
		zap.String("status", string(bet.Status)),
		zap.Int64("settledAmount", bet.SettledAmount),
	)
	if m.publ != nil {
		if perr := m.publ.PublishBetSettled(ctx, events.BetSettled{
			BetID:         bet.ID,
			UserID:        bet.UserID,
			MatchID:       bet.MatchID,
			Status:        string(bet.Status),
			SettledAmount: bet.SettledAmount,
			BalanceAfter:  balance,
			Ts:            time.Now(),
		}); perr != nil {
			m.Log.Warn("publish bet_settled failed", zap.String("betId", bet.ID), zap.Error(perr))
		}
	}
	return bet, nil
}

// SettleMatch liquida todas as apostas pending de uma partida encerrada.
// Usuários diferentes são liquidados em paralelo (até Concurrency); as apostas
// de um mesmo usuário, em sequência. Uma falha não interrompe as demais e
// uma nova execução só processa o que ainda estiver pending.
func (m *Manager) SettleMatch(ctx context.Context, match domain.Match) (Summary, error) {
	sum := Summary{MatchID: match.ID}
	if !match.Closed() || match.Winner == "" {
		return sum, domain.ErrInvalidState
	}
	if _, ok := match.OddsFor(match.Winner); !ok {
		return sum, domain.ErrUnknownTeam
	}

	bets, err := m.store.PendingBetsByMatch(ctx, match.ID)
	if err != nil {
		return sum, fmt.Errorf("list pending bets: %w", err)
	}
	sum.Total = len(bets)
	if len(bets) == 0 {
		return sum, nil
	}

	byUser := make(map[string][]domain.Bet)
	order := make([]string, 0)
	for _, b := range bets {
		if _, ok := byUser[b.UserID]; !ok {
			order = append(order, b.UserID)
		}
		byUser[b.UserID] = append(byUser[b.UserID], b)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	if m.Concurrency > 0 {
		g.SetLimit(m.Concurrency)
	}
	for _, userID := range order {
		userBets := byUser[userID]
		g.Go(func() error {
			for _, b := range userBets {
				settled, err := m.SettleBet(ctx, b.ID, match.Winner)

				mu.Lock()
				switch {
				case err == nil && settled.Status == domain.BetWon:
					sum.Won++
					sum.PaidOut += settled.SettledAmount
				case err == nil:
					sum.Lost++
				case errors.Is(err, domain.ErrAlreadySettled):
					sum.Skipped++
				default:
					sum.Failed++
					errs = append(errs, fmt.Errorf("bet %s: %w", b.ID, err))
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	m.Log.Info("match settled",
		zap.String("matchId", match.ID),
		zap.String("winner", match.Winner),
		zap.Int("total", sum.Total),
		zap.Int("won", sum.Won),
		zap.Int("lost", sum.Lost),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int64("paidOut", sum.PaidOut),
	)
	if len(errs) > 0 {
		return sum, fmt.Errorf("settle match %s: %d bets failed: %w", match.ID, len(errs), errors.Join(errs...))
	}
	return sum, nil
}
