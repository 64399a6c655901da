// Package lifecycle cria, aumenta e liquida apostas, garantindo os invariantes do ledger:
// conservação de pontos, no máximo uma aposta pending por partida e time imutável.
//
// Toda mutação de saldo é um commit condicional no store (compare-and-swap na
// versão do usuário e da aposta). Conflitos são repetidos até MaxAttempts vezes,
// relendo o estado e revalidando as regras a cada tentativa.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/internal/ledger/payout"
	"github.com/radieske/esports-points-ledger/pkg/contracts/events"
)

// Publisher recebe os eventos após o commit; falhas não desfazem o ledger
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

const (
	OpPlace    = "place"
	OpIncrease = "increase"
	OpSettle   = "settle"
)

// Receipt é o resultado de uma aposta ou aumento: a aposta gravada e o saldo
// do usuário naquele mesmo commit.
type Receipt struct {
	Bet     domain.Bet
	Balance int64
}

// Manager aplica as operações do ledger. matches deve ser a fonte de registro
// das partidas (sem cache): é ela que decide se a partida já fechou.
type Manager struct {
	Log     *zap.Logger
	store   domain.Store
	matches domain.MatchSource
	publ    Publisher

	MaxAttempts    int           // tentativas em caso de ErrStoreConflict
	Backoff        time.Duration // multiplicado pelo número da tentativa
	Concurrency    int           // usuários liquidados em paralelo por partida
	StartingPoints int64
	NewID          func() string

	OnResult   func(op, kind string) // métricas por operação/resultado
	OnConflict func(op string)       // métricas de conflito
}

func NewManager(log *zap.Logger, store domain.Store, matches domain.MatchSource, publ Publisher) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		Log:            log,
		store:          store,
		matches:        matches,
		publ:           publ,
		MaxAttempts:    3,
		Backoff:        20 * time.Millisecond,
		Concurrency:    8,
		StartingPoints: domain.StartingPoints,
		NewID:          uuid.NewString,
	}
}

// Account retorna o saldo do usuário, criando a conta no primeiro acesso
func (m *Manager) Account(ctx context.Context, userID string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return m.store.EnsureUser(ctx, userID, m.StartingPoints)
}

// PlaceBet abre uma aposta pending e debita o stake no mesmo commit.
func (m *Manager) PlaceBet(ctx context.Context, userID, matchID, chosenTeam string, stake int64) (domain.Bet, error) {
	r, err := m.Place(ctx, userID, matchID, chosenTeam, stake)
	return r.Bet, err
}

// Place é o PlaceBet que também devolve o saldo gravado no commit.
func (m *Manager) Place(ctx context.Context, userID, matchID, chosenTeam string, stake int64) (_ Receipt, err error) {
	defer func() { m.observe(OpPlace, err) }()

	if userID == "" {
		return Receipt{}, domain.ErrUnauthenticated
	}
	if stake <= 0 {
		return Receipt{}, domain.ErrInvalidStake
	}

	match, err := m.matches.GetMatch(ctx, matchID)
	if err != nil {
		return Receipt{}, matchErr(err)
	}
	if match.Closed() {
		return Receipt{}, domain.ErrMatchClosed
	}
	odds, ok := match.OddsFor(chosenTeam)
	if !ok {
		return Receipt{}, domain.ErrUnknownTeam
	}

	var (
		bet     domain.Bet
		balance int64
	)
	err = m.retry(ctx, OpPlace, func() error {
		user, err := m.store.EnsureUser(ctx, userID, m.StartingPoints)
		if err != nil {
			return err
		}
		if _, exists, err := m.store.PendingBet(ctx, userID, matchID); err != nil {
			return err
		} else if exists {
			return domain.ErrDuplicateBet
		}
		if user.Points < stake {
			return domain.ErrInsufficientFunds
		}

		next := user
		next.Points -= stake
		next.TotalBets++

		bet, err = m.store.Commit(ctx, domain.Change{
			User:    user,
			NewUser: next,
			NewBet: domain.Bet{
				ID:              m.NewID(),
				UserID:          userID,
				MatchID:         matchID,
				ChosenTeam:      chosenTeam,
				Odds:            odds,
				Stake:           stake,
				PotentialPayout: payout.Potential(stake, odds),
				Status:          domain.BetPending,
			},
			Entry: "place",
		})
		balance = next.Points
		return err
	})
	if err != nil {
		m.Log.Debug("place bet rejected",
			zap.String("userId", userID), zap.String("matchId", matchID), zap.Int64("stake", stake), zap.Error(err))
		return Receipt{}, err
	}

	m.Log.Info("bet placed",
		zap.String("betId", bet.ID),
		zap.String("userId", userID),
		zap.String("matchId", matchID),
		zap.String("team", chosenTeam),
		zap.Int64("stake", stake),
		zap.Int64("potentialPayout", bet.PotentialPayout),
	)
	m.publishPlaced(ctx, events.BetKindPlaced, bet, stake, balance)
	return Receipt{Bet: bet, Balance: balance}, nil
}

// IncreaseBet soma stake a uma aposta pending do próprio usuário.
// O ganho potencial é recalculado com a odd congelada na aposta; o time nunca muda.
func (m *Manager) IncreaseBet(ctx context.Context, betID, userID string, additionalStake int64) (domain.Bet, error) {
	r, err := m.Increase(ctx, betID, userID, additionalStake)
	return r.Bet, err
}

// Increase é o IncreaseBet que também devolve o saldo gravado no commit.
func (m *Manager) Increase(ctx context.Context, betID, userID string, additionalStake int64) (_ Receipt, err error) {
	defer func() { m.observe(OpIncrease, err) }()

	if userID == "" {
		return Receipt{}, domain.ErrUnauthenticated
	}
	if additionalStake <= 0 {
		return Receipt{}, domain.ErrInvalidStake
	}

	var (
		bet     domain.Bet
		balance int64
	)
	err = m.retry(ctx, OpIncrease, func() error {
		cur, err := m.store.GetBet(ctx, betID)
		if err != nil {
			return err
		}
		if cur.UserID != userID {
			return domain.ErrNotOwner
		}
		if !cur.Pending() {
			return domain.ErrInvalidState
		}

		match, err := m.matches.GetMatch(ctx, cur.MatchID)
		if err != nil {
			return matchErr(err)
		}
		if match.Closed() {
			return domain.ErrMatchClosed
		}

		user, err := m.store.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Points < additionalStake {
			return domain.ErrInsufficientFunds
		}

		nb := cur
		nb.Stake += additionalStake
		nb.PotentialPayout = payout.Potential(nb.Stake, cur.Odds)
		next := user
		next.Points -= additionalStake

		bet, err = m.store.Commit(ctx, domain.Change{User: user, NewUser: next, Bet: &cur, NewBet: nb, Entry: "increase"})
		balance = next.Points
		return err
	})
	if err != nil {
		m.Log.Debug("increase bet rejected",
			zap.String("betId", betID), zap.String("userId", userID), zap.Int64("additionalStake", additionalStake), zap.Error(err))
		return Receipt{}, err
	}

	m.Log.Info("bet increased",
		zap.String("betId", bet.ID),
		zap.String("userId", userID),
		zap.Int64("additionalStake", additionalStake),
		zap.Int64("stake", bet.Stake),
		zap.Int64("potentialPayout", bet.PotentialPayout),
	)
	m.publishPlaced(ctx, events.BetKindIncreased, bet, additionalStake, balance)
	return Receipt{Bet: bet, Balance: balance}, nil
}

func (m *Manager) publishPlaced(ctx context.Context, kind string, bet domain.Bet, delta, balance int64) {
	if m.publ == nil {
		return
	}
	err := m.publ.PublishBetPlaced(ctx, events.BetPlaced{
		BetID:           bet.ID,
		UserID:          bet.UserID,
		MatchID:         bet.MatchID,
		ChosenTeam:      bet.ChosenTeam,
		Kind:            kind,
		Odds:            bet.Odds,
		Delta:           delta,
		Stake:           bet.Stake,
		PotentialPayout: bet.PotentialPayout,
		BalanceAfter:    balance,
	})
	if err != nil {
		m.Log.Warn("publish bet_placed failed", zap.String("betId", bet.ID), zap.Error(err))
	}
}

func matchErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("get match: %w", err)
}
