// Package eligibility responde, de forma consultiva, se um usuário pode apostar numa partida.
// A verificação definitiva acontece dentro do commit atômico do lifecycle.
package eligibility

import (
	"context"
	"errors"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
)

const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonMatchClosed     = "match closed"
	ReasonMatchNotFound   = "match not found"
	ReasonUnavailable     = "unavailable"
)

// Result é o contrato entregue à camada de apresentação
type Result struct {
	CanBet       bool
	Reason       string
	IncreaseOnly bool
	ExistingBet  *domain.Bet
}

type Checker struct {
	store   domain.Store
	matches domain.MatchSource
}

func NewChecker(store domain.Store, matches domain.MatchSource) *Checker {
	return &Checker{store: store, matches: matches}
}

// Check falha fechado: qualquer erro de infraestrutura resulta em CanBet=false
// com Reason "unavailable"; o erro é devolvido para log.
func (c *Checker) Check(ctx context.Context, userID, matchID string) (Result, error) {
	if userID == "" {
		return Result{Reason: ReasonUnauthenticated}, nil
	}

	match, err := c.matches.GetMatch(ctx, matchID)
	if errors.Is(err, domain.ErrNotFound) {
		return Result{Reason: ReasonMatchNotFound}, nil
	}
	if err != nil {
		return Result{Reason: ReasonUnavailable}, err
	}
	if match.Closed() {
		return Result{Reason: ReasonMatchClosed}, nil
	}

	bet, ok, err := c.store.PendingBet(ctx, userID, matchID)
	if err != nil {
		return Result{Reason: ReasonUnavailable}, err
	}
	if ok {
		return Result{CanBet: true, IncreaseOnly: true, ExistingBet: &bet}, nil
	}
	return Result{CanBet: true}, nil
}
