package domain

import "context"

// Change descreve uma mutação atômica do ledger: o estado esperado do usuário
// (comparado por Version) e da aposta, mais o novo estado de ambos.
// Bet nil significa criar NewBet como aposta nova.
type Change struct {
	User    User
	NewUser User
	Bet     *Bet
	NewBet  Bet
	// Entry descreve o lançamento no diário (ex.: "place", "increase", "payout")
	Entry string
}

// PointsDelta é a variação de saldo aplicada pela mudança.
func (c Change) PointsDelta() int64 { return c.NewUser.Points - c.User.Points }

// Store é o armazenamento autoritativo de saldos e apostas.
//
// Commit aplica a mudança inteira ou nada e retorna a aposta como ficou gravada:
//   - ErrStoreConflict se a versão do usuário ou da aposta mudou desde a leitura
//   - ErrDuplicateBet se Bet == nil e já existe aposta pending para (usuário, partida)
//   - ErrInsufficientFunds se o novo saldo ficaria negativo
type Store interface {
	GetUser(ctx context.Context, userID string) (User, error)
	// EnsureUser retorna o usuário, criando com saldo inicial se não existir
	EnsureUser(ctx context.Context, userID string, startingPoints int64) (User, error)
	GetBet(ctx context.Context, betID string) (Bet, error)
	// PendingBet retorna a aposta pending de (userID, matchID); ok=false se não houver
	PendingBet(ctx context.Context, userID, matchID string) (bet Bet, ok bool, err error)
	// BetsByUser retorna todas as apostas do usuário, mais recentes primeiro
	BetsByUser(ctx context.Context, userID string) ([]Bet, error)
	PendingBetsByMatch(ctx context.Context, matchID string) ([]Bet, error)
	// PendingMatchIDs lista partidas com ao menos uma aposta pending
	PendingMatchIDs(ctx context.Context) ([]string, error)
	Commit(ctx context.Context, c Change) (Bet, error)
}

// MatchSource fornece partidas, somente leitura.
type MatchSource interface {
	GetMatch(ctx context.Context, matchID string) (Match, error)
	ListMatches(ctx context.Context) ([]Match, error)
}
