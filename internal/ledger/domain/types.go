// Package domain define os modelos e o contrato do ledger de pontos.
package domain

import "time"

// StartingPoints é o saldo inicial de um usuário criado no primeiro acesso.
const StartingPoints int64 = 100

// User é o saldo de pontos de um usuário e seus contadores de apostas.
// Version é controlado pelo store e usado no compare-and-swap.
type User struct {
	ID        string
	Points    int64
	TotalBets int64
	WonBets   int64
	Version   int64
}

type MatchStatus string

const (
	MatchUpcoming MatchStatus = "upcoming"
	MatchLive     MatchStatus = "live"
	MatchFinished MatchStatus = "finished"
)

// Match é somente leitura para o ledger.
type Match struct {
	ID       string      `json:"id"`
	Team1    string      `json:"team1"`
	Team2    string      `json:"team2"`
	Odds1    float64     `json:"odds1"`
	Odds2    float64     `json:"odds2"`
	Status   MatchStatus `json:"status"`
	Winner   string      `json:"winner,omitempty"`
	StartsAt time.Time   `json:"startsAt"`
}

// OddsFor retorna a odd do time escolhido; ok=false se o time não joga a partida.
func (m Match) OddsFor(team string) (odds float64, ok bool) {
	switch {
	case team == "":
		return 0, false
	case team == m.Team1:
		return m.Odds1, true
	case team == m.Team2:
		return m.Odds2, true
	}
	return 0, false
}

func (m Match) Closed() bool { return m.Status == MatchFinished }

type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
)

// Bet é o registro de aposta de um usuário numa partida.
// Odds fica congelada no momento da primeira aposta e vale também para os aumentos.
type Bet struct {
	ID              string
	UserID          string
	MatchID         string
	ChosenTeam      string
	Odds            float64
	Stake           int64
	PotentialPayout int64
	Status          BetStatus
	SettledAmount   int64
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (b Bet) Pending() bool { return b.Status == BetPending }
