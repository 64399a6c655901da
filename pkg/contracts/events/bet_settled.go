package events

import "time"

// Evento emitido quando uma aposta é liquidada (won | lost).
type BetSettled struct {
	BetID         string    `json:"betId"`
	UserID        string    `json:"userId"`
	MatchID       string    `json:"matchId"`
	Status        string    `json:"status"` // "won" | "lost"
	SettledAmount int64     `json:"settledAmount"`
	BalanceAfter  int64     `json:"balanceAfter"`
	Ts            time.Time `json:"ts"`
}
