package events

import "time"

// Evento consumido do tópico "match_finished", publicado pelo sistema de partidas.
// O worker não confia no payload para liquidar: relê a partida na fonte.
type MatchFinished struct {
	MatchID    string    `json:"match_id"`
	Winner     string    `json:"winner"`
	FinishedAt time.Time `json:"finished_at"`
	Source     string    `json:"source"`
}
