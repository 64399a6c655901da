package topics

const (
	// Apostas
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Partidas
	MatchFinished = "match_finished"

	// DLQs
	MatchFinishedDLQ = "match_finished_dlq"
)

// Canal Redis Pub/Sub com atualizações de saldo/apostas para o websocket
const LedgerUpdatesChannel = "ledger_updates"
