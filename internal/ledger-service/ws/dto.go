package ws

// ClientMsg é a única mensagem aceita do cliente (ping); o canal é por usuário
type ClientMsg struct {
	Type string `json:"type"`
}

const (
	UpdateBetPlaced  = "bet_placed"
	UpdateBetSettled = "bet_settled"
)

// LedgerUpdate é repassado via Redis Pub/Sub e entregue só às conexões do UserID
type LedgerUpdate struct {
	UserID  string `json:"userId"`
	Type    string `json:"type"` // bet_placed | bet_settled
	Payload any    `json:"payload"`
}
