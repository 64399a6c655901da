package events

const (
	BetKindPlaced    = "placed"
	BetKindIncreased = "increased"
)

// BetPlaced é publicado após o commit de uma aposta nova ou de um aumento.
// Stake e PotentialPayout são os totais após a operação; Delta é o valor debitado.
type BetPlaced struct {
	BetID           string  `json:"bet_id"`
	UserID          string  `json:"user_id"`
	MatchID         string  `json:"match_id"`
	ChosenTeam      string  `json:"chosen_team"`
	Kind            string  `json:"kind"` // placed | increased
	Odds            float64 `json:"odds"`
	Delta           int64   `json:"delta"`
	Stake           int64   `json:"stake"`
	PotentialPayout int64   `json:"potential_payout"`
	BalanceAfter    int64   `json:"balance_after"`
	TsUnixMs        int64   `json:"ts_unix_ms"`
}
