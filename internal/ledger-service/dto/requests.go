package dto

import (
	"bytes"
	"strconv"
)

// Stake aceita só inteiros JSON. Qualquer outro valor (texto, fração, null,
// fora de int64) vira 0, que o ledger rejeita como InvalidStake.
type Stake int64

func (s *Stake) UnmarshalJSON(b []byte) error {
	n, err := strconv.ParseInt(string(bytes.TrimSpace(b)), 10, 64)
	if err != nil {
		n = 0
	}
	*s = Stake(n)
	return nil
}

type PlaceBetRequest struct {
	MatchID    string `json:"matchId"`
	ChosenTeam string `json:"chosenTeam"`
	Stake      Stake  `json:"stake"`
}

type IncreaseBetRequest struct {
	AdditionalStake Stake `json:"additionalStake"`
}
