// Package stats deriva o resumo de desempenho (win rate, ROI) do histórico de apostas.
package stats

import (
	"math"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
)

// Summary guarda os valores sem arredondamento; a apresentação usa Round1
type Summary struct {
	TotalBets      int     `json:"totalBets"`
	TotalWon       int     `json:"totalWon"`
	TotalLost      int     `json:"totalLost"`
	Pending        int     `json:"pending"`
	WinRate        float64 `json:"winRate"` // percentual
	TotalAmountBet int64   `json:"totalAmountBet"`
	TotalAmountWon int64   `json:"totalAmountWon"`
	ROI            float64 `json:"roi"` // percentual
}

func Summarize(bets []domain.Bet) Summary {
	var s Summary
	s.TotalBets = len(bets)
	for _, b := range bets {
		s.TotalAmountBet += b.Stake
		switch b.Status {
		case domain.BetWon:
			s.TotalWon++
			s.TotalAmountWon += b.SettledAmount
		case domain.BetLost:
			s.TotalLost++
		case domain.BetPending:
			s.Pending++
		}
	}
	if s.TotalBets > 0 {
		s.WinRate = float64(s.TotalWon) / float64(s.TotalBets) * 100
	}
	if s.TotalAmountBet > 0 {
		s.ROI = float64(s.TotalAmountWon-s.TotalAmountBet) / float64(s.TotalAmountBet) * 100
	}
	return s
}

// Round1 arredonda para uma casa decimal (exibição)
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Rounded devolve uma cópia com os percentuais arredondados
func (s Summary) Rounded() Summary {
	s.WinRate = Round1(s.WinRate)
	s.ROI = Round1(s.ROI)
	return s
}
