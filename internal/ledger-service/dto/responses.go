package dto

import (
	"time"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/internal/ledger/stats"
)

type UserResponse struct {
	UserID    string `json:"userId"`
	Points    int64  `json:"points"`
	TotalBets int64  `json:"totalBets"`
	WonBets   int64  `json:"wonBets"`
}

func FromUser(u domain.User) UserResponse {
	return UserResponse{UserID: u.ID, Points: u.Points, TotalBets: u.TotalBets, WonBets: u.WonBets}
}

type BetResponse struct {
	BetID           string    `json:"betId"`
	UserID          string    `json:"userId"`
	MatchID         string    `json:"matchId"`
	ChosenTeam      string    `json:"chosenTeam"`
	Odds            float64   `json:"odds"`
	Stake           int64     `json:"stake"`
	PotentialPayout int64     `json:"potentialPayout"`
	Status          string    `json:"status"`
	SettledAmount   int64     `json:"settledAmount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func FromBet(b domain.Bet) BetResponse {
	return BetResponse{
		BetID:           b.ID,
		UserID:          b.UserID,
		MatchID:         b.MatchID,
		ChosenTeam:      b.ChosenTeam,
		Odds:            b.Odds,
		Stake:           b.Stake,
		PotentialPayout: b.PotentialPayout,
		Status:          string(b.Status),
		SettledAmount:   b.SettledAmount,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func FromBets(bets []domain.Bet) []BetResponse {
	out := make([]BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, FromBet(b))
	}
	return out
}

// PlaceBetResponse devolve a aposta e o saldo após o débito
type PlaceBetResponse struct {
	Bet    BetResponse `json:"bet"`
	Points int64       `json:"points"`
}

type EligibilityResponse struct {
	MatchID      string       `json:"matchId"`
	CanBet       bool         `json:"canBet"`
	Reason       string       `json:"reason,omitempty"`
	IncreaseOnly bool         `json:"increaseOnly"`
	ExistingBet  *BetResponse `json:"existingBet,omitempty"`
}

// StatsResponse traz os percentuais já arredondados para exibição
type StatsResponse struct {
	stats.Summary
	CurrentPoints int64 `json:"currentPoints"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
