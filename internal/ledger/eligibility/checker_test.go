package eligibility_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/esports-points-ledger/internal/ledger-service/repo"
	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/internal/ledger/eligibility"
	"github.com/radieske/esports-points-ledger/internal/matches"
)

type brokenSource struct{ domain.MatchSource }

func (brokenSource) GetMatch(context.Context, string) (domain.Match, error) {
	return domain.Match{}, errors.New("redis: connection refused")
}

func setup(t *testing.T) (*repo.Memory, *matches.Memory) {
	t.Helper()
	store := repo.NewMemory()
	store.SetUser(domain.User{ID: "u1", Points: 100})
	src := matches.NewMemory(
		domain.Match{ID: "open", Team1: "Vitality", Team2: "NaVi", Odds1: 1.6, Odds2: 2.4, Status: domain.MatchUpcoming},
		domain.Match{ID: "done", Team1: "Vitality", Team2: "NaVi", Odds1: 1.6, Odds2: 2.4, Status: domain.MatchFinished, Winner: "NaVi"},
	)
	return store, src
}

func TestCheck(t *testing.T) {
	store, src := setup(t)
	ctx := context.Background()

	pending, err := store.Commit(ctx, domain.Change{
		User:    domain.User{ID: "u1", Points: 100, Version: 1},
		NewUser: domain.User{ID: "u1", Points: 40, TotalBets: 1},
		NewBet: domain.Bet{ID: "b1", UserID: "u1", MatchID: "open", ChosenTeam: "Vitality",
			Odds: 1.6, Stake: 60, PotentialPayout: 96, Status: domain.BetPending},
	})
	require.NoError(t, err)

	checker := eligibility.NewChecker(store, src)

	tests := []struct {
		name         string
		userID       string
		matchID      string
		canBet       bool
		reason       string
		increaseOnly bool
	}{
		{"anonymous", "", "open", false, eligibility.ReasonUnauthenticated, false},
		{"unknown match", "u1", "nope", false, eligibility.ReasonMatchNotFound, false},
		{"finished match", "u1", "done", false, eligibility.ReasonMatchClosed, false},
		{"existing pending bet", "u1", "open", true, "", true},
		{"fresh user", "u2", "open", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := checker.Check(ctx, tt.userID, tt.matchID)
			require.NoError(t, err)
			assert.Equal(t, tt.canBet, res.CanBet)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.increaseOnly, res.IncreaseOnly)
			if tt.increaseOnly {
				require.NotNil(t, res.ExistingBet)
				assert.Equal(t, pending.ID, res.ExistingBet.ID)
				assert.Equal(t, "Vitality", res.ExistingBet.ChosenTeam)
			} else {
				assert.Nil(t, res.ExistingBet)
			}
		})
	}
}

func TestCheck_FailsClosedOnSourceError(t *testing.T) {
	store, _ := setup(t)
	checker := eligibility.NewChecker(store, brokenSource{})

	res, err := checker.Check(context.Background(), "u1", "open")
	assert.Error(t, err)
	assert.False(t, res.CanBet)
	assert.Equal(t, eligibility.ReasonUnavailable, res.Reason)
}
