package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/esports-points-ledger/internal/ledger-service/dto"
	"github.com/radieske/esports-points-ledger/internal/ledger-service/repo"
	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/internal/ledger/eligibility"
	"github.com/radieske/esports-points-ledger/internal/ledger/lifecycle"
	"github.com/radieske/esports-points-ledger/internal/matches"
)

type testAPI struct {
	srv     *httptest.Server
	store   *repo.Memory
	matches *matches.Memory
	mgr     *lifecycle.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := repo.NewMemory()
	src := matches.NewMemory(
		domain.Match{ID: "m1", Team1: "T1", Team2: "Gen.G", Odds1: 2.0, Odds2: 1.7, Status: domain.MatchUpcoming},
		domain.Match{ID: "done", Team1: "Fnatic", Team2: "G2", Odds1: 1.5, Odds2: 2.5, Status: domain.MatchFinished, Winner: "G2"},
	)
	mgr := lifecycle.NewManager(nil, store, src, nil)
	api := &API{
		Log:         zap.NewNop(),
		Ledger:      mgr,
		Eligibility: eligibility.NewChecker(store, src),
		Store:       store,
		Matches:     src,
	}
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, store: store, matches: src, mgr: mgr}
}

func (a *testAPI) do(t *testing.T, method, path, user string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestMe_CreatesAccountWithStartingPoints(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodGet, "/v1/me", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u := decode[dto.UserResponse](t, resp)
	assert.Equal(t, "alice", u.UserID)
	assert.Equal(t, int64(100), u.Points)

	resp = a.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	e := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "Unauthenticated", e.Error)
}

func TestPlaceAndIncreaseBet(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPost, "/v1/bets", "alice", dto.PlaceBetRequest{MatchID: "m1", ChosenTeam: "T1", Stake: 60})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decode[dto.PlaceBetResponse](t, resp)
	assert.Equal(t, int64(120), placed.Bet.PotentialPayout)
	assert.Equal(t, "pending", placed.Bet.Status)
	assert.Equal(t, int64(40), placed.Points)

	resp = a.do(t, http.MethodPost, "/v1/bets", "alice", dto.PlaceBetRequest{MatchID: "m1", ChosenTeam: "Gen.G", Stake: 10})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DuplicateBet", decode[dto.ErrorResponse](t, resp).Error)

	resp = a.do(t, http.MethodPost, "/v1/bets/"+placed.Bet.BetID+"/increase", "alice", dto.IncreaseBetRequest{AdditionalStake: 30})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inc := decode[dto.PlaceBetResponse](t, resp)
	assert.Equal(t, int64(90), inc.Bet.Stake)
	assert.Equal(t, int64(180), inc.Bet.PotentialPayout)
	assert.Equal(t, int64(10), inc.Points)

	resp = a.do(t, http.MethodPost, "/v1/bets/"+placed.Bet.BetID+"/increase", "mallory", dto.IncreaseBetRequest{AdditionalStake: 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/v1/bets/"+placed.Bet.BetID+"/increase", "alice", dto.IncreaseBetRequest{AdditionalStake: 50})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "InsufficientFunds", decode[dto.ErrorResponse](t, resp).Error)
}

func TestPlaceBet_ErrorMapping(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name   string
		user   string
		body   any
		status int
		kind   string
	}{
		{"no identity", "", dto.PlaceBetRequest{MatchID: "m1", ChosenTeam: "T1", Stake: 10}, http.StatusUnauthorized, "Unauthenticated"},
		{"zero stake", "u", dto.PlaceBetRequest{MatchID: "m1", ChosenTeam: "T1", Stake: 0}, http.StatusBadRequest, "InvalidStake"},
		{"unknown team", "u", dto.PlaceBetRequest{MatchID: "m1", ChosenTeam: "C9", Stake: 10}, http.StatusBadRequest, "UnknownTeam"},
		{"unknown match", "u", dto.PlaceBetRequest{MatchID: "x", ChosenTeam: "T1", Stake: 10}, http.StatusNotFound, "NotFound"},
		{"finished match", "u", dto.PlaceBetRequest{MatchID: "done", ChosenTeam: "G2", Stake: 10}, http.StatusConflict, "MatchClosed"},
		{"missing match id", "u", dto.PlaceBetRequest{ChosenTeam: "T1", Stake: 10}, http.StatusBadRequest, KindBadRequest},
		{"bad json", "u", "not an object", http.StatusBadRequest, KindBadRequest},
		{"text stake", "u", json.RawMessage(`{"matchId":"m1","chosenTeam":"T1","stake":"abc"}`), http.StatusBadRequest, "InvalidStake"},
		{"quoted number stake", "u", json.RawMessage(`{"matchId":"m1","chosenTeam":"T1","stake":"10"}`), http.StatusBadRequest, "InvalidStake"},
		{"fractional stake", "u", json.RawMessage(`{"matchId":"m1","chosenTeam":"T1","stake":1.5}`), http.StatusBadRequest, "InvalidStake"},
		{"null stake", "u", json.RawMessage(`{"matchId":"m1","chosenTeam":"T1","stake":null}`), http.StatusBadRequest, "InvalidStake"},
		{"stake beyond int64", "u", json.RawMessage(`{"matchId":"m1","chosenTeam":"T1","stake":99999999999999999999}`), http.StatusBadRequest, "InvalidStake"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.do(t, http.MethodPost, "/v1/bets", tt.user, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, decode[dto.ErrorResponse](t, resp).Error)
		})
	}
}

func TestIncreaseBet_NonNumericStake(t *testing.T) {
	a := newTestAPI(t)

	placed := decode[dto.PlaceBetResponse](t, a.do(t, http.MethodPost, "/v1/bets", "alice", dto.PlaceBetRequest{MatchID: "m1", ChosenTeam: "T1", Stake: 10}))

	for _, body := range []string{`{"additionalStake":"lots"}`, `{"additionalStake":2.5}`, `{}`} {
		resp := a.do(t, http.MethodPost, "/v1/bets/"+placed.Bet.BetID+"/increase", "alice", json.RawMessage(body))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "InvalidStake", decode[dto.ErrorResponse](t, resp).Error, body)
	}

	u, err := a.store.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(90), u.Points)
}

// blindStore simula falha de leitura do saldo fora do caminho de commit
type blindStore struct{ *repo.Memory }

func (blindStore) GetUser(context.Context, string) (domain.User, error) {
	return domain.User{}, errors.New("replica unavailable")
}

func TestPlaceBet_ReportsBalanceFromCommit(t *testing.T) {
	store := blindStore{repo.NewMemory()}
	src := matches.NewMemory(domain.Match{ID: "m1", Team1: "T1", Team2: "Gen.G", Odds1: 2.0, Odds2: 1.7, Status: domain.MatchLive})
	api := &API{
		Log:    zap.NewNop(),
		Ledger: lifecycle.NewManager(nil, store, src, nil),
		Store:  store,
	}
	srv := httptest.NewServer(api.Router())
	defer srv.Close()
	a := &testAPI{srv: srv}

	resp := a.do(t, http.MethodPost, "/v1/bets", "alice", dto.PlaceBetRequest{MatchID: "m1", ChosenTeam: "T1", Stake: 60})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(40), decode[dto.PlaceBetResponse](t, resp).Points)
}

func TestEligibilityEndpoint(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodGet, "/v1/matches/m1/eligibility", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[dto.EligibilityResponse](t, resp)
	assert.True(t, res.CanBet)
	assert.False(t, res.IncreaseOnly)

	a.do(t, http.MethodPost, "/v1/bets", "alice", dto.PlaceBetRequest{MatchID: "m1", ChosenTeam: "T1", Stake: 10})

	res = decode[dto.EligibilityResponse](t, a.do(t, http.MethodGet, "/v1/matches/m1/eligibility", "alice", nil))
	assert.True(t, res.CanBet)
	assert.True(t, res.IncreaseOnly)
	require.NotNil(t, res.ExistingBet)
	assert.Equal(t, int64(10), res.ExistingBet.Stake)

	res = decode[dto.EligibilityResponse](t, a.do(t, http.MethodGet, "/v1/matches/done/eligibility", "alice", nil))
	assert.False(t, res.CanBet)
	assert.Equal(t, eligibility.ReasonMatchClosed, res.Reason)

	res = decode[dto.EligibilityResponse](t, a.do(t, http.MethodGet, "/v1/matches/m1/eligibility", "", nil))
	assert.False(t, res.CanBet)
	assert.Equal(t, eligibility.ReasonUnauthenticated, res.Reason)
}

func TestBetHistoryAndStats(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()

	won, err := a.mgr.PlaceBet(ctx, "alice", "m1", "T1", 60)
	require.NoError(t, err)
	a.matches.Put(domain.Match{ID: "m2", Team1: "Fnatic", Team2: "G2", Odds1: 1.5, Odds2: 2.5, Status: domain.MatchLive})
	lost, err := a.mgr.PlaceBet(ctx, "alice", "m2", "Fnatic", 20)
	require.NoError(t, err)
	_, err = a.mgr.SettleBet(ctx, won.ID, "T1")
	require.NoError(t, err)
	_, err = a.mgr.SettleBet(ctx, lost.ID, "G2")
	require.NoError(t, err)
	a.matches.Put(domain.Match{ID: "m3", Team1: "NaVi", Team2: "FaZe", Odds1: 1.9, Odds2: 1.9, Status: domain.MatchUpcoming})
	_, err = a.mgr.PlaceBet(ctx, "alice", "m3", "NaVi", 10)
	require.NoError(t, err)

	all := decode[[]dto.BetResponse](t, a.do(t, http.MethodGet, "/v1/bets", "alice", nil))
	require.Len(t, all, 3)
	assert.Equal(t, "m3", all[0].MatchID, "newest first")

	wonOnly := decode[[]dto.BetResponse](t, a.do(t, http.MethodGet, "/v1/bets?status=won", "alice", nil))
	require.Len(t, wonOnly, 1)
	assert.Equal(t, won.ID, wonOnly[0].BetID)

	byMatch := decode[[]dto.BetResponse](t, a.do(t, http.MethodGet, "/v1/bets?matchId=m2", "alice", nil))
	require.Len(t, byMatch, 1)
	assert.Equal(t, lost.ID, byMatch[0].BetID)

	none := decode[[]dto.BetResponse](t, a.do(t, http.MethodGet, "/v1/bets?matchId=m2&status=won", "alice", nil))
	assert.Empty(t, none)

	other := decode[[]dto.BetResponse](t, a.do(t, http.MethodGet, "/v1/bets?matchId=m2", "bob", nil))
	assert.Empty(t, other)

	resp := a.do(t, http.MethodGet, "/v1/bets?status=void", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/v1/bets/"+won.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = a.do(t, http.MethodGet, "/v1/bets/missing", "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	st := decode[dto.StatsResponse](t, a.do(t, http.MethodGet, "/v1/stats", "alice", nil))
	assert.Equal(t, 3, st.TotalBets)
	assert.Equal(t, 1, st.TotalWon)
	assert.Equal(t, 1, st.TotalLost)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 33.3, st.WinRate)
	assert.Equal(t, int64(90), st.TotalAmountBet)
	assert.Equal(t, int64(120), st.TotalAmountWon)
	assert.Equal(t, 33.3, st.ROI)
	// 100 - 60 - 20 - 10 + 120
	assert.Equal(t, int64(130), st.CurrentPoints)
}

func TestMatchesEndpoints(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodGet, "/v1/matches", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.Match](t, resp), 2)

	resp = a.do(t, http.MethodGet, "/v1/matches/done", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode[domain.Match](t, resp)
	assert.Equal(t, "G2", m.Winner)

	resp = a.do(t, http.MethodGet, "/v1/matches/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(domain.KindStoreConflict))
	assert.Equal(t, http.StatusConflict, statusFor(domain.KindAlreadySettled))
	assert.Equal(t, http.StatusConflict, statusFor(domain.KindInvalidState))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.KindInternal))
}
