package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/esports-points-ledger/internal/ledger-service/dto"
	"github.com/radieske/esports-points-ledger/internal/ledger-service/ws"
	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/internal/ledger/eligibility"
	"github.com/radieske/esports-points-ledger/internal/ledger/lifecycle"
	"github.com/radieske/esports-points-ledger/internal/ledger/stats"
)

// KindBadRequest cobre corpo/parâmetros malformados, antes de chegar ao ledger
const KindBadRequest = "BadRequest"

// API expõe o ledger de pontos via REST + WebSocket.
// A identidade vem do header X-User-Id e é repassada explicitamente a cada chamada.
type API struct {
	Log         *zap.Logger
	Ledger      *lifecycle.Manager
	Eligibility *eligibility.Checker
	Store       domain.Store
	Matches     domain.MatchSource
	Hub         *ws.Hub
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/v1/matches", a.listMatches)
	r.Get("/v1/matches/{id}", a.getMatch)
	r.Get("/v1/matches/{id}/eligibility", a.checkEligibility)
	if a.Hub != nil {
		r.Get("/v1/ws", a.Hub.HandleWS)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/v1/me", a.me)
		r.Post("/v1/bets", a.placeBet)
		r.Post("/v1/bets/{id}/increase", a.increaseBet)
		r.Get("/v1/bets", a.listBets)
		r.Get("/v1/bets/{id}", a.getBet)
		r.Get("/v1/stats", a.stats)
	})
	return r
}

func userID(r *http.Request) string { return r.Header.Get(ws.UserHeader) }

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID(r) == "" {
			writeError(w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor mapeia o kind do erro para o status HTTP
func statusFor(kind string) int {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindNotOwner:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidStake, domain.KindUnknownTeam, KindBadRequest:
		return http.StatusBadRequest
	case domain.KindDuplicateBet, domain.KindInvalidState, domain.KindAlreadySettled,
		domain.KindMatchClosed, domain.KindStoreConflict:
		return http.StatusConflict
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	writeJSON(w, statusFor(kind), dto.ErrorResponse{Error: kind, Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: KindBadRequest, Message: msg})
}

// fail loga erros internos e responde com o mapeamento padrão
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if domain.Kind(err) == domain.KindInternal {
		a.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, err)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	u, err := a.Ledger.Account(r.Context(), userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromUser(u))
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	ms, err := a.Matches.ListMatches(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (a *API) getMatch(w http.ResponseWriter, r *http.Request) {
	m, err := a.Matches.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// checkEligibility sempre responde 200; falhas de infraestrutura viram canBet=false
func (a *API) checkEligibility(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")
	res, err := a.Eligibility.Check(r.Context(), userID(r), matchID)
	if err != nil {
		a.Log.Warn("eligibility check degraded", zap.String("matchId", matchID), zap.Error(err))
	}
	out := dto.EligibilityResponse{
		MatchID:      matchID,
		CanBet:       res.CanBet,
		Reason:       res.Reason,
		IncreaseOnly: res.IncreaseOnly,
	}
	if res.ExistingBet != nil {
		b := dto.FromBet(*res.ExistingBet)
		out.ExistingBet = &b
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	if req.MatchID == "" {
		badRequest(w, "matchId required")
		return
	}

	rc, err := a.Ledger.Place(r.Context(), userID(r), req.MatchID, req.ChosenTeam, int64(req.Stake))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{Bet: dto.FromBet(rc.Bet), Points: rc.Balance})
}

func (a *API) increaseBet(w http.ResponseWriter, r *http.Request) {
	var req dto.IncreaseBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}

	rc, err := a.Ledger.Increase(r.Context(), chi.URLParam(r, "id"), userID(r), int64(req.AdditionalStake))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{Bet: dto.FromBet(rc.Bet), Points: rc.Balance})
}

// listBets aceita os filtros opcionais status e matchId
func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	status := domain.BetStatus(r.URL.Query().Get("status"))
	matchID := r.URL.Query().Get("matchId")
	switch status {
	case "", domain.BetPending, domain.BetWon, domain.BetLost:
	default:
		badRequest(w, "status must be pending, won or lost")
		return
	}

	bets, err := a.Store.BetsByUser(r.Context(), userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if status != "" || matchID != "" {
		filtered := bets[:0]
		for _, b := range bets {
			if (status == "" || b.Status == status) && (matchID == "" || b.MatchID == matchID) {
				filtered = append(filtered, b)
			}
		}
		bets = filtered
	}
	writeJSON(w, http.StatusOK, dto.FromBets(bets))
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	bet, err := a.Store.GetBet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if bet.UserID != userID(r) {
		writeError(w, domain.ErrNotOwner)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(bet))
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	u, err := a.Ledger.Account(r.Context(), uid)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	bets, err := a.Store.BetsByUser(r.Context(), uid)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StatsResponse{
		Summary:       stats.Summarize(bets).Rounded(),
		CurrentPoints: u.Points,
	})
}
