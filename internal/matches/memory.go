// Package matches reúne as fontes de partidas usadas pelo ledger.
package matches

import (
	"context"
	"sort"
	"sync"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
)

// Memory é uma fonte de partidas em memória
type Memory struct {
	mu      sync.RWMutex
	matches map[string]domain.Match
}

func NewMemory(ms ...domain.Match) *Memory {
	m := &Memory{matches: make(map[string]domain.Match)}
	for _, match := range ms {
		m.matches[match.ID] = match
	}
	return m
}

// Put grava ou substitui uma partida
func (m *Memory) Put(match domain.Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[match.ID] = match
}

// Finish marca a partida como encerrada com o vencedor informado
func (m *Memory) Finish(matchID, winner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match := m.matches[matchID]
	match.Status = domain.MatchFinished
	match.Winner = winner
	m.matches[matchID] = match
}

func (m *Memory) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match, ok := m.matches[matchID]
	if !ok {
		return domain.Match{}, domain.ErrNotFound
	}
	return match, nil
}

func (m *Memory) ListMatches(ctx context.Context) ([]domain.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Match, 0, len(m.matches))
	for _, match := range m.matches {
		out = append(out, match)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.After(out[j].StartsAt)
	})
	return out, nil
}
