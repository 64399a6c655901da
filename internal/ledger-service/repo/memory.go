package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
)

type pendingKey struct{ userID, matchID string }

// Memory implementa domain.Store em memória, protegido por um único mutex.
// Usado em testes e com LEDGER_STORE=memory.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	bets    map[string]domain.Bet
	seq     map[string]int64 // betID -> ordem de criação
	next    int64
	pending map[pendingKey]string // (user, match) -> betID pending
	now     func() time.Time
}

// NewMemory cria um store em memória vazio
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]domain.User),
		bets:    make(map[string]domain.Bet),
		seq:     make(map[string]int64),
		pending: make(map[pendingKey]string),
		now:     time.Now,
	}
}

// SetUser grava um usuário diretamente (seed para testes)
func (m *Memory) SetUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Version == 0 {
		u.Version = 1
	}
	m.users[u.ID] = u
}

func (m *Memory) GetUser(ctx context.Context, userID string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *Memory) EnsureUser(ctx context.Context, userID string, startingPoints int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	u := domain.User{ID: userID, Points: startingPoints, Version: 1}
	m.users[userID] = u
	return u, nil
}

func (m *Memory) GetBet(ctx context.Context, betID string) (domain.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bets[betID]
	if !ok {
		return domain.Bet{}, domain.ErrNotFound
	}
	return b, nil
}

func (m *Memory) PendingBet(ctx context.Context, userID, matchID string) (domain.Bet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.pending[pendingKey{userID, matchID}]
	if !ok {
		return domain.Bet{}, false, nil
	}
	return m.bets[id], true, nil
}

func (m *Memory) BetsByUser(ctx context.Context, userID string) ([]domain.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Bet, 0)
	for _, b := range m.bets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].ID] > m.seq[out[j].ID] })
	return out, nil
}

func (m *Memory) PendingBetsByMatch(ctx context.Context, matchID string) ([]domain.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Bet, 0)
	for k, id := range m.pending {
		if k.matchID == matchID {
			out = append(out, m.bets[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.seq[out[i].ID] < m.seq[out[j].ID] })
	return out, nil
}

func (m *Memory) PendingMatchIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for k := range m.pending {
		if _, ok := seen[k.matchID]; ok {
			continue
		}
		seen[k.matchID] = struct{}{}
		out = append(out, k.matchID)
	}
	sort.Strings(out)
	return out, nil
}

// Commit valida versões e unicidade sob o lock e aplica usuário + aposta juntos
func (m *Memory) Commit(ctx context.Context, c domain.Change) (domain.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.users[c.User.ID]
	if !ok {
		return domain.Bet{}, domain.ErrNotFound
	}

	var prev domain.Bet
	if c.Bet == nil {
		if _, dup := m.pending[pendingKey{c.NewBet.UserID, c.NewBet.MatchID}]; dup {
			return domain.Bet{}, domain.ErrDuplicateBet
		}
		if _, exists := m.bets[c.NewBet.ID]; exists {
			return domain.Bet{}, domain.ErrDuplicateBet
		}
	} else {
		if prev, ok = m.bets[c.Bet.ID]; !ok {
			return domain.Bet{}, domain.ErrNotFound
		}
		if prev.Version != c.Bet.Version {
			return domain.Bet{}, domain.ErrStoreConflict
		}
	}
	if cur.Version != c.User.Version {
		return domain.Bet{}, domain.ErrStoreConflict
	}
	if c.NewUser.Points < 0 {
		return domain.Bet{}, domain.ErrInsufficientFunds
	}

	now := m.now()
	nu := c.NewUser
	nu.ID = cur.ID
	nu.Version = cur.Version + 1
	m.users[nu.ID] = nu

	nb := c.NewBet
	nb.UpdatedAt = now
	if c.Bet == nil {
		nb.Version = 1
		nb.CreatedAt = now
		m.next++
		m.seq[nb.ID] = m.next
	} else {
		nb.ID = prev.ID
		nb.Version = prev.Version + 1
		nb.CreatedAt = prev.CreatedAt
	}
	m.bets[nb.ID] = nb

	key := pendingKey{nb.UserID, nb.MatchID}
	if nb.Pending() {
		m.pending[key] = nb.ID
	} else if m.pending[key] == nb.ID {
		delete(m.pending, key)
	}
	return nb, nil
}
