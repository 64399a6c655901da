package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
)

const matchColumns = `id, team1, team2, odds1, odds2, status, COALESCE(winner, ''), starts_at`

// ReadRepo lê partidas da tabela matches (mantida pelo sistema de administração)
type ReadRepo struct {
	DB *sql.DB
}

func NewReadRepo(db *sql.DB) *ReadRepo { return &ReadRepo{DB: db} }

// GetMatch retorna a partida; domain.ErrNotFound se não existir
func (r *ReadRepo) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	m, err := scanMatch(r.DB.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Match{}, domain.ErrNotFound
	}
	return m, err
}

// ListMatches retorna todas as partidas, mais recentes primeiro
func (r *ReadRepo) ListMatches(ctx context.Context) ([]domain.Match, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY starts_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(r rowScanner) (domain.Match, error) {
	var m domain.Match
	var status string
	err := r.Scan(&m.ID, &m.Team1, &m.Team2, &m.Odds1, &m.Odds2, &status, &m.Winner, &m.StartsAt)
	m.Status = domain.MatchStatus(status)
	return m, err
}
