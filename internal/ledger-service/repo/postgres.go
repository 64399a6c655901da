package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
)

//go:embed schema.sql
var schema string

const betColumns = `id, user_id, match_id, chosen_team, odds, stake, potential_payout, status, settled_amount, version, created_at, updated_at`

// Postgres implementa o ledger (saldos + apostas) em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Migrate cria as tabelas e índices do ledger se ainda não existirem
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var u domain.User
	err := p.db.QueryRowContext(ctx,
		`SELECT id, points, total_bets, won_bets, version FROM users WHERE id=$1`, userID).
		Scan(&u.ID, &u.Points, &u.TotalBets, &u.WonBets, &u.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

// EnsureUser retorna o usuário, criando com o saldo inicial no primeiro acesso
// ON CONFLICT evita corrida entre dois primeiros acessos simultâneos
func (p *Postgres) EnsureUser(ctx context.Context, userID string, startingPoints int64) (domain.User, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO users(id, points, total_bets, won_bets, version) VALUES($1,$2,0,0,1) ON CONFLICT (id) DO NOTHING`,
		userID, startingPoints); err != nil {
		return domain.User{}, err
	}

	var u domain.User
	if err = tx.QueryRowContext(ctx,
		`SELECT id, points, total_bets, won_bets, version FROM users WHERE id=$1`, userID).
		Scan(&u.ID, &u.Points, &u.TotalBets, &u.WonBets, &u.Version); err != nil {
		return domain.User{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (p *Postgres) GetBet(ctx context.Context, betID string) (domain.Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1`, betID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, domain.ErrNotFound
	}
	return b, err
}

func (p *Postgres) PendingBet(ctx context.Context, userID, matchID string) (domain.Bet, bool, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE user_id=$1 AND match_id=$2 AND status='pending'`, userID, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, false, nil
	}
	if err != nil {
		return domain.Bet{}, false, err
	}
	return b, true, nil
}

func (p *Postgres) BetsByUser(ctx context.Context, userID string) ([]domain.Bet, error) {
	return p.queryBets(ctx, `SELECT `+betColumns+` FROM bets WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
}

func (p *Postgres) PendingBetsByMatch(ctx context.Context, matchID string) ([]domain.Bet, error) {
	return p.queryBets(ctx, `SELECT `+betColumns+` FROM bets WHERE match_id=$1 AND status='pending' ORDER BY created_at`, matchID)
}

func (p *Postgres) PendingMatchIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT match_id FROM bets WHERE status='pending' ORDER BY match_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Commit aplica a mudança numa única transação:
// 1. UPDATE do usuário condicionado à versão lida (compare-and-swap)
// 2. INSERT da aposta (índice único parcial garante uma pending por partida)
//    ou UPDATE condicionado à versão da aposta
// 3. lançamento no diário ledger_entries
func (p *Postgres) Commit(ctx context.Context, c domain.Change) (domain.Bet, error) {
	if c.NewUser.Points < 0 {
		return domain.Bet{}, domain.ErrInsufficientFunds
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Bet{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET points=$1, total_bets=$2, won_bets=$3, version=version+1 WHERE id=$4 AND version=$5`,
		c.NewUser.Points, c.NewUser.TotalBets, c.NewUser.WonBets, c.User.ID, c.User.Version)
	if err != nil {
		return domain.Bet{}, mapPQ(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.Bet{}, err
	} else if n == 0 {
		return domain.Bet{}, domain.ErrStoreConflict
	}

	nb := c.NewBet
	if c.Bet == nil {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO bets (id,user_id,match_id,chosen_team,odds,stake,potential_payout,status,settled_amount)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING version, created_at, updated_at`,
			nb.ID, nb.UserID, nb.MatchID, nb.ChosenTeam, nb.Odds, nb.Stake, nb.PotentialPayout, string(nb.Status), nb.SettledAmount,
		).Scan(&nb.Version, &nb.CreatedAt, &nb.UpdatedAt)
	} else {
		err = tx.QueryRowContext(ctx, `
			UPDATE bets SET stake=$1, potential_payout=$2, status=$3, settled_amount=$4, version=version+1, updated_at=NOW()
			WHERE id=$5 AND version=$6
			RETURNING version, created_at, updated_at`,
			nb.Stake, nb.PotentialPayout, string(nb.Status), nb.SettledAmount, c.Bet.ID, c.Bet.Version,
		).Scan(&nb.Version, &nb.CreatedAt, &nb.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bet{}, domain.ErrStoreConflict
		}
	}
	if err != nil {
		return domain.Bet{}, mapPQ(err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries(user_id, bet_id, operation_type, amount, balance_after)
		VALUES($1,$2,$3,$4,$5)`,
		c.User.ID, nb.ID, c.Entry, c.PointsDelta(), c.NewUser.Points); err != nil {
		return domain.Bet{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Bet{}, mapPQ(err)
	}
	return nb, nil
}

func (p *Postgres) queryBets(ctx context.Context, q string, args ...any) ([]domain.Bet, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Bet, 0)
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(r rowScanner) (domain.Bet, error) {
	var b domain.Bet
	var status string
	err := r.Scan(&b.ID, &b.UserID, &b.MatchID, &b.ChosenTeam, &b.Odds, &b.Stake, &b.PotentialPayout,
		&status, &b.SettledAmount, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	b.Status = domain.BetStatus(status)
	return b, err
}

// mapPQ traduz violações de constraint do Postgres para erros do ledger
func mapPQ(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505": // unique_violation
		return domain.ErrDuplicateBet
	case "23514": // check_violation (points >= 0)
		return domain.ErrInsufficientFunds
	case "40001": // serialization_failure
		return domain.ErrStoreConflict
	}
	return err
}
