package round

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PGStore writes wins to the raffle_wins table.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const raffleWinsSchema = `
CREATE TABLE IF NOT EXISTS raffle_wins (
  id          UUID PRIMARY KEY,
  branch      TEXT NOT NULL,
  tier        TEXT NOT NULL,
  prize_name  TEXT NOT NULL,
  icon        TEXT NOT NULL DEFAULT '',
  jackpot     BOOLEAN NOT NULL DEFAULT false,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// EnsureSchema creates raffle_wins when missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, raffleWinsSchema); err != nil {
		return fmt.Errorf("create raffle_wins: %w", err)
	}
	return nil
}

func (s *PGStore) Record(ctx context.Context, o Outcome) error {
	_, err := s.db.ExecContext(ctx, `
      INSERT INTO raffle_wins (id, branch, tier, prize_name, icon, jackpot, created_at)
      VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, o.ID, o.Branch, o.Tier, o.PrizeName, o.Icon, o.Jackpot, o.SettledAt)
	if err != nil {
		return fmt.Errorf("insert raffle win: %w", err)
	}
	return nil
}

// List returns wins newest first.
func (s *PGStore) List(ctx context.Context, q Query) ([]Outcome, error) {
	query, args := listQuery(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list raffle wins: %w", err)
	}
	defer rows.Close()
	list := []Outcome{}
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.ID, &o.Branch, &o.Tier, &o.PrizeName, &o.Icon, &o.Jackpot, &o.SettledAt); err != nil {
			return nil, fmt.Errorf("scan raffle win: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func listQuery(q Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q.Branch != "" {
		args = append(args, q.Branch)
		where = append(where, fmt.Sprintf("branch = $%d", len(args)))
	}
	if q.Tier != "" {
		args = append(args, q.Tier)
		where = append(where, fmt.Sprintf("tier = $%d", len(args)))
	}
	var b strings.Builder
	b.WriteString("SELECT id::text, branch, tier, prize_name, icon, jackpot, created_at FROM raffle_wins")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}
