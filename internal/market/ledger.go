package market

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/murexstreams/murex/internal/errors"
)

// Investment is one fan stake in a track.
type Investment struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	TrackID     string          `db:"track_id" json:"track_id"`
	AmountCents int64           `db:"amount_cents" json:"amount_cents"`
	State       InvestmentState `db:"state" json:"state"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	SettledAt   *time.Time      `db:"settled_at" json:"settled_at,omitempty"`
}

var ledgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS investments (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		track_id     TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		state        TEXT NOT NULL,
		created_at   TIMESTAMP NOT NULL,
		settled_at   TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_investments_track ON investments(track_id)`,
}

// Ledger is the durable record of investments.
type Ledger struct {
	db *sqlx.DB
}

// NewLedger ensures the investments schema and returns the ledger.
func NewLedger(db *sqlx.DB) (*Ledger, error) {
	for _, stmt := range ledgerSchema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("bootstrapping ledger schema: %w", err)
		}
	}
	return &Ledger{db: db}, nil
}

// Insert journals a new investment row in its current state.
func (l *Ledger) Insert(ctx context.Context, inv Investment) error {
	query := l.db.Rebind(`INSERT INTO investments
		(id, user_id, track_id, amount_cents, state, created_at, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := l.db.ExecContext(ctx, query,
		inv.ID, inv.UserID, inv.TrackID, inv.AmountCents, inv.State, inv.CreatedAt, inv.SettledAt)
	if err != nil {
		return fmt.Errorf("journaling investment: %w", err)
	}
	return nil
}

// Settle finalizes a pending investment. Settling a row twice, or one
// that never existed, fails.
func (l *Ledger) Settle(ctx context.Context, id string, state InvestmentState, at time.Time) error {
	if !state.IsSettled() {
		return fmt.Errorf("settling investment %s to %q: not a final state", id, state)
	}
	query := l.db.Rebind(`UPDATE investments SET state = ?, settled_at = ?
		WHERE id = ? AND state = ?`)
	res, err := l.db.ExecContext(ctx, query, state, at, id, StatePending)
	if err != nil {
		return fmt.Errorf("settling investment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settling investment %s: %w", id, err)
	}
	if n == 0 {
		var exists int
		check := l.db.Rebind(`SELECT COUNT(*) FROM investments WHERE id = ?`)
		if err := l.db.GetContext(ctx, &exists, check, id); err == nil && exists == 0 {
			return errors.ErrInvestmentMissing
		}
		return errors.ErrInvestmentSettled
	}
	return nil
}

// ByID fetches one investment.
func (l *Ledger) ByID(ctx context.Context, id string) (Investment, error) {
	query := l.db.Rebind(`SELECT * FROM investments WHERE id = ?`)
	var inv Investment
	if err := l.db.GetContext(ctx, &inv, query, id); err != nil {
		if err == sql.ErrNoRows {
			return Investment{}, errors.ErrInvestmentMissing
		}
		return Investment{}, fmt.Errorf("fetching investment %s: %w", id, err)
	}
	return inv, nil
}

// ByUser lists a user's investments, newest first.
func (l *Ledger) ByUser(ctx context.Context, userID string) ([]Investment, error) {
	query := l.db.Rebind(`SELECT * FROM investments WHERE user_id = ? ORDER BY created_at DESC`)
	var invs []Investment
	if err := l.db.SelectContext(ctx, &invs, query, userID); err != nil {
		return nil, fmt.Errorf("listing investments for %s: %w", userID, err)
	}
	return invs, nil
}

// CommittedTotals sums committed stakes per track.
func (l *Ledger) CommittedTotals(ctx context.Context, trackIDs []string) (map[string]int64, error) {
	totals := make(map[string]int64, len(trackIDs))
	if len(trackIDs) == 0 {
		return totals, nil
	}

	query, args, err := sqlx.In(`SELECT track_id, SUM(amount_cents) AS total
		FROM investments WHERE state = ? AND track_id IN (?)
		GROUP BY track_id`, StateCommitted, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("building totals query: %w", err)
	}
	query = l.db.Rebind(query)

	rows, err := l.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summing track stakes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trackID string
		var total int64
		if err := rows.Scan(&trackID, &total); err != nil {
			return nil, fmt.Errorf("scanning track total: %w", err)
		}
		totals[trackID] = total
	}
	return totals, rows.Err()
}

// CommittedStakes sums one user's committed stakes per track.
func (l *Ledger) CommittedStakes(ctx context.Context, userID string) (map[string]int64, error) {
	query := l.db.Rebind(`SELECT track_id, SUM(amount_cents) AS stake
		FROM investments WHERE state = ? AND user_id = ?
		GROUP BY track_id`)

	rows, err := l.db.QueryxContext(ctx, query, StateCommitted, userID)
	if err != nil {
		return nil, fmt.Errorf("summing stakes for %s: %w", userID, err)
	}
	defer rows.Close()

	stakes := make(map[string]int64)
	for rows.Next() {
		var trackID string
		var stake int64
		if err := rows.Scan(&trackID, &stake); err != nil {
			return nil, fmt.Errorf("scanning stake: %w", err)
		}
		stakes[trackID] = stake
	}
	return stakes, rows.Err()
}
