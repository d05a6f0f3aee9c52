// Package market implements the fan investment pipeline: stakes are
// staged optimistically against visible totals, then committed or
// reverted by the persistence outcome.
package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/logging"
)

// Config carries the market tunables.
type Config struct {
	PayoutPerPlayCents int64
	MinInvestCents     int64
}

// PlayCounts supplies per-track play counts for valuation. The library
// play repository satisfies it.
type PlayCounts interface {
	CountsForTracks(ctx context.Context, trackIDs []string) (map[string]int64, error)
}

// Market stages, settles and values investments.
type Market struct {
	ledger *Ledger
	log    *logging.Logger
	cfg    Config

	mu       sync.Mutex
	staged   map[string]int64
	onRevert func(Investment, error)
}

// New creates a market over the ledger.
func New(ledger *Ledger, cfg Config, log *logging.Logger) *Market {
	if log == nil {
		log = logging.Discard()
	}
	if cfg.PayoutPerPlayCents <= 0 {
		cfg.PayoutPerPlayCents = 1
	}
	return &Market{
		ledger: ledger,
		log:    log,
		cfg:    cfg,
		staged: make(map[string]int64),
	}
}

// OnRevert registers a callback fired whenever a staged investment
// rolls back, with the cause.
func (m *Market) OnRevert(fn func(Investment, error)) {
	m.mu.Lock()
	m.onRevert = fn
	m.mu.Unlock()
}

// Op is one staged investment awaiting settlement.
type Op struct {
	m *Market

	mu      sync.Mutex
	inv     Investment
	settled bool
}

// Stage journals a pending investment and applies it to visible totals
// immediately. The returned Op must be committed or reverted.
func (m *Market) Stage(ctx context.Context, userID, trackID string, amountCents int64) (*Op, error) {
	if amountCents <= 0 || amountCents < m.cfg.MinInvestCents {
		return nil, errors.ErrInvalidAmount
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating investment id: %w", err)
	}
	inv := Investment{
		ID:          id.String(),
		UserID:      userID,
		TrackID:     trackID,
		AmountCents: amountCents,
		State:       StatePending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := m.ledger.Insert(ctx, inv); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.staged[trackID] += amountCents
	m.mu.Unlock()

	m.log.Debugf("staged %s on track %s for user %s", FormatCents(amountCents), trackID, userID)
	return &Op{m: m, inv: inv}, nil
}

// Invest stages and immediately commits a stake.
func (m *Market) Invest(ctx context.Context, userID, trackID string, amountCents int64) (Investment, error) {
	op, err := m.Stage(ctx, userID, trackID, amountCents)
	if err != nil {
		return Investment{}, err
	}
	if err := op.Commit(ctx); err != nil {
		return op.Investment(), err
	}
	return op.Investment(), nil
}

// Investment returns the op's current view of the stake.
func (op *Op) Investment() Investment {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.inv
}

// Commit settles the stake into the ledger. A failed settle rolls the
// optimistic total back and reports through OnRevert.
func (op *Op) Commit(ctx context.Context) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.settled {
		return errors.ErrInvestmentSettled
	}

	now := time.Now().UTC()
	if err := op.m.ledger.Settle(ctx, op.inv.ID, StateCommitted, now); err != nil {
		op.settled = true
		op.inv.State = StateReverted
		op.m.unstage(op.inv, err)
		return err
	}

	op.settled = true
	op.inv.State = StateCommitted
	op.inv.SettledAt = &now
	op.m.clearStaged(op.inv)
	return nil
}

// Revert rolls the stake back, restoring totals. cause is surfaced to
// the OnRevert callback.
func (op *Op) Revert(ctx context.Context, cause error) error {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.settled {
		return errors.ErrInvestmentSettled
	}

	op.settled = true
	op.inv.State = StateReverted
	now := time.Now().UTC()
	op.inv.SettledAt = &now

	if err := op.m.ledger.Settle(ctx, op.inv.ID, StateReverted, now); err != nil {
		// The journal row stays pending; totals are still corrected.
		op.m.log.Warnf("settling reverted investment %s: %v", op.inv.ID, err)
	}
	op.m.unstage(op.inv, cause)
	return nil
}

// clearStaged moves a committed stake out of the optimistic layer; the
// ledger now counts it.
func (m *Market) clearStaged(inv Investment) {
	m.mu.Lock()
	m.staged[inv.TrackID] -= inv.AmountCents
	if m.staged[inv.TrackID] <= 0 {
		delete(m.staged, inv.TrackID)
	}
	m.mu.Unlock()
}

// unstage drops a reverted stake and notifies the revert callback.
func (m *Market) unstage(inv Investment, cause error) {
	m.mu.Lock()
	m.staged[inv.TrackID] -= inv.AmountCents
	if m.staged[inv.TrackID] <= 0 {
		delete(m.staged, inv.TrackID)
	}
	fn := m.onRevert
	m.mu.Unlock()

	if fn != nil {
		fn(inv, cause)
	}
}

// TrackTotal returns the visible stake on a track: committed plus
// staged-but-unsettled.
func (m *Market) TrackTotal(ctx context.Context, trackID string) (int64, error) {
	totals, err := m.ledger.CommittedTotals(ctx, []string{trackID})
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	staged := m.staged[trackID]
	m.mu.Unlock()
	return totals[trackID] + staged, nil
}

// History lists a user's investments, newest first.
func (m *Market) History(ctx context.Context, userID string) ([]Investment, error) {
	return m.ledger.ByUser(ctx, userID)
}
