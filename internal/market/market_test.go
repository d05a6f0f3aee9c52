package market

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/logging"
)

func newTestMarket(t *testing.T) *Market {
	t.Helper()
	return New(openTestLedger(t), Config{PayoutPerPlayCents: 10, MinInvestCents: 100}, logging.Discard())
}

// stubCounts satisfies PlayCounts from a fixed map.
type stubCounts map[string]int64

func (s stubCounts) CountsForTracks(_ context.Context, trackIDs []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, id := range trackIDs {
		if n, ok := s[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func TestStageAppliesOptimisticTotal(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	op, err := m.Stage(ctx, "u1", "t1", 500)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	total, err := m.TrackTotal(ctx, "t1")
	if err != nil {
		t.Fatalf("TrackTotal() error = %v", err)
	}
	if total != 500 {
		t.Errorf("TrackTotal() = %d before commit, want 500", total)
	}

	inv, err := m.ledger.ByID(ctx, op.Investment().ID)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if inv.State != StatePending {
		t.Errorf("journaled state = %q, want %q", inv.State, StatePending)
	}
}

func TestCommitSettlesDurably(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	op, err := m.Stage(ctx, "u1", "t1", 500)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := op.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	inv := op.Investment()
	if inv.State != StateCommitted {
		t.Errorf("State = %q, want %q", inv.State, StateCommitted)
	}
	if inv.SettledAt == nil {
		t.Error("SettledAt = nil after commit, want set")
	}

	stored, err := m.ledger.ByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if stored.State != StateCommitted {
		t.Errorf("stored state = %q, want %q", stored.State, StateCommitted)
	}

	// The stake must move from the staged overlay into the committed
	// sum without double counting.
	total, err := m.TrackTotal(ctx, "t1")
	if err != nil {
		t.Fatalf("TrackTotal() error = %v", err)
	}
	if total != 500 {
		t.Errorf("TrackTotal() = %d after commit, want 500", total)
	}
}

func TestRevertRestoresTotal(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	var gotInv Investment
	var gotCause error
	m.OnRevert(func(inv Investment, cause error) {
		gotInv = inv
		gotCause = cause
	})

	op, err := m.Stage(ctx, "u1", "t1", 500)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	cause := stderrors.New("payment declined")
	if err := op.Revert(ctx, cause); err != nil {
		t.Fatalf("Revert() error = %v", err)
	}

	total, err := m.TrackTotal(ctx, "t1")
	if err != nil {
		t.Fatalf("TrackTotal() error = %v", err)
	}
	if total != 0 {
		t.Errorf("TrackTotal() = %d after revert, want 0", total)
	}

	stored, err := m.ledger.ByID(ctx, op.Investment().ID)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if stored.State != StateReverted {
		t.Errorf("stored state = %q, want %q", stored.State, StateReverted)
	}

	if gotInv.ID != op.Investment().ID {
		t.Errorf("OnRevert investment = %q, want %q", gotInv.ID, op.Investment().ID)
	}
	if gotCause != cause {
		t.Errorf("OnRevert cause = %v, want %v", gotCause, cause)
	}
}

func TestSettleTwiceOnOp(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	op, err := m.Stage(ctx, "u1", "t1", 500)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := op.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if err := op.Commit(ctx); !stderrors.Is(err, errors.ErrInvestmentSettled) {
		t.Errorf("second Commit() error = %v, want ErrInvestmentSettled", err)
	}
	if err := op.Revert(ctx, nil); !stderrors.Is(err, errors.ErrInvestmentSettled) {
		t.Errorf("Revert() after Commit() error = %v, want ErrInvestmentSettled", err)
	}
}

func TestStageRejectsSmallAmounts(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	for _, amount := range []int64{-50, 0, 99} {
		if _, err := m.Stage(ctx, "u1", "t1", amount); !stderrors.Is(err, errors.ErrInvalidAmount) {
			t.Errorf("Stage(%d) error = %v, want ErrInvalidAmount", amount, err)
		}
	}

	total, err := m.TrackTotal(ctx, "t1")
	if err != nil {
		t.Fatalf("TrackTotal() error = %v", err)
	}
	if total != 0 {
		t.Errorf("TrackTotal() = %d after rejected stages, want 0", total)
	}
}

func TestCommitFailureRollsBack(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	reverted := false
	m.OnRevert(func(Investment, error) { reverted = true })

	op, err := m.Stage(ctx, "u1", "t1", 500)
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	// Settle the row out from under the op so its commit loses the
	// race and must roll back the optimistic total.
	if err := m.ledger.Settle(ctx, op.Investment().ID, StateReverted, op.Investment().CreatedAt); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if err := op.Commit(ctx); err == nil {
		t.Fatal("Commit() error = nil, want error")
	}
	if op.Investment().State != StateReverted {
		t.Errorf("State = %q after failed commit, want %q", op.Investment().State, StateReverted)
	}
	if !reverted {
		t.Error("OnRevert was not fired for failed commit")
	}

	total, err := m.TrackTotal(ctx, "t1")
	if err != nil {
		t.Fatalf("TrackTotal() error = %v", err)
	}
	if total != 0 {
		t.Errorf("TrackTotal() = %d after failed commit, want 0", total)
	}
}

func TestInvestOneShot(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	inv, err := m.Invest(ctx, "u1", "t1", 1500)
	if err != nil {
		t.Fatalf("Invest() error = %v", err)
	}
	if inv.State != StateCommitted {
		t.Errorf("State = %q, want %q", inv.State, StateCommitted)
	}

	total, err := m.TrackTotal(ctx, "t1")
	if err != nil {
		t.Fatalf("TrackTotal() error = %v", err)
	}
	if total != 1500 {
		t.Errorf("TrackTotal() = %d, want 1500", total)
	}

	history, err := m.History(ctx, "u1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].State != StateCommitted {
		t.Errorf("History() = %+v, want one committed investment", history)
	}
}

func TestTrackTotalMergesStagedAndCommitted(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	if _, err := m.Invest(ctx, "u1", "t1", 300); err != nil {
		t.Fatalf("Invest() error = %v", err)
	}
	if _, err := m.Stage(ctx, "u2", "t1", 200); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	total, err := m.TrackTotal(ctx, "t1")
	if err != nil {
		t.Fatalf("TrackTotal() error = %v", err)
	}
	if total != 500 {
		t.Errorf("TrackTotal() = %d, want 500 (300 committed + 200 staged)", total)
	}
}

func TestPortfolio(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	// u1 owns half of t1 and all of t2; t1 earns more plays.
	if _, err := m.Invest(ctx, "u1", "t1", 500); err != nil {
		t.Fatalf("Invest() error = %v", err)
	}
	if _, err := m.Invest(ctx, "u2", "t1", 500); err != nil {
		t.Fatalf("Invest() error = %v", err)
	}
	if _, err := m.Invest(ctx, "u1", "t2", 400); err != nil {
		t.Fatalf("Invest() error = %v", err)
	}

	positions, err := m.Portfolio(ctx, "u1", stubCounts{"t1": 100, "t2": 20})
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("Portfolio() returned %d positions, want 2", len(positions))
	}

	// 100 plays at 10c is 1000c revenue; a half stake returns 500c,
	// ahead of t2's full-ownership 200c.
	first := positions[0]
	if first.TrackID != "t1" {
		t.Fatalf("positions[0].TrackID = %q, want t1", first.TrackID)
	}
	if first.StakeCents != 500 || first.TotalCents != 1000 {
		t.Errorf("t1 stake/total = %d/%d, want 500/1000", first.StakeCents, first.TotalCents)
	}
	if first.RevenueCents != 1000 {
		t.Errorf("t1 revenue = %d, want 1000", first.RevenueCents)
	}
	if first.ReturnCents != 500 {
		t.Errorf("t1 return = %d, want 500", first.ReturnCents)
	}

	second := positions[1]
	if second.TrackID != "t2" {
		t.Fatalf("positions[1].TrackID = %q, want t2", second.TrackID)
	}
	if second.ReturnCents != 200 {
		t.Errorf("t2 return = %d, want 200", second.ReturnCents)
	}
}

func TestPortfolioEmpty(t *testing.T) {
	m := newTestMarket(t)

	positions, err := m.Portfolio(context.Background(), "nobody", stubCounts{})
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}
	if positions != nil {
		t.Errorf("Portfolio() = %v, want nil", positions)
	}
}

func TestPortfolioExcludesStagedStakes(t *testing.T) {
	m := newTestMarket(t)
	ctx := context.Background()

	if _, err := m.Stage(ctx, "u1", "t1", 500); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	positions, err := m.Portfolio(ctx, "u1", stubCounts{"t1": 10})
	if err != nil {
		t.Fatalf("Portfolio() error = %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("Portfolio() counted a staged stake: %+v", positions)
	}
}
