package market

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/murexstreams/murex/internal/errors"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ledger, err := NewLedger(db)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	return ledger
}

func pendingInvestment(id, userID, trackID string, amount int64, at time.Time) Investment {
	return Investment{
		ID:          id,
		UserID:      userID,
		TrackID:     trackID,
		AmountCents: amount,
		State:       StatePending,
		CreatedAt:   at,
	}
}

func TestLedgerInsertAndFetch(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := ledger.Insert(ctx, pendingInvestment("i1", "u1", "t1", 500, created)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	inv, err := ledger.ByID(ctx, "i1")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if inv.UserID != "u1" || inv.TrackID != "t1" {
		t.Errorf("ByID() = user %q track %q, want u1 t1", inv.UserID, inv.TrackID)
	}
	if inv.AmountCents != 500 {
		t.Errorf("AmountCents = %d, want 500", inv.AmountCents)
	}
	if inv.State != StatePending {
		t.Errorf("State = %q, want %q", inv.State, StatePending)
	}
	if inv.SettledAt != nil {
		t.Errorf("SettledAt = %v, want nil", inv.SettledAt)
	}
}

func TestLedgerByIDMissing(t *testing.T) {
	ledger := openTestLedger(t)

	_, err := ledger.ByID(context.Background(), "nope")
	if !stderrors.Is(err, errors.ErrInvestmentMissing) {
		t.Errorf("ByID() error = %v, want ErrInvestmentMissing", err)
	}
}

func TestLedgerSettle(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := ledger.Insert(ctx, pendingInvestment("i1", "u1", "t1", 500, created)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	settled := created.Add(time.Second)
	if err := ledger.Settle(ctx, "i1", StateCommitted, settled); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	inv, err := ledger.ByID(ctx, "i1")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if inv.State != StateCommitted {
		t.Errorf("State = %q, want %q", inv.State, StateCommitted)
	}
	if inv.SettledAt == nil {
		t.Fatal("SettledAt = nil, want set")
	}
}

func TestLedgerSettleTwice(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	if err := ledger.Insert(ctx, pendingInvestment("i1", "u1", "t1", 500, time.Now().UTC())); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := ledger.Settle(ctx, "i1", StateCommitted, time.Now().UTC()); err != nil {
		t.Fatalf("first Settle() error = %v", err)
	}

	err := ledger.Settle(ctx, "i1", StateReverted, time.Now().UTC())
	if !stderrors.Is(err, errors.ErrInvestmentSettled) {
		t.Errorf("second Settle() error = %v, want ErrInvestmentSettled", err)
	}
}

func TestLedgerSettleMissing(t *testing.T) {
	ledger := openTestLedger(t)

	err := ledger.Settle(context.Background(), "nope", StateCommitted, time.Now().UTC())
	if !stderrors.Is(err, errors.ErrInvestmentMissing) {
		t.Errorf("Settle() error = %v, want ErrInvestmentMissing", err)
	}
}

func TestLedgerSettleRejectsNonFinalState(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	if err := ledger.Insert(ctx, pendingInvestment("i1", "u1", "t1", 500, time.Now().UTC())); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := ledger.Settle(ctx, "i1", StatePending, time.Now().UTC()); err == nil {
		t.Error("Settle(pending) error = nil, want error")
	}
}

func TestLedgerByUserNewestFirst(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := ledger.Insert(ctx, pendingInvestment("i1", "u1", "t1", 100, base)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := ledger.Insert(ctx, pendingInvestment("i2", "u1", "t2", 200, base.Add(time.Minute))); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := ledger.Insert(ctx, pendingInvestment("i3", "u2", "t1", 300, base.Add(2*time.Minute))); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	invs, err := ledger.ByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ByUser() error = %v", err)
	}
	if len(invs) != 2 {
		t.Fatalf("ByUser() returned %d investments, want 2", len(invs))
	}
	if invs[0].ID != "i2" || invs[1].ID != "i1" {
		t.Errorf("ByUser() order = [%s %s], want [i2 i1]", invs[0].ID, invs[1].ID)
	}
}

func TestLedgerCommittedTotals(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := []struct {
		id, user, track string
		amount          int64
		settle          bool
	}{
		{"i1", "u1", "t1", 500, true},
		{"i2", "u2", "t1", 300, true},
		{"i3", "u1", "t2", 200, true},
		{"i4", "u1", "t1", 900, false},
	}
	for _, r := range rows {
		if err := ledger.Insert(ctx, pendingInvestment(r.id, r.user, r.track, r.amount, now)); err != nil {
			t.Fatalf("Insert(%s) error = %v", r.id, err)
		}
		if r.settle {
			if err := ledger.Settle(ctx, r.id, StateCommitted, now); err != nil {
				t.Fatalf("Settle(%s) error = %v", r.id, err)
			}
		}
	}

	totals, err := ledger.CommittedTotals(ctx, []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("CommittedTotals() error = %v", err)
	}
	if totals["t1"] != 800 {
		t.Errorf("total for t1 = %d, want 800", totals["t1"])
	}
	if totals["t2"] != 200 {
		t.Errorf("total for t2 = %d, want 200", totals["t2"])
	}
	if _, ok := totals["t3"]; ok {
		t.Error("CommittedTotals() invented a total for t3")
	}
}

func TestLedgerCommittedTotalsNoIDs(t *testing.T) {
	ledger := openTestLedger(t)

	totals, err := ledger.CommittedTotals(context.Background(), nil)
	if err != nil {
		t.Fatalf("CommittedTotals() error = %v", err)
	}
	if len(totals) != 0 {
		t.Errorf("CommittedTotals() = %v, want empty", totals)
	}
}

func TestLedgerCommittedStakes(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, r := range []struct {
		id, user, track string
		amount          int64
		settle          bool
	}{
		{"i1", "u1", "t1", 500, true},
		{"i2", "u1", "t1", 100, true},
		{"i3", "u1", "t2", 250, true},
		{"i4", "u2", "t1", 300, true},
		{"i5", "u1", "t3", 700, false},
	} {
		if err := ledger.Insert(ctx, pendingInvestment(r.id, r.user, r.track, r.amount, now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Insert(%s) error = %v", r.id, err)
		}
		if r.settle {
			if err := ledger.Settle(ctx, r.id, StateCommitted, now); err != nil {
				t.Fatalf("Settle(%s) error = %v", r.id, err)
			}
		}
	}

	stakes, err := ledger.CommittedStakes(ctx, "u1")
	if err != nil {
		t.Fatalf("CommittedStakes() error = %v", err)
	}
	if stakes["t1"] != 600 {
		t.Errorf("stake on t1 = %d, want 600", stakes["t1"])
	}
	if stakes["t2"] != 250 {
		t.Errorf("stake on t2 = %d, want 250", stakes["t2"])
	}
	if _, ok := stakes["t3"]; ok {
		t.Error("CommittedStakes() counted a pending stake")
	}
}

func TestInvestmentStateIsSettled(t *testing.T) {
	tests := []struct {
		state InvestmentState
		want  bool
	}{
		{StatePending, false},
		{StateCommitted, true},
		{StateReverted, true},
		{InvestmentState("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.state.IsSettled(); got != tt.want {
			t.Errorf("IsSettled(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestInvestmentStateValid(t *testing.T) {
	tests := []struct {
		state InvestmentState
		want  bool
	}{
		{StatePending, true},
		{StateCommitted, true},
		{StateReverted, true},
		{InvestmentState(""), false},
		{InvestmentState("done"), false},
	}
	for _, tt := range tests {
		if got := tt.state.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}
