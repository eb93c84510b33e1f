package portfolio

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/cfd"
	"agentarena/src/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyOpenThenClose(t *testing.T) {
	p := model.Portfolio{ID: uuid.New(), CashBalance: d("1000")}

	Apply(&p, OpenDelta(d("100")))
	if !p.ReservedMargin.Equal(d("100")) {
		t.Fatalf("reserved margin after open = %s, want 100", p.ReservedMargin)
	}
	if !p.CashBalance.Equal(d("1000")) {
		t.Fatalf("cash should be unchanged on open, got %s", p.CashBalance)
	}

	Apply(&p, CloseDelta(cfd.CloseResult{RealizedPnL: d("25"), MarginReleased: d("100")}))
	if !p.ReservedMargin.IsZero() {
		t.Fatalf("reserved margin after close = %s, want 0", p.ReservedMargin)
	}
	if !p.CashBalance.Equal(d("1025")) {
		t.Fatalf("cash after close = %s, want 1025", p.CashBalance)
	}
	if !p.RealizedPnL.Equal(d("25")) {
		t.Fatalf("realized pnl = %s, want 25", p.RealizedPnL)
	}
}

func TestSnapshotAggregatesPositions(t *testing.T) {
	p := model.Portfolio{CashBalance: d("1000"), ReservedMargin: d("100")}
	positions := []model.Position{
		{Symbol: "BTC-USD", Quantity: d("1"), MarkPrice: d("110"), UnrealizedPnL: d("10")},
		{Symbol: "ETH-USD", Quantity: d("2"), MarkPrice: d("50"), UnrealizedPnL: d("-5")},
	}

	view := Snapshot(p, positions)
	if !view.UnrealizedPnL.Equal(d("5")) {
		t.Fatalf("unrealized pnl = %s, want 5", view.UnrealizedPnL)
	}
	if !view.Equity.Equal(d("1005")) {
		t.Fatalf("equity = %s, want 1005", view.Equity)
	}
	if !view.AvailableMargin.Equal(d("905")) {
		t.Fatalf("available margin = %s, want 905", view.AvailableMargin)
	}
	if view.MarginLevel == nil || !view.MarginLevel.Equal(d("10.05")) {
		t.Fatalf("margin level = %v, want 10.05", view.MarginLevel)
	}
}

func TestSnapshotNoPositionsHasUndefinedMarginLevel(t *testing.T) {
	p := model.Portfolio{CashBalance: d("1000")}
	view := Snapshot(p, nil)
	if view.MarginLevel != nil {
		t.Fatalf("margin level = %v, want nil", view.MarginLevel)
	}
	if !view.Equity.Equal(d("1000")) {
		t.Fatalf("equity = %s, want 1000", view.Equity)
	}
}

func TestRepriceAllSkipsMissingMarks(t *testing.T) {
	engine := cfd.NewEngine()
	positions := []model.Position{
		{Symbol: "BTC-USD", Side: model.SideLong, Quantity: d("1"), EntryPrice: d("100"), MarkPrice: d("100")},
		{Symbol: "ETH-USD", Side: model.SideLong, Quantity: d("1"), EntryPrice: d("50"), MarkPrice: d("50")},
	}

	touched := RepriceAll(engine, positions, map[string]decimal.Decimal{"BTC-USD": d("120")})
	if len(touched) != 1 {
		t.Fatalf("touched = %d, want 1", len(touched))
	}
	if !positions[0].MarkPrice.Equal(d("120")) {
		t.Fatalf("BTC-USD mark = %s, want 120", positions[0].MarkPrice)
	}
	if !positions[1].MarkPrice.Equal(d("50")) {
		t.Fatalf("ETH-USD mark should be untouched, got %s", positions[1].MarkPrice)
	}
}

func TestLanesSerializeSameParticipant(t *testing.T) {
	lanes := NewLanes()
	participantID := uuid.New()

	unlock := lanes.Acquire(participantID)
	acquired := make(chan struct{})
	go func() {
		unlock2 := lanes.Acquire(participantID)
		close(acquired)
		unlock2()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while first lane was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired
}
