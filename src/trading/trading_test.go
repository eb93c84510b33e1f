package trading

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

func newState() *State {
	participantID := uuid.New()
	portfolioID := uuid.New()

	return &State{
		Participant: &model.Participant{
			ID:             participantID,
			Status:         model.ParticipantStatusActive,
			InitialCapital: d("1000"),
			CurrentEquity:  d("1000"),
			PeakEquity:     d("1000"),
		},
		Competition: &model.Competition{
			Status:             model.CompetitionStatusActive,
			StartTime:          time.Now().Add(-time.Hour),
			EndTime:            time.Now().Add(time.Hour),
			MaxLeverage:        d("10"),
			MaxPositionSizePct: d("50"),
			AllowedInstruments: model.NewStringSet("BTC-USD"),
		},
		Portfolio: &model.Portfolio{
			ID:            portfolioID,
			ParticipantID: participantID,
			CashBalance:   d("1000"),
		},
		Marks: map[string]decimal.Decimal{"BTC-USD": d("100")},
	}
}

func TestExecuteOpenThenCloseAtProfit(t *testing.T) {
	st := newState()
	engine := NewEngine(cfd.NewEngine())

	openOrder := &model.Order{
		ID:            uuid.New(),
		ParticipantID: st.Participant.ID,
		Action:        model.OrderActionOpen,
		Symbol:        "BTC-USD",
		Side:          model.SideLong,
		Quantity:      d("1"),
		Leverage:      d("5"),
	}

	out := engine.Execute(st, openOrder)
	if openOrder.Status != model.OrderStatusExecuted {
		t.Fatalf("open status = %s, want executed", openOrder.Status)
	}
	if out.Trade == nil {
		t.Fatal("expected a trade for the open order")
	}
	if len(st.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(st.Positions))
	}
	if !st.Portfolio.ReservedMargin.Equal(d("20")) {
		t.Fatalf("reserved margin = %s, want 20", st.Portfolio.ReservedMargin)
	}

	st.Marks["BTC-USD"] = d("150")
	positionID := st.Positions[0].ID
	closeOrder := &model.Order{
		ID:               uuid.New(),
		ParticipantID:    st.Participant.ID,
		Action:           model.OrderActionClose,
		Symbol:           "BTC-USD",
		TargetPositionID: &positionID,
	}

	out = engine.Execute(st, closeOrder)
	if closeOrder.Status != model.OrderStatusExecuted {
		t.Fatalf("close status = %s rejection=%s, want executed", closeOrder.Status, closeOrder.RejectionReason)
	}
	if len(st.Positions) != 0 {
		t.Fatalf("positions after close = %d, want 0", len(st.Positions))
	}
	if out.Trade == nil || out.Trade.RealizedPnL == nil || !out.Trade.RealizedPnL.Equal(d("50")) {
		t.Fatalf("realized pnl = %v, want 50", out.Trade)
	}
	if st.Participant.WinningTrades != 1 {
		t.Fatalf("winning trades = %d, want 1", st.Participant.WinningTrades)
	}
	if !st.Portfolio.ReservedMargin.IsZero() {
		t.Fatalf("reserved margin after close = %s, want 0", st.Portfolio.ReservedMargin)
	}
}

func TestExecuteOpenRejectsSizeCapIndependentOfLeverage(t *testing.T) {
	st := newState()
	engine := NewEngine(cfd.NewEngine())

	// Notional 600 > 50% of 1000 equity cap, even though high leverage would
	// make the margin requirement trivially affordable.
	order := &model.Order{
		ID:            uuid.New(),
		ParticipantID: st.Participant.ID,
		Action:        model.OrderActionOpen,
		Symbol:        "BTC-USD",
		Side:          model.SideLong,
		Quantity:      d("6"),
		Leverage:      d("10"),
	}

	engine.Execute(st, order)
	if order.Status != model.OrderStatusRejected {
		t.Fatalf("status = %s, want rejected", order.Status)
	}
	if order.RejectionReason != model.ReasonSizeCapExceeded {
		t.Fatalf("reason = %s, want %s", order.RejectionReason, model.ReasonSizeCapExceeded)
	}
}

func TestExecuteOpenRejectsInsufficientMargin(t *testing.T) {
	st := newState()
	st.Portfolio.CashBalance = d("1000")
	st.Portfolio.ReservedMargin = d("950")
	engine := NewEngine(cfd.NewEngine())

	order := &model.Order{
		ID:            uuid.New(),
		ParticipantID: st.Participant.ID,
		Action:        model.OrderActionOpen,
		Symbol:        "BTC-USD",
		Side:          model.SideLong,
		Quantity:      d("1"),
		Leverage:      d("1"),
	}

	engine.Execute(st, order)
	if order.RejectionReason != model.ReasonInsufficientMargin {
		t.Fatalf("reason = %s, want %s", order.RejectionReason, model.ReasonInsufficientMargin)
	}
}

func TestExecuteCloseByPositionIDOmittedSideAndQuantity(t *testing.T) {
	st := newState()
	engine := NewEngine(cfd.NewEngine())

	openOrder := &model.Order{
		ID:            uuid.New(),
		ParticipantID: st.Participant.ID,
		Action:        model.OrderActionOpen,
		Symbol:        "BTC-USD",
		Side:          model.SideShort,
		Quantity:      d("2"),
		Leverage:      d("2"),
	}
	engine.Execute(st, openOrder)

	positionID := st.Positions[0].ID
	closeOrder := &model.Order{
		ID:               uuid.New(),
		ParticipantID:    st.Participant.ID,
		Action:           model.OrderActionClose,
		Symbol:           "BTC-USD",
		TargetPositionID: &positionID,
	}

	engine.Execute(st, closeOrder)
	if closeOrder.Status != model.OrderStatusExecuted {
		t.Fatalf("status = %s reason=%s, want executed", closeOrder.Status, closeOrder.RejectionReason)
	}
	if !closeOrder.Quantity.Equal(d("2")) {
		t.Fatalf("derived quantity = %s, want 2", closeOrder.Quantity)
	}
	if closeOrder.Side != model.SideShort {
		t.Fatalf("derived side = %s, want short", closeOrder.Side)
	}
}

func TestExecuteRejectsUnknownPosition(t *testing.T) {
	st := newState()
	engine := NewEngine(cfd.NewEngine())

	missing := uuid.New()
	closeOrder := &model.Order{
		ID:               uuid.New(),
		ParticipantID:    st.Participant.ID,
		Action:           model.OrderActionClose,
		Symbol:           "BTC-USD",
		TargetPositionID: &missing,
	}

	engine.Execute(st, closeOrder)
	if closeOrder.RejectionReason != model.ReasonPositionNotOwned {
		t.Fatalf("reason = %s, want %s", closeOrder.RejectionReason, model.ReasonPositionNotOwned)
	}
}
