// Package trading validates and executes one order at a time under its
// competition's rules, dispatching to src/cfd for position arithmetic and
// src/portfolio for the resulting balance changes. It mutates the
// participant/portfolio/position values passed to it in place so that a
// caller iterating several orders sees each order's effect before
// validating the next, per spec §4.4's tie-breaking rule.
package trading

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/cfd"
	"agentarena/src/model"
	"agentarena/src/portfolio"
)

// Engine dispatches validated orders to the CFD and portfolio layers.
type Engine struct {
	cfd *cfd.Engine
	now func() time.Time
}

func NewEngine(cfdEngine *cfd.Engine) *Engine {
	return &Engine{cfd: cfdEngine, now: time.Now}
}

// State is the mutable working set threaded through a decision round's
// orders: the participant, competition, portfolio, open positions and the
// current price map. Execute mutates it in place.
type State struct {
	Participant *model.Participant
	Competition *model.Competition
	Portfolio   *model.Portfolio
	Positions   []model.Position
	Marks       map[string]decimal.Decimal
}

// Outcome is the per-order result handed back to the decision orchestrator
// for inclusion in the DecisionRecord, plus the Trade when one was created.
type Outcome struct {
	Order *model.Order
	Trade *model.Trade
	View  model.PortfolioView
}

// Execute validates and, on pass, executes one order against the current
// state, then recomputes the portfolio view. order.Action, order.Symbol and
// either order.Side/Quantity/Leverage (open) or order.TargetPositionID
// (close) must already be populated by the caller (src/decision's parser).
func (e *Engine) Execute(st *State, order *model.Order) Outcome {
	now := e.now()
	price := markFor(st.Marks, order.Symbol)

	view := portfolio.Snapshot(*st.Portfolio, st.Positions)

	switch order.Action {
	case model.OrderActionOpen:
		return e.executeOpen(st, order, view, price, now)
	case model.OrderActionClose:
		return e.executeClose(st, order, view, price, now)
	default:
		reject(order, model.ReasonInstrumentDisallowed)
		return Outcome{Order: order, View: view}
	}
}

func (e *Engine) executeOpen(st *State, order *model.Order, view model.PortfolioView, price *decimal.Decimal, now time.Time) Outcome {
	reason := ValidateOpen(st.Participant, st.Competition, now, view, order.Symbol, order.Leverage, order.Quantity, price)
	if reason != "" {
		reject(order, reason)
		return Outcome{Order: order, View: view}
	}

	pos, err := e.cfd.Open(st.Portfolio.ID, order.Symbol, order.Side, order.Quantity, *price, order.Leverage)
	if err != nil {
		reject(order, model.ReasonLeverageOutOfBounds)
		return Outcome{Order: order, View: view}
	}

	portfolio.Apply(st.Portfolio, portfolio.OpenDelta(pos.ReservedMargin))
	st.Positions = append(st.Positions, *pos)

	order.Status = model.OrderStatusExecuted
	order.ExecutedPrice = price

	trade := &model.Trade{
		ID:                  uuid.New(),
		ParticipantID:       order.ParticipantID,
		OrderID:             order.ID,
		Action:              model.OrderActionOpen,
		Symbol:              order.Symbol,
		Side:                order.Side,
		Quantity:            order.Quantity,
		ExecutedPrice:       *price,
		ReservedMarginDelta: pos.ReservedMargin,
		ExecutedAt:          now,
	}

	newView := portfolio.Snapshot(*st.Portfolio, st.Positions)
	st.Participant.RecordEquity(newView.Equity)

	return Outcome{Order: order, Trade: trade, View: newView}
}

func (e *Engine) executeClose(st *State, order *model.Order, view model.PortfolioView, price *decimal.Decimal, now time.Time) Outcome {
	target := ResolveClosePosition(st.Positions, st.Portfolio.ID, order.TargetPositionID, order.Symbol)

	reason := ValidateClose(st.Participant, st.Competition, now, order.Symbol, price, target)
	if reason != "" {
		reject(order, reason)
		return Outcome{Order: order, View: view}
	}

	return e.closeAndAccount(st, order, target, *price, now)
}

// ForceClose closes position unconditionally, bypassing the participant/
// competition-active and instrument-allowed checks ValidateClose would
// otherwise run. Spec §4.7 requires the liquidation monitor to close every
// open position of an insolvent portfolio even if the competition has since
// ended or the instrument was delisted, while still reusing the ordinary
// accounting path.
func (e *Engine) ForceClose(st *State, position *model.Position, price decimal.Decimal, now time.Time) Outcome {
	order := &model.Order{
		ID:               uuid.New(),
		ParticipantID:    st.Participant.ID,
		Action:           model.OrderActionClose,
		Symbol:           position.Symbol,
		TargetPositionID: &position.ID,
		CreatedAt:        now,
	}
	return e.closeAndAccount(st, order, position, price, now)
}

// closeAndAccount runs the shared tail of a close: cfd accounting, the
// portfolio delta, position removal, trade/order bookkeeping and the
// win/loss counters. Quantity/side are derived from the position when the
// order omitted them, per spec §4.5 step 4.
func (e *Engine) closeAndAccount(st *State, order *model.Order, target *model.Position, price decimal.Decimal, now time.Time) Outcome {
	if order.Quantity.IsZero() {
		order.Quantity = target.Quantity
	}
	if order.Side == "" {
		order.Side = target.Side
	}

	result := e.cfd.Close(target, price)
	portfolio.Apply(st.Portfolio, portfolio.CloseDelta(result))
	st.Positions = removePosition(st.Positions, target.ID)

	order.Status = model.OrderStatusExecuted
	order.ExecutedPrice = &price

	realized := result.RealizedPnL
	trade := &model.Trade{
		ID:                  uuid.New(),
		ParticipantID:       order.ParticipantID,
		OrderID:             order.ID,
		Action:              model.OrderActionClose,
		Symbol:              order.Symbol,
		Side:                order.Side,
		Quantity:            order.Quantity,
		ExecutedPrice:       price,
		RealizedPnL:         &realized,
		ReservedMarginDelta: result.MarginReleased.Neg(),
		ExecutedAt:          now,
	}

	st.Participant.TotalTrades++
	switch {
	case realized.IsPositive():
		st.Participant.WinningTrades++
	case realized.IsNegative():
		st.Participant.LosingTrades++
	}

	newView := portfolio.Snapshot(*st.Portfolio, st.Positions)
	st.Participant.RecordEquity(newView.Equity)

	return Outcome{Order: order, Trade: trade, View: newView}
}

func reject(order *model.Order, reason string) {
	order.Status = model.OrderStatusRejected
	order.RejectionReason = reason
}

func markFor(marks map[string]decimal.Decimal, symbol string) *decimal.Decimal {
	m, ok := marks[symbol]
	if !ok {
		return nil
	}
	return &m
}

func removePosition(positions []model.Position, id uuid.UUID) []model.Position {
	out := make([]model.Position, 0, len(positions))
	for _, p := range positions {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
