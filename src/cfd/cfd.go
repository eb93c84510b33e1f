// Package cfd computes CFD position lifecycle transitions: opening,
// repricing and closing. It holds no persistence or portfolio state of its
// own — src/portfolio applies the deltas it returns inside a per-participant
// critical section.
package cfd

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/calc"
	"agentarena/src/model"
)

// Engine computes position metrics and transitions. It is stateless aside
// from an injectable clock, so a single Engine is safe for concurrent use.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// CloseResult is what closing a position releases back to the portfolio:
// realized P&L (signed) and the margin that was backing it.
type CloseResult struct {
	RealizedPnL    decimal.Decimal
	MarginReleased decimal.Decimal
}

// Open creates a new position at entry_price == mark_price, with zero
// unrealized P&L, per cfd_engine.py's open_position. Leverage must be
// strictly positive; the margin-required computation otherwise fails.
func (e *Engine) Open(portfolioID uuid.UUID, symbol, side string, quantity, entryPrice, leverage decimal.Decimal) (*model.Position, error) {
	notional := calc.Notional(quantity, entryPrice)
	margin, err := calc.MarginRequired(notional, leverage)
	if err != nil {
		return nil, err
	}

	return &model.Position{
		ID:             uuid.New(),
		PortfolioID:    portfolioID,
		Symbol:         symbol,
		Side:           side,
		Quantity:       quantity,
		EntryPrice:     entryPrice,
		MarkPrice:      entryPrice,
		Leverage:       leverage,
		ReservedMargin: margin,
		UnrealizedPnL:  decimal.Zero,
		OpenedAt:       e.now(),
	}, nil
}

// Reprice recomputes a position's mark and unrealized P&L against a new
// price. It mutates and returns the same position, matching
// cfd_engine.py's update_position_price.
func (e *Engine) Reprice(position *model.Position, mark decimal.Decimal) *model.Position {
	position.MarkPrice = mark
	position.UnrealizedPnL = calc.UnrealizedPnL(position.Side, position.Quantity, position.EntryPrice, mark)
	return position
}

// Close reprices a position against the closing price one last time and
// returns what it releases back to the portfolio. The caller is responsible
// for removing the position once the release has been applied.
func (e *Engine) Close(position *model.Position, closingPrice decimal.Decimal) CloseResult {
	e.Reprice(position, closingPrice)
	return CloseResult{
		RealizedPnL:    position.UnrealizedPnL,
		MarginReleased: position.ReservedMargin,
	}
}
