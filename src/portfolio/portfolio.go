// Package portfolio aggregates a participant's positions into derived
// portfolio metrics and applies the cash/margin deltas that opening and
// closing positions produce. It holds no database handle; src/repository
// persists what it computes.
package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/calc"
	"agentarena/src/cfd"
	"agentarena/src/model"
)

// Delta is a signed adjustment to a portfolio's written columns. Opening a
// position reserves margin without touching cash; closing one releases the
// margin and realizes P&L into cash, per portfolio_manager.py's "Model 1"
// margin accounting (margin is reserved, never actually debited from cash).
type Delta struct {
	CashDelta           decimal.Decimal
	ReservedMarginDelta decimal.Decimal
	RealizedPnLDelta    decimal.Decimal
}

// Apply writes a delta onto a portfolio's persisted columns. It does not
// recompute the derived fields — call Snapshot for those.
func Apply(p *model.Portfolio, delta Delta) {
	p.CashBalance = p.CashBalance.Add(delta.CashDelta)
	p.ReservedMargin = p.ReservedMargin.Add(delta.ReservedMarginDelta)
	p.RealizedPnL = p.RealizedPnL.Add(delta.RealizedPnLDelta)
	p.UpdatedAt = time.Now()
}

// OpenDelta is the delta an opened position's reserved margin produces.
// Cash is untouched; the position itself, not the portfolio, carries the
// margin figure going forward.
func OpenDelta(reservedMargin decimal.Decimal) Delta {
	return Delta{ReservedMarginDelta: reservedMargin}
}

// CloseDelta is the delta releasing a closed position produces: its margin
// stops being reserved and its realized P&L lands in cash.
func CloseDelta(result cfd.CloseResult) Delta {
	return Delta{
		CashDelta:           result.RealizedPnL,
		ReservedMarginDelta: result.MarginReleased.Neg(),
		RealizedPnLDelta:    result.RealizedPnL,
	}
}

// Snapshot recomputes every derived field from the portfolio's written
// columns and its current open positions, per portfolio_manager.py's
// update_portfolio. It is the single place unrealized P&L, equity, available
// margin, current leverage and margin level get computed from.
func Snapshot(p model.Portfolio, positions []model.Position) model.PortfolioView {
	var totalUnrealized, totalNotional decimal.Decimal
	for i := range positions {
		totalUnrealized = totalUnrealized.Add(positions[i].UnrealizedPnL)
		totalNotional = totalNotional.Add(positions[i].Notional())
	}

	equity := calc.Equity(p.CashBalance, totalUnrealized)

	return model.PortfolioView{
		Portfolio:       p,
		UnrealizedPnL:   totalUnrealized,
		Equity:          equity,
		AvailableMargin: calc.AvailableMargin(equity, p.ReservedMargin),
		CurrentLeverage: calc.CurrentLeverage(totalNotional, equity),
		MarginLevel:     calc.MarginLevel(equity, p.ReservedMargin),
		TotalPnL:        p.RealizedPnL.Add(totalUnrealized),
		Positions:       positions,
	}
}

// RepriceAll reprices every position whose symbol has a fresh mark, in
// place, returning the ones actually touched. Symbols absent from marks are
// left at their previous mark; nothing here logs or flags them.
func RepriceAll(engine *cfd.Engine, positions []model.Position, marks map[string]decimal.Decimal) []model.Position {
	touched := make([]model.Position, 0, len(positions))
	for i := range positions {
		mark, ok := marks[positions[i].Symbol]
		if !ok {
			continue
		}
		engine.Reprice(&positions[i], mark)
		touched = append(touched, positions[i])
	}
	return touched
}

// HistoryEntry snapshots a view into an immutable equity-curve row, per
// portfolio_manager.py's record_portfolio_history.
func HistoryEntry(participantID uuid.UUID, view model.PortfolioView, recordedAt time.Time) model.PortfolioHistory {
	return model.PortfolioHistory{
		ID:             uuid.New(),
		ParticipantID:  participantID,
		Equity:         view.Equity,
		CashBalance:    view.CashBalance,
		ReservedMargin: view.ReservedMargin,
		RealizedPnL:    view.RealizedPnL,
		UnrealizedPnL:  view.UnrealizedPnL,
		TotalPnL:       view.TotalPnL,
		RecordedAt:     recordedAt,
	}
}
