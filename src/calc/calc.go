// Package calc holds the pure calculation primitives shared by the CFD
// engine, the portfolio manager, and the trading engine: notional, margin,
// P&L, leverage and liquidation-threshold arithmetic. Every function here is
// side-effect free and safe to call from any goroutine.
package calc

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrBadLeverage is returned by MarginRequired when leverage is not strictly
// positive.
var ErrBadLeverage = errors.New("calc: leverage must be greater than zero")

// MoneyScale is the decimal scale every currency-denominated result is
// rounded to before being stored or compared. Rounding is bankers' rounding
// (round-half-to-even), matching decimal.Decimal.RoundBank.
const MoneyScale = 2

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyScale)
}

// Notional is quantity * price: the economic exposure of a position,
// independent of leverage or margin.
func Notional(qty, price decimal.Decimal) decimal.Decimal {
	return roundMoney(qty.Mul(price))
}

// MarginRequired is notional / leverage. Leverage of zero or less is
// rejected rather than silently treated as 1x.
func MarginRequired(notional, leverage decimal.Decimal) (decimal.Decimal, error) {
	if leverage.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrBadLeverage
	}
	return roundMoney(notional.Div(leverage)), nil
}

// UnrealizedPnL is (mark - entry) * qty for a long position and
// (entry - mark) * qty for a short one.
func UnrealizedPnL(side string, qty, entry, mark decimal.Decimal) decimal.Decimal {
	diff := mark.Sub(entry)
	if side == "short" {
		diff = entry.Sub(mark)
	}
	return roundMoney(diff.Mul(qty))
}

// Equity is cash balance plus unrealized P&L across all open positions.
func Equity(cashBalance, unrealizedPnL decimal.Decimal) decimal.Decimal {
	return roundMoney(cashBalance.Add(unrealizedPnL))
}

// AvailableMargin is equity minus reserved margin: the free collateral a new
// order can draw against.
func AvailableMargin(equity, reservedMargin decimal.Decimal) decimal.Decimal {
	return roundMoney(equity.Sub(reservedMargin))
}

// CurrentLeverage is total open notional divided by equity, or zero when
// equity is not positive — an insolvent or freshly-liquidated portfolio
// reports no leverage rather than dividing by a non-positive number.
func CurrentLeverage(totalNotional, equity decimal.Decimal) decimal.Decimal {
	if equity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return totalNotional.Div(equity).RoundBank(4)
}

// MarginLevel is equity divided by reserved margin, or nil when no margin is
// in use — the ratio is undefined, not zero or infinite, with nothing
// reserved.
func MarginLevel(equity, reservedMargin decimal.Decimal) *decimal.Decimal {
	if reservedMargin.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	level := equity.Div(reservedMargin).RoundBank(4)
	return &level
}

// PnLPct is pnl as a percentage of basis, or zero when basis is not
// positive — a return is undefined against zero or negative starting
// capital rather than dividing by it.
func PnLPct(pnl, basis decimal.Decimal) decimal.Decimal {
	if basis.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return pnl.Div(basis).Mul(decimal.NewFromInt(100)).RoundBank(4)
}

// LiquidationTriggered reports whether a portfolio with margin in use has
// fallen below its maintenance requirement. A portfolio with no reserved
// margin can never be liquidated regardless of equity.
func LiquidationTriggered(equity, reservedMargin, maintenancePct decimal.Decimal) bool {
	if reservedMargin.LessThanOrEqual(decimal.Zero) {
		return false
	}
	level := MarginLevel(equity, reservedMargin)
	if level == nil {
		return false
	}
	return level.LessThan(maintenancePct)
}
