package trading

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/calc"
	"agentarena/src/model"
)

// ValidateOpen runs the totally-ordered open-order rule pipeline from spec
// §4.4 against a portfolio view. It returns "" on pass, or the first
// failing rule's stable reason code.
func ValidateOpen(participant *model.Participant, competition *model.Competition, now time.Time, view model.PortfolioView, symbol string, leverage, quantity decimal.Decimal, price *decimal.Decimal) string {
	if !participant.IsActive() {
		return model.ReasonParticipantInactive
	}
	if !competition.IsActiveAt(now) {
		return model.ReasonCompetitionInactive
	}
	if !competition.Allows(symbol) {
		return model.ReasonInstrumentDisallowed
	}
	if leverage.LessThanOrEqual(decimal.Zero) || leverage.GreaterThan(competition.MaxLeverage) {
		return model.ReasonLeverageOutOfBounds
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return model.ReasonQuantityNonPositive
	}
	if price == nil {
		return model.ReasonPriceUnavailable
	}

	notional := calc.Notional(quantity, *price)
	sizeCap := view.Equity.Mul(competition.MaxPositionSizePct).Div(decimal.NewFromInt(100))
	if notional.GreaterThan(sizeCap) {
		return model.ReasonSizeCapExceeded
	}

	marginRequired, err := calc.MarginRequired(notional, leverage)
	if err != nil {
		return model.ReasonLeverageOutOfBounds
	}
	if marginRequired.GreaterThan(view.AvailableMargin) {
		return model.ReasonInsufficientMargin
	}

	return ""
}

// ValidateClose runs the close-order rule pipeline. targetPosition is nil
// when no position matched by id or by the symbol fallback.
func ValidateClose(participant *model.Participant, competition *model.Competition, now time.Time, symbol string, price *decimal.Decimal, targetPosition *model.Position) string {
	if !participant.IsActive() {
		return model.ReasonParticipantInactive
	}
	if !competition.IsActiveAt(now) {
		return model.ReasonCompetitionInactive
	}
	if !competition.Allows(symbol) {
		return model.ReasonInstrumentDisallowed
	}
	if targetPosition == nil {
		return model.ReasonPositionNotOwned
	}
	if price == nil {
		return model.ReasonPriceUnavailable
	}
	return ""
}

// ResolveClosePosition implements spec §4.4 rule 4 for close orders: prefer
// an explicit position id, else fall back to the participant's sole open
// position for the symbol (ambiguous when more than one exists, which is
// treated as not found).
func ResolveClosePosition(positions []model.Position, portfolioID uuid.UUID, targetID *uuid.UUID, symbol string) *model.Position {
	if targetID != nil {
		for i := range positions {
			if positions[i].ID == *targetID && positions[i].PortfolioID == portfolioID {
				return &positions[i]
			}
		}
		return nil
	}

	var match *model.Position
	for i := range positions {
		if positions[i].PortfolioID != portfolioID || positions[i].Symbol != symbol {
			continue
		}
		if match != nil {
			return nil
		}
		match = &positions[i]
	}
	return match
}
