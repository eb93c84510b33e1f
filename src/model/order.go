package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderActionOpen  = "open"
	OrderActionClose = "close"

	OrderSideBuy  = "buy"
	OrderSideSell = "sell"

	OrderStatusPending  = "pending"
	OrderStatusAccepted = "accepted"
	OrderStatusRejected = "rejected"
	OrderStatusExecuted = "executed"
)

// Rejection reason codes, stable and machine-readable per spec §7.
const (
	ReasonParticipantInactive  = "participant_inactive"
	ReasonCompetitionInactive  = "competition_inactive"
	ReasonInstrumentDisallowed = "instrument_disallowed"
	ReasonLeverageOutOfBounds  = "leverage_out_of_bounds"
	ReasonQuantityNonPositive  = "quantity_non_positive"
	ReasonPriceUnavailable     = "price_unavailable"
	ReasonSizeCapExceeded      = "size_cap_exceeded"
	ReasonInsufficientMargin   = "insufficient_margin"
	ReasonPositionNotOwned     = "position_not_owned"
)

// Order is one intended action parsed from an agent's decision.
type Order struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;index" json:"participant_id"`
	DecisionID    uuid.UUID `gorm:"type:uuid;not null;index" json:"decision_id"`

	Action string `gorm:"size:20;not null" json:"action"`
	Symbol string `gorm:"size:50;not null" json:"symbol"`

	// Side/Quantity are required for "open"; for "close" they are either
	// supplied or derived from the referenced position (spec §4.5 step 4).
	Side     string           `gorm:"size:10" json:"side,omitempty"`
	Quantity decimal.Decimal  `gorm:"type:numeric(20,8)" json:"quantity"`
	Leverage decimal.Decimal  `gorm:"type:numeric(5,2)" json:"leverage,omitempty"`

	TargetPositionID *uuid.UUID `gorm:"type:uuid" json:"target_position_id,omitempty"`

	Status           string           `gorm:"size:20;not null;default:pending" json:"status"`
	RejectionReason  string           `gorm:"size:100" json:"rejection_reason,omitempty"`
	ExecutedPrice    *decimal.Decimal `gorm:"type:numeric(20,8)" json:"executed_price,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Order) TableName() string { return "orders" }

// IsTerminal reports whether the order reached one of the two terminal
// states the spec's invariant requires (executed xor rejected, never both).
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusExecuted || o.Status == OrderStatusRejected
}
