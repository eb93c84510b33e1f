package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is the historical record of one state-changing execution. There is
// exactly one trade per executed order, and zero for a rejected one.
type Trade struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;index" json:"participant_id"`
	OrderID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`

	Action string `gorm:"size:20;not null" json:"action"`
	Symbol string `gorm:"size:50;not null" json:"symbol"`
	Side   string `gorm:"size:10;not null" json:"side"`

	Quantity      decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"quantity"`
	ExecutedPrice decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"executed_price"`
	RealizedPnL   *decimal.Decimal `gorm:"type:numeric(20,2)" json:"realized_pnl,omitempty"`

	// ReservedMarginDelta is the signed change in the portfolio's reserved
	// margin this trade caused: positive on open, negative on close.
	ReservedMarginDelta decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"reserved_margin_delta"`

	ExecutedAt time.Time `json:"executed_at"`
}

func (Trade) TableName() string { return "trades" }
