package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SideLong  = "long"
	SideShort = "short"
)

// Position is one open CFD leg. It is created by a validated open order,
// repriced on every price refresh, and destroyed by a close order or a
// risk-monitor forced flatten.
type Position struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PortfolioID uuid.UUID `gorm:"type:uuid;not null;index" json:"portfolio_id"`

	Symbol string `gorm:"size:50;not null;index" json:"symbol"`
	Side   string `gorm:"size:10;not null" json:"side"`

	Quantity   decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"quantity"`
	EntryPrice decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"entry_price"`
	MarkPrice  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"mark_price"`
	Leverage   decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"leverage"`

	ReservedMargin decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"reserved_margin"`
	UnrealizedPnL  decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"unrealized_pnl"`

	OpenedAt time.Time `json:"opened_at"`
}

func (Position) TableName() string { return "positions" }

// Notional is quantity * mark price: the economic exposure, independent of margin.
func (p *Position) Notional() decimal.Decimal {
	return p.Quantity.Mul(p.MarkPrice)
}

// OppositeSide returns the side a symmetric closing order flows against.
func (p *Position) OppositeSide() string {
	if p.Side == SideLong {
		return SideShort
	}
	return SideLong
}
