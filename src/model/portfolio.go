package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio is the financial state of one participant. Cash and reserved
// margin are the only columns a delta ever writes directly; equity,
// unrealized P&L, available margin, current leverage and margin level are
// derived and recomputed by portfolio.Snapshot on every read.
type Portfolio struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"participant_id"`

	CashBalance    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"cash_balance"`
	ReservedMargin decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"reserved_margin"`
	RealizedPnL    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"realized_pnl"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (Portfolio) TableName() string { return "portfolios" }

// PortfolioView is the fully-derived, read-only snapshot handed to callers:
// the agent prompt, the REST surface, and the validation pipeline all read
// from this rather than from raw Portfolio columns.
type PortfolioView struct {
	Portfolio

	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
	Equity          decimal.Decimal `json:"equity"`
	AvailableMargin decimal.Decimal `json:"available_margin"`
	CurrentLeverage decimal.Decimal `json:"current_leverage"`
	// MarginLevel is nil when no margin is in use (undefined per spec §4.1).
	MarginLevel *decimal.Decimal `json:"margin_level,omitempty"`
	TotalPnL    decimal.Decimal `json:"total_pnl"`

	Positions []Position `json:"positions"`
}

// PortfolioHistory is an immutable equity-curve sample, appended each time a
// decision round or a price-refresh reprice is saved. Supplements the
// distilled spec with the original implementation's equity-history feature
// (app/services/portfolio_manager.py: record_portfolio_history).
type PortfolioHistory struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;index" json:"participant_id"`

	Equity         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"equity"`
	CashBalance    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"cash_balance"`
	ReservedMargin decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"reserved_margin"`
	RealizedPnL    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"realized_pnl"`
	UnrealizedPnL  decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"unrealized_pnl"`
	TotalPnL       decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"total_pnl"`

	RecordedAt time.Time `json:"recorded_at"`
}

func (PortfolioHistory) TableName() string { return "portfolio_history" }
