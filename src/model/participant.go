package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/calc"
)

// Participant statuses. Terminal states are liquidated/disqualified/withdrawn;
// only "active" participants are scheduled for decision rounds.
const (
	ParticipantStatusActive      = "active"
	ParticipantStatusLiquidated  = "liquidated"
	ParticipantStatusDisqualified = "disqualified"
	ParticipantStatusWithdrawn   = "withdrawn"
)

// Participant is one agent enrolled in one competition.
type Participant struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompetitionID uuid.UUID `gorm:"type:uuid;not null;index" json:"competition_id"`

	Name string `gorm:"size:255;not null" json:"name"`

	ModelProvider string `gorm:"size:50;not null" json:"model_provider"`
	ModelID       string `gorm:"size:150;not null" json:"model_id"`
	// ModelConfig is an opaque per-provider config blob (temperature,
	// max_tokens, API key override, ...) stored encrypted at rest; see
	// src/security for the encrypt/decrypt boundary.
	ModelConfigEncrypted string        `gorm:"type:text" json:"-"`
	InvocationTimeout    time.Duration `gorm:"not null;default:30000000000" json:"invocation_timeout"`

	Status string `gorm:"size:50;not null;default:active" json:"status"`

	CurrentEquity decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"current_equity"`
	InitialCapital decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"initial_capital"`
	PeakEquity    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"peak_equity"`

	TotalTrades  int `gorm:"default:0" json:"total_trades"`
	WinningTrades int `gorm:"default:0" json:"winning_trades"`
	LosingTrades int `gorm:"default:0" json:"losing_trades"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Participant) TableName() string { return "participants" }

// IsActive reports whether the participant may still be scheduled and trade.
func (p *Participant) IsActive() bool {
	return p.Status == ParticipantStatusActive
}

// RecordEquity updates current and peak equity, as portfolio_manager.py's
// update_participant_equity does.
func (p *Participant) RecordEquity(equity decimal.Decimal) {
	p.CurrentEquity = equity
	if equity.GreaterThan(p.PeakEquity) {
		p.PeakEquity = equity
	}
}

// WinRate is winning_trades / total_trades * 100, or zero with no trades.
func (p *Participant) WinRate() decimal.Decimal {
	if p.TotalTrades == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(p.WinningTrades)).
		Div(decimal.NewFromInt(int64(p.TotalTrades))).
		Mul(decimal.NewFromInt(100))
}

// PnLPct is the participant's total return against its starting capital.
func (p *Participant) PnLPct() decimal.Decimal {
	return calc.PnLPct(p.CurrentEquity.Sub(p.InitialCapital), p.InitialCapital)
}
