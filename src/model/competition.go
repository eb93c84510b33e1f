package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Competition statuses, per the pending -> active -> completed lifecycle.
// A competition may also be cancelled before it ever goes active.
const (
	CompetitionStatusPending   = "pending"
	CompetitionStatusActive    = "active"
	CompetitionStatusCompleted = "completed"
	CompetitionStatusCancelled = "cancelled"
)

// Competition is the rule-set and time window of one trading contest.
type Competition struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"size:1024" json:"description,omitempty"`
	Status      string    `gorm:"size:50;not null;default:pending" json:"status"`

	StartTime time.Time `gorm:"not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`

	InvocationIntervalMinutes int `gorm:"not null;default:15" json:"invocation_interval_minutes"`

	InitialCapital   decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"initial_capital"`
	MaxLeverage      decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"max_leverage"`
	// MaxPositionSizePct is a 0-100 percentage: qty*price <= equity *
	// MaxPositionSizePct/100, independent of leverage.
	MaxPositionSizePct decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"max_position_size_pct"`
	// MarginRequirementPct is informational/display only; it does not feed
	// the liquidation formula (see MaintenanceMarginPct).
	MarginRequirementPct decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"margin_requirement_pct"`
	// MaintenanceMarginPct is a fraction (0.5 means 50%), compared directly
	// against the unscaled equity/reserved_margin ratio in calc.LiquidationTriggered.
	MaintenanceMarginPct decimal.Decimal `gorm:"type:numeric(5,4);not null" json:"maintenance_margin_pct"`

	AllowedInstruments StringSet `gorm:"type:text" json:"allowed_instruments"`
	MaxParticipants    int       `gorm:"default:0" json:"max_participants"`
	MarketHoursOnly    bool      `gorm:"default:false" json:"market_hours_only"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Competition) TableName() string { return "competitions" }

// Allows reports whether symbol is tradable under this competition's rules.
func (c *Competition) Allows(symbol string) bool {
	return c.AllowedInstruments.Contains(symbol)
}

// IsActiveAt reports whether the competition is in its active window at t.
func (c *Competition) IsActiveAt(t time.Time) bool {
	return c.Status == CompetitionStatusActive && !t.Before(c.StartTime) && t.Before(c.EndTime)
}
