package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision record statuses.
const (
	DecisionStatusSuccess        = "success"
	DecisionStatusTimeout        = "timeout"
	DecisionStatusTransportError = "transport_error"
	DecisionStatusInvalidResponse = "invalid_response"
)

// OrderExecutionResult documents the outcome of one order emitted by a
// decision round — part of the DecisionRecord audit trail (spec §3).
type OrderExecutionResult struct {
	OrderID         uuid.UUID        `json:"order_id"`
	Action          string           `json:"action"`
	Symbol          string           `json:"symbol"`
	Status          string           `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	ExecutedPrice   *decimal.Decimal `json:"executed_price,omitempty"`
}

// ParsedDecision is the structured shape of the agent's JSON reply.
type ParsedDecision struct {
	Decision  string            `json:"decision"`
	Reasoning string            `json:"reasoning"`
	Orders    []ParsedOrder     `json:"orders"`
}

// ParsedOrder is one order entry inside the agent's JSON reply, before
// validation/derivation. See src/decision/parse.go.
type ParsedOrder struct {
	Action     string           `json:"action"`
	Symbol     string           `json:"symbol"`
	Side       *string          `json:"side,omitempty"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	Leverage   *decimal.Decimal `json:"leverage,omitempty"`
	PositionID *uuid.UUID       `json:"position_id,omitempty"`
}

// DecisionRecord is the audit of one agent decision round: snapshot, prompt,
// raw and parsed response, per-order outcomes, timing and status.
type DecisionRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;index" json:"participant_id"`
	CompetitionID uuid.UUID `gorm:"type:uuid;not null;index" json:"competition_id"`

	PromptText string `gorm:"type:text;not null" json:"prompt_text"`
	PromptTokens   *int `json:"prompt_tokens,omitempty"`
	ResponseTokens *int `json:"response_tokens,omitempty"`

	// MarketSnapshot/PortfolioSnapshot freeze the inputs the prompt was built
	// from, so a disputed round can be replayed without relying on since-moved
	// live state.
	MarketSnapshot    JSONColumn[map[string]decimal.Decimal] `gorm:"type:text" json:"market_snapshot,omitempty"`
	PortfolioSnapshot JSONColumn[PortfolioView]              `gorm:"type:text" json:"portfolio_snapshot,omitempty"`

	RawResponse string `gorm:"type:text" json:"raw_response,omitempty"`

	ParsedDecision   JSONColumn[ParsedDecision]          `gorm:"type:text" json:"parsed_decision,omitempty"`
	ExecutionResults JSONColumn[[]OrderExecutionResult] `gorm:"type:text" json:"execution_results,omitempty"`

	Status       string `gorm:"size:30;not null" json:"status"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	InvokedAt time.Time     `json:"invoked_at"`
	Latency   time.Duration `json:"latency"`

	CostEstimate *decimal.Decimal `gorm:"type:numeric(10,6)" json:"cost_estimate,omitempty"`
}

func (DecisionRecord) TableName() string { return "decision_records" }
