package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records one notable event outside the normal order/trade trail:
// a forced liquidation, a skipped decision round, a margin-level warning.
// Adapted from the teacher's strategy/webhook TransactionLog shape, retargeted
// at participants and competitions instead of strategies and orders.
type AuditLog struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CompetitionID *uuid.UUID `gorm:"type:uuid;index" json:"competition_id,omitempty"`
	ParticipantID *uuid.UUID `gorm:"type:uuid;index" json:"participant_id,omitempty"`

	Level    string         `gorm:"size:20;not null" json:"level"`
	Message  string         `gorm:"size:1024;not null" json:"message"`
	Metadata map[string]any `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
