package repository

import (
	"context"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentarena/src/database"
	"agentarena/src/model"
)

// DecisionRepository handles persistence of decision records, the audit
// trail of one agent decision round (spec §3/§4.5).
type DecisionRepository struct {
	db *gorm.DB
}

func NewDecisionRepository() *DecisionRepository {
	logger.WithField("component", "DecisionRepository").Info("Creating new DecisionRepository with MainDB")
	return &DecisionRepository{db: database.MainDB}
}

func (r *DecisionRepository) WithDB(db *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Create(ctx context.Context, rec *model.DecisionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(rec).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "DecisionRepository", "op": "Create", "participant_id": rec.ParticipantID,
		}).WithError(err).Error("failed to create decision record")
	}
	return err
}

func (r *DecisionRepository) ByParticipant(ctx context.Context, participantID uuid.UUID, limit int) ([]model.DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.DecisionRecord
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("invoked_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
