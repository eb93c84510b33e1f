package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentarena/src/database"
	"agentarena/src/model"
)

// ParticipantRepository handles persistence of participants.
type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository() *ParticipantRepository {
	logger.WithField("component", "ParticipantRepository").Info("Creating new ParticipantRepository with MainDB")
	return &ParticipantRepository{db: database.MainDB}
}

func (r *ParticipantRepository) WithDB(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Create(ctx context.Context, p *model.Participant) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{"repo": "ParticipantRepository", "op": "Create"}).WithError(err).Error("failed to create participant")
	}
	return err
}

// Save persists every mutable field of an existing participant (status,
// equity, trade counters).
func (r *ParticipantRepository) Save(ctx context.Context, p *model.Participant) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ParticipantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ParticipantRepository) ByCompetition(ctx context.Context, competitionID uuid.UUID) ([]model.Participant, error) {
	var rows []model.Participant
	err := r.db.WithContext(ctx).Where("competition_id = ?", competitionID).Find(&rows).Error
	return rows, err
}

func (r *ParticipantRepository) ActiveByCompetition(ctx context.Context, competitionID uuid.UUID) ([]model.Participant, error) {
	var rows []model.Participant
	err := r.db.WithContext(ctx).
		Where("competition_id = ? AND status = ?", competitionID, model.ParticipantStatusActive).
		Find(&rows).Error
	return rows, err
}

func (r *ParticipantRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	err := r.db.WithContext(ctx).Model(&model.Participant{}).Where("id = ?", id).Update("status", status).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{"repo": "ParticipantRepository", "op": "UpdateStatus", "id": id, "status": status}).WithError(err).Error("failed to update participant status")
	}
	return err
}

// Leaderboard ranks active and terminal participants of a competition by
// current equity, descending, grounded on llm_invoker.py's _get_leaderboard.
func (r *ParticipantRepository) Leaderboard(ctx context.Context, competitionID uuid.UUID) ([]model.Participant, error) {
	var rows []model.Participant
	err := r.db.WithContext(ctx).
		Where("competition_id = ?", competitionID).
		Order("current_equity DESC").
		Find(&rows).Error
	return rows, err
}
