package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentarena/src/database"
	"agentarena/src/model"
)

// CompetitionRepository handles persistence of competitions.
type CompetitionRepository struct {
	db *gorm.DB
}

func NewCompetitionRepository() *CompetitionRepository {
	logger.WithField("component", "CompetitionRepository").Info("Creating new CompetitionRepository with MainDB")
	return &CompetitionRepository{db: database.MainDB}
}

func (r *CompetitionRepository) WithDB(db *gorm.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

func (r *CompetitionRepository) Create(ctx context.Context, c *model.Competition) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(c).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{"repo": "CompetitionRepository", "op": "Create"}).WithError(err).Error("failed to create competition")
		return err
	}
	return nil
}

// FindByID returns (nil, nil) when the competition does not exist.
func (r *CompetitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Competition, error) {
	var c model.Competition
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CompetitionRepository) List(ctx context.Context) ([]model.Competition, error) {
	var rows []model.Competition
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// Active returns every competition currently in the active status,
// regardless of its time window — the scheduler itself checks IsActiveAt.
func (r *CompetitionRepository) Active(ctx context.Context) ([]model.Competition, error) {
	var rows []model.Competition
	err := r.db.WithContext(ctx).Where("status = ?", model.CompetitionStatusActive).Find(&rows).Error
	return rows, err
}

func (r *CompetitionRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	err := r.db.WithContext(ctx).
		Model(&model.Competition{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{"repo": "CompetitionRepository", "op": "SetStatus", "id": id, "status": status}).WithError(err).Error("failed to update competition status")
	}
	return err
}
