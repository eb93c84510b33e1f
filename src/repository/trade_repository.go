package repository

import (
	"context"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentarena/src/database"
	"agentarena/src/model"
)

// TradeRepository handles persistence of trades.
type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").Info("Creating new TradeRepository with MainDB")
	return &TradeRepository{db: database.MainDB}
}

func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

func (r *TradeRepository) Create(ctx context.Context, t *model.Trade) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(t).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{"repo": "TradeRepository", "op": "Create"}).WithError(err).Error("failed to create trade")
	}
	return err
}

func (r *TradeRepository) RecentByParticipant(ctx context.Context, participantID uuid.UUID, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.Trade
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("executed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
