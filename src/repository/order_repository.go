package repository

import (
	"context"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentarena/src/database"
	"agentarena/src/model"
)

// OrderRepository handles persistence of orders, adapted from the teacher's
// OrderRepository to this domain's single-table Order shape — no separate
// OrderLog/OrderExecutionLog trail, since model.Order's own Status/
// RejectionReason columns already are the full lifecycle record.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").Info("Creating new OrderRepository with MainDB")
	return &OrderRepository{db: database.MainDB}
}

func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	logger.WithFields(map[string]interface{}{
		"repo": "OrderRepository", "op": "Create", "symbol": order.Symbol, "action": order.Action,
	}).Debug("creating order")

	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{"repo": "OrderRepository", "op": "Create"}).WithError(err).Error("failed to create order")
	}
	return err
}

func (r *OrderRepository) ByParticipant(ctx context.Context, participantID uuid.UUID, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.Order
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
