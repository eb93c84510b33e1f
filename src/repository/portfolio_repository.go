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

// PortfolioRepository handles persistence of portfolios and their open
// positions.
type PortfolioRepository struct {
	db *gorm.DB
}

func NewPortfolioRepository() *PortfolioRepository {
	logger.WithField("component", "PortfolioRepository").Info("Creating new PortfolioRepository with MainDB")
	return &PortfolioRepository{db: database.MainDB}
}

func (r *PortfolioRepository) WithDB(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

func (r *PortfolioRepository) Create(ctx context.Context, p *model.Portfolio) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PortfolioRepository) ByParticipantID(ctx context.Context, participantID uuid.UUID) (*model.Portfolio, error) {
	var p model.Portfolio
	err := r.db.WithContext(ctx).First(&p, "participant_id = ?", participantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PortfolioRepository) PositionsByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]model.Position, error) {
	var rows []model.Position
	err := r.db.WithContext(ctx).Where("portfolio_id = ?", portfolioID).Find(&rows).Error
	return rows, err
}

// Update persists the mutable fields of a Portfolio (cash balance, reserved
// margin, realized P&L) — the derived PortfolioView fields are never
// written, only recomputed on read.
func (r *PortfolioRepository) Update(ctx context.Context, p *model.Portfolio) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PortfolioRepository) SavePosition(ctx context.Context, pos *model.Position) error {
	if pos.ID == uuid.Nil {
		pos.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(pos).Error
}

func (r *PortfolioRepository) DeletePosition(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Position{}, "id = ?", id).Error
}

// SymbolsInUse returns the distinct symbols across every open position,
// feeding risk.Monitor's per-tick price fetch.
func (r *PortfolioRepository) SymbolsInUse(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).Model(&model.Position{}).Distinct("symbol").Pluck("symbol", &symbols).Error
	return symbols, err
}

func (r *PortfolioRepository) RecordHistory(ctx context.Context, h *model.PortfolioHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(h).Error
}
