package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agentarena/src/database"
	"agentarena/src/model"
)

// CandleRepository persists OHLCV bars fetched from src/market, so
// indicator computation and prompt enrichment don't have to re-fetch a
// full history window from the exchange on every decision round.
// Adapted from the teacher's OHLCVRepository (ohlcv_repository.go): keeps
// its upsert-on-(symbol,interval,opened_at) idiom, drops the stop-loss
// bucketing/aggregation logic (AggregateOHLCVFrom1m, GetNextStopLoss) since
// this domain has no trailing-stop feature for it to serve.
type CandleRepository struct {
	db *gorm.DB
}

func NewCandleRepository() *CandleRepository {
	logger.WithField("component", "CandleRepository").Info("Creating new CandleRepository with MainDB")
	return &CandleRepository{db: database.MainDB}
}

func (r *CandleRepository) WithDB(db *gorm.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// Upsert stores a batch of candles, overwriting any existing bar for the
// same (symbol, interval, opened_at).
func (r *CandleRepository) Upsert(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "interval"}, {Name: "opened_at"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&candles).Error
}

// RecentBySymbol returns the most recent limit candles for a symbol and
// interval, oldest first, ready to feed market.Compute.
func (r *CandleRepository) RecentBySymbol(ctx context.Context, symbol, interval string, since time.Time, limit int) ([]model.Candle, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []model.Candle
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND interval = ? AND opened_at >= ?", symbol, interval, since).
		Order("opened_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
