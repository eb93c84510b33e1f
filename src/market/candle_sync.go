package market

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"agentarena/src/model"
	"agentarena/src/utils"
)

// CandleStore persists fetched OHLCV bars; *repository.CandleRepository
// satisfies this.
type CandleStore interface {
	Upsert(ctx context.Context, candles []model.Candle) error
}

// CandleSource fetches recent bars for one symbol/interval; *Provider
// satisfies this directly.
type CandleSource interface {
	OHLCV(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// CandleSync periodically pulls each tracked symbol's recent candles from
// Source and upserts them into Store, feeding the prompt-enrichment OHLCV
// series spec §6 describes as optional. Grounded on the teacher's
// cmd/ohlcvcrypto polling loop, retargeted at this domain's single
// interval-tagged Candle table instead of separate per-interval tables.
type CandleSync struct {
	Source   CandleSource
	Store    CandleStore
	Symbols  []string
	Interval string
	Limit    int

	now func() time.Time
}

func NewCandleSync(source CandleSource, store CandleStore, symbols []string, interval string) *CandleSync {
	return &CandleSync{
		Source:   source,
		Store:    store,
		Symbols:  symbols,
		Interval: interval,
		Limit:    200,
		now:      time.Now,
	}
}

// Run ticks once per minute, aligned to the minute boundary so every sync
// cycle pulls a settled bar rather than a half-formed one.
func (s *CandleSync) Run(ctx context.Context) {
	next := utils.ResetTime(s.now().Add(time.Minute), "minute")
	timer := time.NewTimer(next.Sub(s.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := s.syncOnce(ctx); err != nil {
				logger.WithError(err).Error("candle sync cycle failed")
			}
			timer.Reset(time.Minute)
		}
	}
}

func (s *CandleSync) syncOnce(ctx context.Context) error {
	for _, symbol := range s.Symbols {
		bars, err := s.Source.OHLCV(ctx, symbol, s.Interval, s.Limit)
		if err != nil {
			logger.WithError(err).WithField("symbol", symbol).Error("failed to fetch candles")
			continue
		}
		if len(bars) == 0 {
			continue
		}

		rows := make([]model.Candle, 0, len(bars))
		for _, bar := range bars {
			rows = append(rows, model.Candle{
				Symbol:   symbol,
				Interval: s.Interval,
				OpenedAt: bar.OpenedAt,
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				Volume:   bar.Volume,
			})
		}
		if err := s.Store.Upsert(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}
