package market

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"agentarena/src/model"
)

type stubCandleSource struct {
	bars map[string][]Candle
	err  error
	// failSymbol limits err to one symbol; empty applies it to every symbol.
	failSymbol string
}

func (s *stubCandleSource) OHLCV(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	if s.err != nil && (s.failSymbol == "" || s.failSymbol == symbol) {
		return nil, s.err
	}
	return s.bars[symbol], nil
}

type stubCandleStore struct {
	upserted []model.Candle
}

func (s *stubCandleStore) Upsert(ctx context.Context, candles []model.Candle) error {
	s.upserted = append(s.upserted, candles...)
	return nil
}

func TestCandleSyncUpsertsBarsForEachSymbol(t *testing.T) {
	source := &stubCandleSource{bars: map[string][]Candle{
		"BTCUSDT": {{OpenedAt: time.Unix(0, 0), Close: decimal.NewFromInt(50000)}},
		"ETHUSDT": {{OpenedAt: time.Unix(0, 0), Close: decimal.NewFromInt(3000)}},
	}}
	store := &stubCandleStore{}
	sync := NewCandleSync(source, store, []string{"BTCUSDT", "ETHUSDT"}, model.IntervalOneMinute)

	if err := sync.syncOnce(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(store.upserted) != 2 {
		t.Fatalf("upserted %d candles, want 2", len(store.upserted))
	}
}

func TestCandleSyncSkipsSymbolOnFetchErrorButContinues(t *testing.T) {
	source := &stubCandleSource{
		err:        context.DeadlineExceeded,
		failSymbol: "BTCUSDT",
		bars: map[string][]Candle{
			"ETHUSDT": {{OpenedAt: time.Unix(0, 0), Close: decimal.NewFromInt(3000)}},
		},
	}
	store := &stubCandleStore{}
	sync := NewCandleSync(source, store, []string{"BTCUSDT", "ETHUSDT"}, model.IntervalOneMinute)

	if err := sync.syncOnce(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(store.upserted) != 1 || store.upserted[0].Symbol != "ETHUSDT" {
		t.Fatalf("expected only the ETHUSDT candle upserted after the BTCUSDT fetch error, got %+v", store.upserted)
	}
}
