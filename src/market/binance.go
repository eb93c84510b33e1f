package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Quote is one priced symbol, per spec §6's latest_prices shape
// (map<symbol, {price, as_of_instant}>).
type Quote struct {
	Price   decimal.Decimal
	AsOf    time.Time
}

// Provider is the venue adapter satisfying both decision.PriceSource and
// risk.PriceSource, plus the optional ohlcv() operation spec §6 allows for
// prompt enrichment.
type Provider struct {
	exchange goex.API
	quote    string
	log      *logger.Entry
}

func NewProvider(cfg Config) *Provider {
	apiConfig := &goex.APIConfig{
		HttpClient: &http.Client{Timeout: cfg.RequestTimeout},
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return &Provider{
		exchange: binance.NewWithConfig(apiConfig),
		quote:    cfg.Quote,
		log:      logger.WithField("component", "market.Provider"),
	}
}

// LatestPrices satisfies decision.PriceSource and risk.PriceSource. A
// symbol goex can't price is simply absent from the result; callers treat
// a missing mark as price_unavailable rather than failing the whole batch.
func (p *Provider) LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		pair, err := p.currencyPair(symbol)
		if err != nil {
			p.log.WithError(err).WithField("symbol", symbol).Warn("skipping unparseable symbol")
			continue
		}
		ticker, err := p.exchange.GetTicker(pair)
		if err != nil {
			p.log.WithError(err).WithField("symbol", symbol).Warn("latest price unavailable")
			continue
		}
		prices[symbol] = decimal.NewFromFloat(ticker.Last)
	}
	return prices, nil
}

// Candle is one priced OHLCV bar, independent of model.Candle so this
// package has no persistence-layer dependency.
type Candle struct {
	OpenedAt time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// OHLCV fetches up to limit recent bars for symbol at the given interval
// ("1m" or "1h"), the optional operation spec §6 describes for prompt
// enrichment, grounded on the teacher's cmd/ohlcvcrypto fetchOHLCVSeries.
func (p *Provider) OHLCV(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	pair, err := p.currencyPair(symbol)
	if err != nil {
		return nil, err
	}
	period, err := periodFor(interval)
	if err != nil {
		return nil, err
	}

	klines, err := p.exchange.GetKlineRecords(pair, period, limit, goex.OptionalParameter{})
	if err != nil {
		return nil, fmt.Errorf("market: fetch klines for %s: %w", symbol, err)
	}

	candles := make([]Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, Candle{
			OpenedAt: time.Unix(k.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
		})
	}
	return candles, nil
}

func (p *Provider) currencyPair(symbol string) (goex.CurrencyPair, error) {
	base := strings.TrimSuffix(strings.ToUpper(symbol), strings.ToUpper(p.quote))
	if base == "" || base == strings.ToUpper(symbol) {
		return goex.CurrencyPair{}, fmt.Errorf("market: symbol %q does not end in configured quote %q", symbol, p.quote)
	}
	return goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: p.quote}), nil
}

func periodFor(interval string) (goex.KlinePeriod, error) {
	switch interval {
	case "1m":
		return goex.KLINE_PERIOD_1MIN, nil
	case "1h":
		return goex.KLINE_PERIOD_1H, nil
	default:
		return 0, fmt.Errorf("market: unsupported interval %q", interval)
	}
}
