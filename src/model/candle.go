package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle interval identifiers understood by src/market.
const (
	IntervalOneMinute = "1m"
	IntervalOneHour   = "1h"
)

// Candle is one OHLCV bar for a symbol at a given interval, keyed by
// (symbol, interval, opened_at). Replaces the teacher's separate
// OHLCVCrypto1m/OHLCVCrypto1h tables with a single interval-tagged one, since
// this domain's indicator functions (src/market/indicators.go) need the same
// shape regardless of bar width.
type Candle struct {
	ID       uint      `gorm:"primaryKey"`
	Symbol   string    `json:"symbol" gorm:"type:varchar(50);not null;uniqueIndex:ux_candle_symbol_interval_opened,priority:1"`
	Interval string    `json:"interval" gorm:"type:varchar(10);not null;uniqueIndex:ux_candle_symbol_interval_opened,priority:2"`
	OpenedAt time.Time `json:"opened_at" gorm:"not null;uniqueIndex:ux_candle_symbol_interval_opened,priority:3;index:idx_candle_opened_at"`

	Open   decimal.Decimal `json:"open" gorm:"type:numeric(20,8);not null"`
	High   decimal.Decimal `json:"high" gorm:"type:numeric(20,8);not null"`
	Low    decimal.Decimal `json:"low" gorm:"type:numeric(20,8);not null"`
	Close  decimal.Decimal `json:"close" gorm:"type:numeric(20,8);not null"`
	Volume decimal.Decimal `json:"volume" gorm:"type:numeric(20,8);not null"`
}

func (Candle) TableName() string { return "candles" }
