package market

import "github.com/shopspring/decimal"

// Indicators is the compact, latest-value-only indicator set folded into
// the prompt snapshot, mirroring technical_indicators.py's
// format_market_data_with_indicators compact_indicators block. Each field
// is nil when the candle series was too short to compute it.
type Indicators struct {
	EMA20          *decimal.Decimal
	RSI7           *decimal.Decimal
	RSI14          *decimal.Decimal
	MACD           *decimal.Decimal
	MACDSignal     *decimal.Decimal
	MACDHistogram  *decimal.Decimal
}

// Compute derives Indicators from a close-price series ordered oldest to
// newest, the same minimum-20-candle gate the original applies before
// computing anything.
func Compute(closes []decimal.Decimal) Indicators {
	if len(closes) < 20 {
		return Indicators{}
	}

	var out Indicators
	if ema := ema(closes, 20); len(ema) > 0 {
		out.EMA20 = last(ema)
	}
	if rsi7 := rsi(closes, 7); len(rsi7) > 0 {
		out.RSI7 = last(rsi7)
	}
	if rsi14 := rsi(closes, 14); len(rsi14) > 0 {
		out.RSI14 = last(rsi14)
	}

	macdLine, signalLine, histogram := macd(closes, 12, 26, 9)
	if len(macdLine) > 0 {
		out.MACD = last(macdLine)
		out.MACDSignal = last(signalLine)
		out.MACDHistogram = last(histogram)
	}

	return out
}

func last(series []decimal.Decimal) *decimal.Decimal {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	return &v
}

// ema returns the exponential moving average of period length, aligned to
// the input series (front-filled with the seed value for indices before
// the window closes, matching the original's bfill()).
func ema(values []decimal.Decimal, period int) []decimal.Decimal {
	if len(values) < period {
		return nil
	}

	multiplier := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period) + 1))
	out := make([]decimal.Decimal, len(values))

	seed := average(values[:period])
	for i := 0; i < period; i++ {
		out[i] = seed
	}

	prev := seed
	for i := period; i < len(values); i++ {
		prev = values[i].Sub(prev).Mul(multiplier).Add(prev)
		out[i] = prev
	}
	return out
}

func average(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(values))), 10)
}

// rsi is the standard Wilder RSI, front-filled for indices before the
// period-length window closes.
func rsi(values []decimal.Decimal, period int) []decimal.Decimal {
	if len(values) <= period {
		return nil
	}

	gains := make([]decimal.Decimal, 0, len(values))
	losses := make([]decimal.Decimal, 0, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i].Sub(values[i-1])
		if delta.IsPositive() {
			gains = append(gains, delta)
			losses = append(losses, decimal.Zero)
		} else {
			gains = append(gains, decimal.Zero)
			losses = append(losses, delta.Neg())
		}
	}

	out := make([]decimal.Decimal, len(values))
	avgGain := average(gains[:period])
	avgLoss := average(losses[:period])

	seedValue := rsiFromAverages(avgGain, avgLoss)
	for i := 0; i <= period; i++ {
		out[i] = seedValue
	}

	periodDec := decimal.NewFromInt(int64(period))
	for i := period; i < len(gains); i++ {
		avgGain = avgGain.Mul(periodDec.Sub(decimal.NewFromInt(1))).Add(gains[i]).DivRound(periodDec, 10)
		avgLoss = avgLoss.Mul(periodDec.Sub(decimal.NewFromInt(1))).Add(losses[i]).DivRound(periodDec, 10)
		out[i+1] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss decimal.Decimal) decimal.Decimal {
	if avgLoss.IsZero() {
		return decimal.NewFromInt(100)
	}
	rs := avgGain.DivRound(avgLoss, 10)
	hundred := decimal.NewFromInt(100)
	return hundred.Sub(hundred.DivRound(decimal.NewFromInt(1).Add(rs), 10))
}

// macd returns the MACD line, its signal line, and the histogram, all
// front-filled to the full length of values the way ema() is.
func macd(values []decimal.Decimal, fast, slow, signal int) (macdLine, signalLine, histogram []decimal.Decimal) {
	if len(values) < slow {
		return nil, nil, nil
	}

	fastEMA := ema(values, fast)
	slowEMA := ema(values, slow)

	macdLine = make([]decimal.Decimal, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i].Sub(slowEMA[i])
	}

	signalLine = ema(macdLine, signal)
	histogram = make([]decimal.Decimal, len(values))
	for i := range values {
		histogram[i] = macdLine[i].Sub(signalLine[i])
	}
	return macdLine, signalLine, histogram
}
