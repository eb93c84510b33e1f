package llm

import "github.com/shopspring/decimal"

// perMillionTokenPrice is a rough $/1M-token table used only to populate
// DecisionRecord.CostEstimate for operator-facing cost tracking; it is not
// part of any trading calculation. Supplements the distilled spec, which
// defines the CostEstimate column but never says how it is populated.
type perMillionTokenPrice struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

var defaultPricing = map[string]perMillionTokenPrice{
	ProviderAnthropic:   {Input: decimal.RequireFromString("3.00"), Output: decimal.RequireFromString("15.00")},
	ProviderOpenAI:      {Input: decimal.RequireFromString("10.00"), Output: decimal.RequireFromString("30.00")},
	ProviderAzureOpenAI: {Input: decimal.RequireFromString("10.00"), Output: decimal.RequireFromString("30.00")},
	ProviderDeepSeek:    {Input: decimal.RequireFromString("0.27"), Output: decimal.RequireFromString("1.10")},
	ProviderQwen:        {Input: decimal.RequireFromString("0.40"), Output: decimal.RequireFromString("1.20")},
}

// EstimateCost returns the estimated USD cost of one invocation, or nil if
// the provider has no price table entry. model is accepted for a future
// per-model override but the table is per-provider for now, since none of
// the five providers publish wildly different prices across the handful of
// models participants are expected to pick.
func EstimateCost(provider, model string, promptTokens, responseTokens int) *decimal.Decimal {
	price, ok := defaultPricing[provider]
	if !ok {
		return nil
	}

	million := decimal.NewFromInt(1_000_000)
	cost := decimal.NewFromInt(int64(promptTokens)).Div(million).Mul(price.Input).
		Add(decimal.NewFromInt(int64(responseTokens)).Div(million).Mul(price.Output)).
		RoundBank(6)
	return &cost
}
