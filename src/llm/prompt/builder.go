// Package prompt renders a decision.Snapshot into the JSON prompt handed to
// an agent's model, grounded on prompt_builder.py's build_trading_prompt:
// a competition_context/portfolio/market_data/trading_rules/leaderboard
// object followed by a fixed instructions block.
package prompt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"agentarena/src/calc"
	"agentarena/src/decision"
	"agentarena/src/model"
)

// Builder satisfies decision.PromptBuilder.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

type promptDocument struct {
	CompetitionContext competitionContext `json:"competition_context"`
	Portfolio          portfolioContext   `json:"portfolio"`
	MarketData         map[string]decimal.Decimal `json:"market_data"`
	TradingRules       tradingRules       `json:"trading_rules"`
	Leaderboard        []leaderboardRow   `json:"leaderboard"`
	Instructions       string             `json:"instructions"`
}

type competitionContext struct {
	CompetitionID   string `json:"competition_id"`
	CompetitionName string `json:"competition_name"`
	CurrentTime     string `json:"current_time"`
	TimeRemaining   string `json:"time_remaining"`
}

type positionRow struct {
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Leverage      decimal.Decimal `json:"leverage"`
	NotionalValue decimal.Decimal `json:"notional_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	MarginUsed    decimal.Decimal `json:"margin_required"`
	OpenedAt      string          `json:"opened_at"`
}

type portfolioContext struct {
	CashBalance     decimal.Decimal  `json:"cash_balance"`
	Equity          decimal.Decimal  `json:"equity"`
	MarginUsed      decimal.Decimal  `json:"margin_used"`
	MarginAvailable decimal.Decimal  `json:"margin_available"`
	RealizedPnL     decimal.Decimal  `json:"realized_pnl"`
	UnrealizedPnL   decimal.Decimal  `json:"unrealized_pnl"`
	TotalPnL        decimal.Decimal  `json:"total_pnl"`
	TotalPnLPct     decimal.Decimal  `json:"total_pnl_pct"`
	CurrentLeverage decimal.Decimal  `json:"current_leverage"`
	MarginLevel     *decimal.Decimal `json:"margin_level,omitempty"`
	Positions       []positionRow    `json:"positions"`
}

type tradingRules struct {
	MaxLeverage            decimal.Decimal `json:"max_leverage"`
	MaxPositionSizePct     decimal.Decimal `json:"max_position_size_pct"`
	MaxPositionSizeDollars decimal.Decimal `json:"max_position_size_dollars"`
	MarginRequirementPct   decimal.Decimal `json:"margin_requirement_pct"`
	AllowedInstruments     []string        `json:"allowed_instruments"`
	MarketHoursOnly        bool            `json:"market_hours_only"`
}

type leaderboardRow struct {
	Rank   int             `json:"rank"`
	Name   string          `json:"name"`
	Equity decimal.Decimal `json:"equity"`
	PnLPct decimal.Decimal `json:"pnl_pct"`
}

func (b *Builder) Build(snapshot decision.Snapshot) (string, error) {
	now := b.now()

	doc := promptDocument{
		CompetitionContext: competitionContext{
			CompetitionID:   snapshot.Competition.ID.String(),
			CompetitionName: snapshot.Competition.Name,
			CurrentTime:     now.Format(time.RFC3339),
			TimeRemaining:   formatDuration(snapshot.Competition.EndTime.Sub(now)),
		},
		Portfolio:    buildPortfolioContext(snapshot.Portfolio),
		MarketData:   snapshot.Prices,
		TradingRules: buildTradingRules(snapshot),
		Leaderboard:  buildLeaderboard(snapshot.Leaderboard),
		Instructions: instructionsText,
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("prompt: marshal: %w", err)
	}
	return string(body), nil
}

func buildPortfolioContext(view model.PortfolioView) portfolioContext {
	totalPnLPct := calc.PnLPct(view.TotalPnL, view.Equity)

	rows := make([]positionRow, 0, len(view.Positions))
	for _, p := range view.Positions {
		rows = append(rows, positionRow{
			Symbol:        p.Symbol,
			Side:          p.Side,
			Quantity:      p.Quantity,
			EntryPrice:    p.EntryPrice,
			CurrentPrice:  p.MarkPrice,
			Leverage:      p.Leverage,
			NotionalValue: p.Notional(),
			UnrealizedPnL: p.UnrealizedPnL,
			MarginUsed:    p.ReservedMargin,
			OpenedAt:      p.OpenedAt.Format(time.RFC3339),
		})
	}

	return portfolioContext{
		CashBalance:     view.CashBalance,
		Equity:          view.Equity,
		MarginUsed:      view.ReservedMargin,
		MarginAvailable: view.AvailableMargin,
		RealizedPnL:     view.RealizedPnL,
		UnrealizedPnL:   view.UnrealizedPnL,
		TotalPnL:        view.TotalPnL,
		TotalPnLPct:     totalPnLPct,
		CurrentLeverage: view.CurrentLeverage,
		MarginLevel:     view.MarginLevel,
		Positions:       rows,
	}
}

func buildTradingRules(snapshot decision.Snapshot) tradingRules {
	return tradingRules{
		MaxLeverage:            snapshot.Competition.MaxLeverage,
		MaxPositionSizePct:     snapshot.Competition.MaxPositionSizePct,
		MaxPositionSizeDollars: snapshot.PerOrderCapCcy,
		MarginRequirementPct:   snapshot.Competition.MarginRequirementPct,
		AllowedInstruments:     snapshot.Competition.AllowedInstruments.Slice(),
		MarketHoursOnly:        snapshot.Competition.MarketHoursOnly,
	}
}

func buildLeaderboard(entries []decision.LeaderboardEntry) []leaderboardRow {
	rows := make([]leaderboardRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, leaderboardRow{Rank: e.Rank, Name: e.Name, Equity: e.Equity, PnLPct: e.PnLPct})
	}
	return rows
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}

// instructionsText mirrors prompt_builder.py's _build_instructions verbatim
// in spirit: the position-sizing worked example exists because participants
// reliably got the leverage/notional relationship backwards without it.
const instructionsText = `Based on the current market conditions and your portfolio, decide on your next trading action.

You may:
- Open new positions (action: "open", side: "buy" or "sell")
- Close existing positions (action: "close", include position_id)
- Do nothing (decision: "hold")

POSITION SIZING RULES:
The system validates that (quantity x current_price) <= max_position_size_dollars.

1. NOTIONAL VALUE LIMIT (enforced by the system):
   - max_position_size_dollars is the maximum NOTIONAL VALUE per position.
   - Notional value = quantity x current_price.
   - This limit applies regardless of leverage.
   - Example: if max is $5000 and BTC is $100,000, max quantity = 5000/100000 = 0.05 BTC.

2. LEVERAGE DOES NOT AFFECT THE POSITION SIZE LIMIT:
   - Leverage only affects margin required: margin = notional_value / leverage.
   - Higher leverage lowers the margin required, not the notional cap.
   - Example: $5000 notional at 2x leverage requires $2500 margin.
   - Example: $5000 notional at 1x leverage requires $5000 margin.

3. CALCULATION:
   - max_quantity = max_position_size_dollars / current_price.
   - Verify notional_value = quantity x current_price is within the cap.
   - Leave a safety buffer: use about 98% of max to absorb price slippage.

4. WORKED EXAMPLE (max_position_size_dollars = $5000, BTC = $100,000):
   - Max quantity = 5000 / 100000 = 0.05 BTC.
   - Safe quantity (98%) = 0.05 x 0.98 = 0.049 BTC.
   - Notional check: 0.049 x 100000 = $4900 (under the $5000 limit).
   - At 2x leverage: margin required = 4900 / 2 = $2450.
   - At 3x leverage: margin required = 4900 / 3 = $1633.

Respond with valid JSON in exactly this shape:
{
  "decision": "trade" or "hold",
  "reasoning": "brief explanation, max 500 chars",
  "orders": [
    {
      "action": "open" or "close",
      "symbol": "BTCUSDT",
      "side": "buy" or "sell",
      "quantity": 0.049,
      "leverage": 2.0,
      "position_id": "uuid, only for close"
    }
  ]
}

Example, opening a position (max_position_size_dollars = $5000, BTC = $100,000):
{
  "decision": "trade",
  "reasoning": "BTC momentum is strong. Opening a conservative long position within the notional cap.",
  "orders": [
    {"action": "open", "symbol": "BTCUSDT", "side": "buy", "quantity": 0.049, "leverage": 2.0}
  ]
}

Example, holding:
{
  "decision": "hold",
  "reasoning": "Waiting for a clearer market direction. Current positions look stable."
}
`
