package prompt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/decision"
	"agentarena/src/model"
)

func TestBuilderProducesValidJSONWithExpectedSections(t *testing.T) {
	competition := &model.Competition{
		ID:                 uuid.New(),
		Name:                "Summer Arena",
		EndTime:             time.Now().Add(2 * time.Hour),
		MaxLeverage:         decimal.RequireFromString("10"),
		MaxPositionSizePct:  decimal.RequireFromString("50"),
		MarginRequirementPct: decimal.RequireFromString("10"),
		AllowedInstruments:  model.NewStringSet("BTC-USD", "ETH-USD"),
		MarketHoursOnly:     false,
	}

	portfolio := model.Portfolio{
		ID:          uuid.New(),
		CashBalance: decimal.RequireFromString("1000"),
	}
	view := model.PortfolioView{
		Portfolio:       portfolio,
		Equity:          decimal.RequireFromString("1050"),
		AvailableMargin: decimal.RequireFromString("1000"),
		CurrentLeverage: decimal.RequireFromString("0"),
		TotalPnL:        decimal.RequireFromString("50"),
		Positions: []model.Position{
			{Symbol: "BTC-USD", Side: model.SideLong, Quantity: decimal.RequireFromString("0.01"), EntryPrice: decimal.RequireFromString("100000"), MarkPrice: decimal.RequireFromString("105000"), Leverage: decimal.RequireFromString("2")},
		},
	}

	snapshot := decision.Snapshot{
		Competition:    competition,
		Portfolio:      view,
		Prices:         map[string]decimal.Decimal{"BTC-USD": decimal.RequireFromString("105000")},
		PerOrderCapCcy: decimal.RequireFromString("525"),
		Leaderboard: []decision.LeaderboardEntry{
			{Rank: 1, Name: "agent-a", Equity: decimal.RequireFromString("1050"), PnLPct: decimal.RequireFromString("5")},
		},
	}

	builder := NewBuilder()
	raw, err := builder.Build(snapshot)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var doc promptDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if doc.CompetitionContext.CompetitionName != "Summer Arena" {
		t.Fatalf("competition name = %s", doc.CompetitionContext.CompetitionName)
	}
	if len(doc.Portfolio.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(doc.Portfolio.Positions))
	}
	if !doc.TradingRules.MaxPositionSizeDollars.Equal(decimal.RequireFromString("525")) {
		t.Fatalf("max position size dollars = %s", doc.TradingRules.MaxPositionSizeDollars)
	}
	if len(doc.Leaderboard) != 1 || doc.Leaderboard[0].Name != "agent-a" {
		t.Fatalf("leaderboard = %+v", doc.Leaderboard)
	}
	if doc.Instructions == "" {
		t.Fatal("expected non-empty instructions text")
	}
}

func TestBuilderClampsNegativeTimeRemainingToZero(t *testing.T) {
	competition := &model.Competition{
		ID:      uuid.New(),
		Name:    "Expired Arena",
		EndTime: time.Now().Add(-time.Hour),
		AllowedInstruments: model.NewStringSet("BTC-USD"),
	}

	builder := NewBuilder()
	raw, err := builder.Build(decision.Snapshot{
		Competition: competition,
		Portfolio:   model.PortfolioView{},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var doc promptDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.CompetitionContext.TimeRemaining != "0s" {
		t.Fatalf("time remaining = %s, want 0s", doc.CompetitionContext.TimeRemaining)
	}
}
