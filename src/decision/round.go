// Package decision runs one participant's decision round end to end:
// snapshot, prompt build, model invocation, response parsing, order
// execution and record persistence, per spec §4.5's state machine.
package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/model"
	"agentarena/src/portfolio"
	"agentarena/src/trading"
)

// LeaderboardEntry is one row of the ranked-by-equity slice handed to the
// prompt builder, grounded on llm_invoker.py's _get_leaderboard.
type LeaderboardEntry struct {
	Rank   int
	Name   string
	Equity decimal.Decimal
	PnLPct decimal.Decimal
}

// Snapshot is the single consistent view of the world a round's prompt is
// built from; nothing later in the round re-reads live state until Execute.
type Snapshot struct {
	Participant    *model.Participant
	Competition    *model.Competition
	Portfolio      model.PortfolioView
	Prices         map[string]decimal.Decimal
	Leaderboard    []LeaderboardEntry
	RecentTrades   []model.Trade
	PerOrderCapCcy decimal.Decimal
}

// PriceSource is the narrow market-data capability a round needs.
type PriceSource interface {
	LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// InvokeResponse is what a model invocation returns, independent of provider.
type InvokeResponse struct {
	Text           string
	PromptTokens   *int
	ResponseTokens *int
	CostEstimate   *decimal.Decimal
}

// Invoker is the narrow model-invocation capability a round needs; src/llm
// provides the concrete per-provider implementation.
type Invoker interface {
	Invoke(ctx context.Context, provider, modelID, configBlob, prompt string, deadline time.Time) (InvokeResponse, error)
}

// PromptBuilder assembles the prompt text from a snapshot.
type PromptBuilder interface {
	Build(Snapshot) (string, error)
}

// Store is the persistence boundary a round needs: loading the working set
// and writing back everything the round produces. src/repository supplies
// the concrete implementation, composed from its per-entity repositories.
type Store interface {
	LoadPortfolio(ctx context.Context, participantID uuid.UUID) (*model.Portfolio, []model.Position, error)
	RecentTrades(ctx context.Context, participantID uuid.UUID, limit int) ([]model.Trade, error)
	Leaderboard(ctx context.Context, competitionID uuid.UUID) ([]LeaderboardEntry, error)

	SaveRound(ctx context.Context, st *trading.State, orders []*model.Order, trades []*model.Trade, record *model.DecisionRecord) error
}

// Round runs one participant's decision cycle.
type Round struct {
	Store   Store
	Prices  PriceSource
	Invoker Invoker
	Prompts PromptBuilder
	Trading *trading.Engine
	Lanes   *portfolio.Lanes

	// ParseResponse is overridable for testing; defaults to ParseResponse.
	ParseResponse func(string) (*model.ParsedDecision, error)
	now           func() time.Time
}

func NewRound(store Store, prices PriceSource, invoker Invoker, prompts PromptBuilder, tradingEngine *trading.Engine, lanes *portfolio.Lanes) *Round {
	return &Round{
		Store:         store,
		Prices:        prices,
		Invoker:       invoker,
		Prompts:       prompts,
		Trading:       tradingEngine,
		Lanes:         lanes,
		ParseResponse: ParseResponse,
		now:           time.Now,
	}
}

// Run executes one full round for a participant. It never returns an error
// for ordinary trading/parsing/transport failures — those are recorded on
// the returned DecisionRecord's Status/ErrorMessage instead, per spec
// §4.5's failure semantics. A non-nil error here means the round could not
// even be recorded (a storage failure).
func (r *Round) Run(ctx context.Context, participant *model.Participant, competition *model.Competition) (*model.DecisionRecord, error) {
	unlock := r.Lanes.Acquire(participant.ID)

	pf, positions, err := r.Store.LoadPortfolio(ctx, participant.ID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("decision: load portfolio: %w", err)
	}

	symbols := competition.AllowedInstruments.Slice()
	prices, err := r.Prices.LatestPrices(ctx, symbols)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("decision: fetch prices: %w", err)
	}

	recentTrades, err := r.Store.RecentTrades(ctx, participant.ID, 20)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("decision: load trades: %w", err)
	}
	leaderboard, err := r.Store.Leaderboard(ctx, competition.ID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("decision: load leaderboard: %w", err)
	}

	view := portfolio.Snapshot(*pf, positions)
	snapshot := Snapshot{
		Participant:    participant,
		Competition:    competition,
		Portfolio:      view,
		Prices:         prices,
		Leaderboard:    leaderboard,
		RecentTrades:   recentTrades,
		PerOrderCapCcy: view.Equity.Mul(competition.MaxPositionSizePct).Div(decimal.NewFromInt(100)),
	}

	prompt, err := r.Prompts.Build(snapshot)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("decision: build prompt: %w", err)
	}

	record := &model.DecisionRecord{
		ID:                uuid.New(),
		ParticipantID:      participant.ID,
		CompetitionID:      competition.ID,
		PromptText:         prompt,
		MarketSnapshot:     model.NewJSONColumn(prices),
		PortfolioSnapshot:  model.NewJSONColumn(view),
		InvokedAt:          r.now(),
	}

	deadline := record.InvokedAt.Add(participant.InvocationTimeout)

	// The lane is released for the network round trip: the invocation is
	// the longest suspension point in a round and must not block other
	// rounds for this participant's portfolio reads.
	unlock()

	resp, invokeErr := r.Invoker.Invoke(ctx, participant.ModelProvider, participant.ModelID, participant.ModelConfigEncrypted, prompt, deadline)

	unlock = r.Lanes.Acquire(participant.ID)
	defer unlock()

	record.Latency = time.Since(record.InvokedAt)

	if invokeErr != nil {
		record.Status = classifyInvokeError(invokeErr)
		record.ErrorMessage = invokeErr.Error()
		if err := r.Store.SaveRound(ctx, nil, nil, nil, record); err != nil {
			return nil, fmt.Errorf("decision: save round: %w", err)
		}
		return record, nil
	}

	record.RawResponse = resp.Text
	record.PromptTokens = resp.PromptTokens
	record.ResponseTokens = resp.ResponseTokens
	record.CostEstimate = resp.CostEstimate

	parsed, parseErr := r.ParseResponse(resp.Text)
	if parseErr != nil {
		record.Status = model.DecisionStatusInvalidResponse
		record.ErrorMessage = parseErr.Error()
		if err := r.Store.SaveRound(ctx, nil, nil, nil, record); err != nil {
			return nil, fmt.Errorf("decision: save round: %w", err)
		}
		return record, nil
	}
	record.ParsedDecision = model.NewJSONColumn(*parsed)

	// Execute re-reads current state rather than trusting the snapshot:
	// positions/prices may have moved during the invocation suspension.
	freshPortfolio, freshPositions, err := r.Store.LoadPortfolio(ctx, participant.ID)
	if err != nil {
		return nil, fmt.Errorf("decision: reload portfolio: %w", err)
	}
	freshPrices, err := r.Prices.LatestPrices(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("decision: refresh prices: %w", err)
	}

	st := &trading.State{
		Participant: participant,
		Competition: competition,
		Portfolio:   freshPortfolio,
		Positions:   freshPositions,
		Marks:       freshPrices,
	}

	var orders []*model.Order
	var trades []*model.Trade
	var results []model.OrderExecutionResult

	if parsed.Decision == "trade" {
		for _, po := range parsed.Orders {
			order := buildOrder(participant.ID, record.ID, po)
			orders = append(orders, order)

			outcome := r.Trading.Execute(st, order)
			if outcome.Trade != nil {
				trades = append(trades, outcome.Trade)
			}
			results = append(results, executionResult(order, outcome))
		}
	}

	record.ExecutionResults = model.NewJSONColumn(results)
	record.Status = model.DecisionStatusSuccess

	if err := r.Store.SaveRound(ctx, st, orders, trades, record); err != nil {
		return nil, fmt.Errorf("decision: save round: %w", err)
	}

	return record, nil
}

func buildOrder(participantID, decisionID uuid.UUID, po model.ParsedOrder) *model.Order {
	order := &model.Order{
		ID:               uuid.New(),
		ParticipantID:    participantID,
		DecisionID:       decisionID,
		Action:           po.Action,
		Symbol:           po.Symbol,
		TargetPositionID: po.PositionID,
		CreatedAt:        time.Now(),
	}
	if po.Side != nil {
		order.Side = wireSideToInternal(*po.Side)
	}
	if po.Quantity != nil {
		order.Quantity = *po.Quantity
	}
	if po.Leverage != nil {
		order.Leverage = *po.Leverage
	}
	return order
}

// wireSideToInternal translates the agent-facing "buy"/"sell" vocabulary
// (spec §6's Decision JSON) into the internal "long"/"short" vocabulary that
// cfd.Engine, calc.UnrealizedPnL and model.Position.OppositeSide expect.
// validateShape already rejects anything but buy/sell before this runs, so
// sell is the only remaining case.
func wireSideToInternal(side string) string {
	if side == model.OrderSideSell {
		return model.SideShort
	}
	return model.SideLong
}

func executionResult(order *model.Order, outcome trading.Outcome) model.OrderExecutionResult {
	return model.OrderExecutionResult{
		OrderID:         order.ID,
		Action:          order.Action,
		Symbol:          order.Symbol,
		Status:          order.Status,
		RejectionReason: order.RejectionReason,
		ExecutedPrice:   order.ExecutedPrice,
	}
}

func classifyInvokeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.DecisionStatusTimeout
	}
	return model.DecisionStatusTransportError
}
