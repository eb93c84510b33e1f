package decision

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/cfd"
	"agentarena/src/model"
	"agentarena/src/portfolio"
	"agentarena/src/trading"
)

type stubStore struct {
	portfolio *model.Portfolio
	positions []model.Position
	saved     *model.DecisionRecord
	savedErr  error
}

func (s *stubStore) LoadPortfolio(ctx context.Context, participantID uuid.UUID) (*model.Portfolio, []model.Position, error) {
	return s.portfolio, s.positions, nil
}

func (s *stubStore) RecentTrades(ctx context.Context, participantID uuid.UUID, limit int) ([]model.Trade, error) {
	return nil, nil
}

func (s *stubStore) Leaderboard(ctx context.Context, competitionID uuid.UUID) ([]LeaderboardEntry, error) {
	return nil, nil
}

func (s *stubStore) SaveRound(ctx context.Context, st *trading.State, orders []*model.Order, trades []*model.Trade, record *model.DecisionRecord) error {
	s.saved = record
	if st != nil {
		s.portfolio = st.Portfolio
		s.positions = st.Positions
	}
	return s.savedErr
}

type stubPrices struct {
	prices map[string]decimal.Decimal
}

func (s *stubPrices) LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	return s.prices, nil
}

type stubInvoker struct {
	resp InvokeResponse
	err  error
}

func (s *stubInvoker) Invoke(ctx context.Context, provider, modelID, configBlob, prompt string, deadline time.Time) (InvokeResponse, error) {
	return s.resp, s.err
}

type stubPromptBuilder struct{}

func (stubPromptBuilder) Build(Snapshot) (string, error) { return "prompt", nil }

func newTestRound(store *stubStore, invoker *stubInvoker) *Round {
	return NewRound(store, &stubPrices{prices: map[string]decimal.Decimal{"BTC-USD": decimal.RequireFromString("100")}}, invoker, stubPromptBuilder{}, trading.NewEngine(cfd.NewEngine()), portfolio.NewLanes())
}

func TestRoundExecutesTradeDecision(t *testing.T) {
	participant := &model.Participant{ID: uuid.New(), Status: model.ParticipantStatusActive, InvocationTimeout: time.Second}
	competition := &model.Competition{
		ID:                 uuid.New(),
		Status:             model.CompetitionStatusActive,
		StartTime:          time.Now().Add(-time.Hour),
		EndTime:             time.Now().Add(time.Hour),
		MaxLeverage:         decimal.RequireFromString("10"),
		MaxPositionSizePct:  decimal.RequireFromString("50"),
		AllowedInstruments:  model.NewStringSet("BTC-USD"),
	}

	store := &stubStore{portfolio: &model.Portfolio{ID: uuid.New(), ParticipantID: participant.ID, CashBalance: decimal.RequireFromString("1000")}}
	invoker := &stubInvoker{resp: InvokeResponse{Text: `{"decision": "trade", "reasoning": "go long", "orders": [{"action": "open", "symbol": "BTC-USD", "side": "buy", "quantity": 1, "leverage": 2}]}`}}

	round := newTestRound(store, invoker)
	record, err := round.Run(context.Background(), participant, competition)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if record.Status != model.DecisionStatusSuccess {
		t.Fatalf("status = %s, want success", record.Status)
	}
	if store.saved == nil {
		t.Fatal("expected round to be saved")
	}
	if !store.portfolio.ReservedMargin.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("reserved margin = %s, want 50", store.portfolio.ReservedMargin)
	}
}

func TestRoundRecordsInvalidResponse(t *testing.T) {
	participant := &model.Participant{ID: uuid.New(), Status: model.ParticipantStatusActive, InvocationTimeout: time.Second}
	competition := &model.Competition{
		ID:                 uuid.New(),
		Status:             model.CompetitionStatusActive,
		StartTime:          time.Now().Add(-time.Hour),
		EndTime:             time.Now().Add(time.Hour),
		MaxLeverage:         decimal.RequireFromString("10"),
		MaxPositionSizePct:  decimal.RequireFromString("50"),
		AllowedInstruments:  model.NewStringSet("BTC-USD"),
	}

	store := &stubStore{portfolio: &model.Portfolio{ID: uuid.New(), ParticipantID: participant.ID, CashBalance: decimal.RequireFromString("1000")}}
	invoker := &stubInvoker{resp: InvokeResponse{Text: "not json at all"}}

	round := newTestRound(store, invoker)
	record, err := round.Run(context.Background(), participant, competition)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if record.Status != model.DecisionStatusInvalidResponse {
		t.Fatalf("status = %s, want invalid_response", record.Status)
	}
}

func TestRoundRecordsTransportError(t *testing.T) {
	participant := &model.Participant{ID: uuid.New(), Status: model.ParticipantStatusActive, InvocationTimeout: time.Second}
	competition := &model.Competition{
		ID:                  uuid.New(),
		Status:              model.CompetitionStatusActive,
		StartTime:           time.Now().Add(-time.Hour),
		EndTime:             time.Now().Add(time.Hour),
		MaxLeverage:         decimal.RequireFromString("10"),
		MaxPositionSizePct:  decimal.RequireFromString("50"),
		AllowedInstruments:  model.NewStringSet("BTC-USD"),
	}

	store := &stubStore{portfolio: &model.Portfolio{ID: uuid.New(), ParticipantID: participant.ID, CashBalance: decimal.RequireFromString("1000")}}
	invoker := &stubInvoker{err: context.DeadlineExceeded}

	round := newTestRound(store, invoker)
	record, err := round.Run(context.Background(), participant, competition)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if record.Status != model.DecisionStatusTimeout {
		t.Fatalf("status = %s, want timeout", record.Status)
	}
}
