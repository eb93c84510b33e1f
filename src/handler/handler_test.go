package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"agentarena/src/decision"
	"agentarena/src/model"
	"agentarena/src/security"
)

func testSecurityConfig() security.Config {
	return security.Config{ModelConfigKey: "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="}
}

type stubCompetitionRepo struct {
	created   *model.Competition
	rows      []model.Competition
	byID      map[uuid.UUID]*model.Competition
	setStatus map[uuid.UUID]string
}

func (s *stubCompetitionRepo) Create(ctx context.Context, c *model.Competition) error {
	s.created = c
	return nil
}

func (s *stubCompetitionRepo) List(ctx context.Context) ([]model.Competition, error) {
	return s.rows, nil
}

func (s *stubCompetitionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Competition, error) {
	if s.byID == nil {
		return nil, nil
	}
	return s.byID[id], nil
}

func (s *stubCompetitionRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if s.setStatus == nil {
		s.setStatus = map[uuid.UUID]string{}
	}
	s.setStatus[id] = status
	return nil
}

func TestCreateCompetitionHandlerCreatesWithPendingStatus(t *testing.T) {
	repo := &stubCompetitionRepo{}
	body := strings.NewReader(`{"name":"winter-cup","start_time":"2026-01-01T00:00:00Z","end_time":"2026-02-01T00:00:00Z","initial_capital":"10000","allowed_instruments":["BTCUSDT"]}`)

	req := httptest.NewRequest(http.MethodPost, "/competitions", body)
	rec := httptest.NewRecorder()

	CreateCompetitionHandler(repo)(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	if assert.NotNil(t, repo.created, "expected competition to be created") {
		assert.Equal(t, model.CompetitionStatusPending, repo.created.Status)
		assert.True(t, repo.created.AllowedInstruments.Contains("BTCUSDT"))
	}
}

func TestCreateCompetitionHandlerRejectsMissingName(t *testing.T) {
	repo := &stubCompetitionRepo{}
	body := strings.NewReader(`{"start_time":"2026-01-01T00:00:00Z","end_time":"2026-02-01T00:00:00Z"}`)

	req := httptest.NewRequest(http.MethodPost, "/competitions", body)
	rec := httptest.NewRecorder()

	CreateCompetitionHandler(repo)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetCompetitionHandlerReturns404WhenMissing(t *testing.T) {
	repo := &stubCompetitionRepo{byID: map[uuid.UUID]*model.Competition{}}

	r := chi.NewRouter()
	r.Get("/competitions/{id}", GetCompetitionHandler(repo))

	req := httptest.NewRequest(http.MethodGet, "/competitions/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStopCompetitionHandlerSetsCompletedStatus(t *testing.T) {
	repo := &stubCompetitionRepo{}
	id := uuid.New()

	r := chi.NewRouter()
	r.Post("/competitions/{id}/stop", StopCompetitionHandler(repo))

	req := httptest.NewRequest(http.MethodPost, "/competitions/"+id.String()+"/stop", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.setStatus[id] != model.CompetitionStatusCompleted {
		t.Fatalf("status set = %q, want completed", repo.setStatus[id])
	}
}

type stubLeaderboard struct {
	entries []decision.LeaderboardEntry
}

func (s *stubLeaderboard) Leaderboard(ctx context.Context, competitionID uuid.UUID) ([]decision.LeaderboardEntry, error) {
	return s.entries, nil
}

func TestLeaderboardHandlerReturnsRankedEntries(t *testing.T) {
	repo := &stubLeaderboard{entries: []decision.LeaderboardEntry{
		{Rank: 1, Name: "alpha", Equity: decimal.NewFromInt(12000), PnLPct: decimal.NewFromInt(20)},
	}}

	r := chi.NewRouter()
	r.Get("/competitions/{id}/leaderboard", LeaderboardHandler(repo))

	req := httptest.NewRequest(http.MethodGet, "/competitions/"+uuid.New().String()+"/leaderboard", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got []decision.LeaderboardEntry
	err := json.Unmarshal(rec.Body.Bytes(), &got)
	assert.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "alpha", got[0].Name)
	}
}

type stubParticipantRepo struct {
	created *model.Participant
	byID    map[uuid.UUID]*model.Participant
}

func (s *stubParticipantRepo) Create(ctx context.Context, p *model.Participant) error {
	s.created = p
	return nil
}

func (s *stubParticipantRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Participant, error) {
	if s.byID == nil {
		return nil, nil
	}
	return s.byID[id], nil
}

type stubPortfolioCreator struct {
	created *model.Portfolio
}

func (s *stubPortfolioCreator) Create(ctx context.Context, p *model.Portfolio) error {
	s.created = p
	return nil
}

func TestCreateParticipantHandlerOpensPortfolioAtInitialCapital(t *testing.T) {
	competitionID := uuid.New()
	competitions := &stubCompetitionRepo{byID: map[uuid.UUID]*model.Competition{
		competitionID: {ID: competitionID, InitialCapital: decimal.NewFromInt(10000)},
	}}
	participants := &stubParticipantRepo{}
	portfolios := &stubPortfolioCreator{}

	r := chi.NewRouter()
	r.Post("/competitions/{id}/participants", CreateParticipantHandler(competitions, participants, portfolios, testSecurityConfig()))

	body := strings.NewReader(`{"name":"agent-1","model_provider":"anthropic","model_id":"claude","model_config":"{}"}`)
	req := httptest.NewRequest(http.MethodPost, "/competitions/"+competitionID.String()+"/participants", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
	if participants.created == nil || !participants.created.CurrentEquity.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected participant seeded at initial capital, got %+v", participants.created)
	}
	if portfolios.created == nil || !portfolios.created.CashBalance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected portfolio opened at initial capital, got %+v", portfolios.created)
	}
}

func TestCreateParticipantHandlerReturns404ForUnknownCompetition(t *testing.T) {
	competitions := &stubCompetitionRepo{byID: map[uuid.UUID]*model.Competition{}}
	participants := &stubParticipantRepo{}
	portfolios := &stubPortfolioCreator{}

	r := chi.NewRouter()
	r.Post("/competitions/{id}/participants", CreateParticipantHandler(competitions, participants, portfolios, testSecurityConfig()))

	body := strings.NewReader(`{"name":"agent-1","model_provider":"anthropic","model_id":"claude"}`)
	req := httptest.NewRequest(http.MethodPost, "/competitions/"+uuid.New().String()+"/participants", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

type stubResetter struct {
	resetID uuid.UUID
}

func (s *stubResetter) ResetCompetition(ctx context.Context, competitionID uuid.UUID) error {
	s.resetID = competitionID
	return nil
}

func TestResetCompetitionHandlerRejectsMissingCompetitionID(t *testing.T) {
	resetter := &stubResetter{}
	req := httptest.NewRequest(http.MethodPost, "/internal/reset-competition", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	ResetCompetitionHandler(resetter)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestResetCompetitionHandlerResetsRequestedCompetition(t *testing.T) {
	resetter := &stubResetter{}
	competitionID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/internal/reset-competition", strings.NewReader(`{"competition_id":"`+competitionID.String()+`"}`))
	rec := httptest.NewRecorder()

	ResetCompetitionHandler(resetter)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if resetter.resetID != competitionID {
		t.Fatalf("reset id = %s, want %s", resetter.resetID, competitionID)
	}
}

type stubTickTrigger struct {
	invoked bool
}

func (s *stubTickTrigger) InvokeAllNow(ctx context.Context) error {
	s.invoked = true
	return nil
}

func TestInvokeParticipantsHandlerTriggersScheduler(t *testing.T) {
	trigger := &stubTickTrigger{}
	req := httptest.NewRequest(http.MethodPost, "/internal/invoke-participants", nil)
	rec := httptest.NewRecorder()

	InvokeParticipantsHandler(trigger)(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, trigger.invoked, "expected scheduler to be triggered")
}

type stubRoundRunner struct {
	record *model.DecisionRecord
}

func (s *stubRoundRunner) Run(ctx context.Context, participant *model.Participant, competition *model.Competition) (*model.DecisionRecord, error) {
	return s.record, nil
}

func TestTriggerInvocationHandlerReturns404ForUnknownParticipant(t *testing.T) {
	participants := &stubParticipantRepo{}
	competitions := &stubCompetitionRepo{}
	runner := &stubRoundRunner{}

	r := chi.NewRouter()
	r.Post("/internal/trigger-invocation/{id}", TriggerInvocationHandler(participants, competitions, runner))

	req := httptest.NewRequest(http.MethodPost, "/internal/trigger-invocation/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestTriggerInvocationHandlerRunsRoundForKnownParticipant(t *testing.T) {
	competitionID := uuid.New()
	participantID := uuid.New()
	participants := &stubParticipantRepo{byID: map[uuid.UUID]*model.Participant{
		participantID: {ID: participantID, CompetitionID: competitionID},
	}}
	competitions := &stubCompetitionRepo{byID: map[uuid.UUID]*model.Competition{
		competitionID: {ID: competitionID},
	}}
	runner := &stubRoundRunner{record: &model.DecisionRecord{ID: uuid.New(), ParticipantID: participantID, Status: model.DecisionStatusSuccess}}

	r := chi.NewRouter()
	r.Post("/internal/trigger-invocation/{id}", TriggerInvocationHandler(participants, competitions, runner))

	req := httptest.NewRequest(http.MethodPost, "/internal/trigger-invocation/"+participantID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var got model.DecisionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != model.DecisionStatusSuccess {
		t.Fatalf("status = %q, want success", got.Status)
	}
}
