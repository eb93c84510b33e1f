package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentarena/src/decision"
	"agentarena/src/model"
	"agentarena/src/repository"
)

type competitionCreator interface {
	Create(ctx context.Context, c *model.Competition) error
}

type competitionLister interface {
	List(ctx context.Context) ([]model.Competition, error)
}

type competitionGetter interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Competition, error)
}

type competitionStatusSetter interface {
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type leaderboardProvider interface {
	Leaderboard(ctx context.Context, competitionID uuid.UUID) ([]decision.LeaderboardEntry, error)
}

// createCompetitionRequest is the wire shape of POST /competitions.
type createCompetitionRequest struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	StartTime            time.Time       `json:"start_time"`
	EndTime              time.Time       `json:"end_time"`
	InvocationIntervalMinutes int        `json:"invocation_interval_minutes"`
	InitialCapital       decimal.Decimal `json:"initial_capital"`
	MaxLeverage          decimal.Decimal `json:"max_leverage"`
	MaxPositionSizePct   decimal.Decimal `json:"max_position_size_pct"`
	MarginRequirementPct decimal.Decimal `json:"margin_requirement_pct"`
	MaintenanceMarginPct decimal.Decimal `json:"maintenance_margin_pct"`
	AllowedInstruments   []string        `json:"allowed_instruments"`
	MaxParticipants      int             `json:"max_participants"`
	MarketHoursOnly      bool            `json:"market_hours_only"`
}

// CreateCompetitionHandler handles POST /competitions.
func CreateCompetitionHandler(repo competitionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCompetitionRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.EndTime.Before(req.StartTime) {
			http.Error(w, "name is required and end_time must not precede start_time", http.StatusBadRequest)
			return
		}
		if req.InvocationIntervalMinutes <= 0 {
			req.InvocationIntervalMinutes = 15
		}

		competition := &model.Competition{
			ID:                        uuid.New(),
			Name:                      req.Name,
			Description:               req.Description,
			Status:                    model.CompetitionStatusPending,
			StartTime:                 req.StartTime,
			EndTime:                   req.EndTime,
			InvocationIntervalMinutes: req.InvocationIntervalMinutes,
			InitialCapital:            req.InitialCapital,
			MaxLeverage:               req.MaxLeverage,
			MaxPositionSizePct:        req.MaxPositionSizePct,
			MarginRequirementPct:      req.MarginRequirementPct,
			MaintenanceMarginPct:      req.MaintenanceMarginPct,
			AllowedInstruments:        model.NewStringSet(req.AllowedInstruments...),
			MaxParticipants:           req.MaxParticipants,
			MarketHoursOnly:           req.MarketHoursOnly,
		}

		if err := repo.Create(r.Context(), competition); err != nil {
			logger.WithError(err).Error("failed to create competition")
			http.Error(w, "unable to create competition", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, competition)
	}
}

// ListCompetitionsHandler handles GET /competitions.
func ListCompetitionsHandler(repo competitionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := repo.List(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to list competitions")
			http.Error(w, "unable to list competitions", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// GetCompetitionHandler handles GET /competitions/{id}.
func GetCompetitionHandler(repo competitionGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		competition, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to load competition")
			http.Error(w, "unable to load competition", http.StatusInternalServerError)
			return
		}
		if competition == nil {
			http.Error(w, "competition not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, competition)
	}
}

// startOrStopCompetitionHandler implements both POST /competitions/{id}/start
// and POST /competitions/{id}/stop: both are a status transition, per spec
// §5's "competition stop transitions the competition to completed" note.
func startOrStopCompetitionHandler(repo competitionStatusSetter, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := repo.SetStatus(r.Context(), id, status); err != nil {
			logger.WithError(err).Error("failed to set competition status")
			http.Error(w, "unable to update competition status", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id.String(), "status": status})
	}
}

// StartCompetitionHandler handles POST /competitions/{id}/start.
func StartCompetitionHandler(repo competitionStatusSetter) http.HandlerFunc {
	return startOrStopCompetitionHandler(repo, model.CompetitionStatusActive)
}

// StopCompetitionHandler handles POST /competitions/{id}/stop. The scheduler
// observes the status change on its next poll and drops the competition's
// pending decision ticks; in-flight rounds are left to finish and record.
func StopCompetitionHandler(repo competitionStatusSetter) http.HandlerFunc {
	return startOrStopCompetitionHandler(repo, model.CompetitionStatusCompleted)
}

// LeaderboardHandler handles GET /competitions/{id}/leaderboard.
func LeaderboardHandler(repo leaderboardProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		entries, err := repo.Leaderboard(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to build leaderboard")
			http.Error(w, "unable to load leaderboard", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// parseUUIDParam reads a chi URL parameter and parses it as a UUID.
func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// writeJSON encodes v as the JSON response body, logging (never panicking)
// on an encode failure after headers are already written.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// DefaultCreateCompetitionHandler wires CreateCompetitionHandler to the
// production repository implementation.
func DefaultCreateCompetitionHandler() http.HandlerFunc {
	return CreateCompetitionHandler(repository.NewCompetitionRepository())
}

// DefaultListCompetitionsHandler wires ListCompetitionsHandler to the
// production repository implementation.
func DefaultListCompetitionsHandler() http.HandlerFunc {
	return ListCompetitionsHandler(repository.NewCompetitionRepository())
}

// DefaultGetCompetitionHandler wires GetCompetitionHandler to the production
// repository implementation.
func DefaultGetCompetitionHandler() http.HandlerFunc {
	return GetCompetitionHandler(repository.NewCompetitionRepository())
}

// DefaultStartCompetitionHandler wires StartCompetitionHandler to the
// production repository implementation.
func DefaultStartCompetitionHandler() http.HandlerFunc {
	return StartCompetitionHandler(repository.NewCompetitionRepository())
}

// DefaultStopCompetitionHandler wires StopCompetitionHandler to the
// production repository implementation.
func DefaultStopCompetitionHandler() http.HandlerFunc {
	return StopCompetitionHandler(repository.NewCompetitionRepository())
}

// DefaultLeaderboardHandler wires LeaderboardHandler to the production
// store implementation.
func DefaultLeaderboardHandler() http.HandlerFunc {
	return LeaderboardHandler(repository.NewStore())
}
