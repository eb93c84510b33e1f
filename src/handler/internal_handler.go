package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"agentarena/src/model"
	"agentarena/src/repository"
)

// tickTrigger is the scheduler capability /internal/invoke-participants
// needs: one off-cycle decision tick across every active competition.
// *scheduler.Scheduler satisfies this via InvokeAllNow.
type tickTrigger interface {
	InvokeAllNow(ctx context.Context) error
}

// roundRunner runs one participant's decision round synchronously;
// *decision.Round satisfies this directly.
type roundRunner interface {
	Run(ctx context.Context, participant *model.Participant, competition *model.Competition) (*model.DecisionRecord, error)
}

// competitionResetter reinitializes a competition's participants to their
// starting state; *repository.Store satisfies this via ResetCompetition.
type competitionResetter interface {
	ResetCompetition(ctx context.Context, competitionID uuid.UUID) error
}

// InvokeParticipantsHandler handles POST /internal/invoke-participants: an
// operator-triggered off-cycle tick across every active competition,
// outside the normal per-competition timer.
func InvokeParticipantsHandler(scheduler tickTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := scheduler.InvokeAllNow(r.Context()); err != nil {
			logger.WithError(err).Error("failed to invoke participants")
			http.Error(w, "unable to invoke participants", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "invocation triggered"})
	}
}

// TriggerInvocationHandler handles POST /internal/trigger-invocation/{id}:
// runs one participant's decision round immediately, bypassing the
// scheduler's per-competition timer and inflight guard, and returns the
// resulting decision record synchronously.
func TriggerInvocationHandler(participants participantGetter, competitions competitionGetter, runner roundRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participantID, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		participant, err := participants.FindByID(r.Context(), participantID)
		if err != nil {
			logger.WithError(err).Error("failed to load participant for manual invocation")
			http.Error(w, "unable to load participant", http.StatusInternalServerError)
			return
		}
		if participant == nil {
			http.Error(w, "participant not found", http.StatusNotFound)
			return
		}

		competition, err := competitions.FindByID(r.Context(), participant.CompetitionID)
		if err != nil {
			logger.WithError(err).Error("failed to load competition for manual invocation")
			http.Error(w, "unable to load competition", http.StatusInternalServerError)
			return
		}
		if competition == nil {
			http.Error(w, "competition not found", http.StatusNotFound)
			return
		}

		record, err := runner.Run(r.Context(), participant, competition)
		if err != nil {
			logger.WithError(err).Error("manual invocation failed")
			http.Error(w, "unable to run invocation", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// resetCompetitionRequest is the wire shape of POST /internal/reset-competition.
type resetCompetitionRequest struct {
	CompetitionID uuid.UUID `json:"competition_id"`
}

// ResetCompetitionHandler handles POST /internal/reset-competition. See
// DESIGN.md for the pinned decision on what "reset" means: every
// participant's equity, counters and portfolio are restored to the
// competition's initial capital and open positions are cleared; historical
// orders, trades and decision records are left as the prior run's audit
// trail, and the competition's own status is untouched.
func ResetCompetitionHandler(resetter competitionResetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetCompetitionRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil || req.CompetitionID == uuid.Nil {
			http.Error(w, "competition_id is required", http.StatusBadRequest)
			return
		}

		if err := resetter.ResetCompetition(r.Context(), req.CompetitionID); err != nil {
			logger.WithError(err).Error("failed to reset competition")
			http.Error(w, "unable to reset competition", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"competition_id": req.CompetitionID.String(), "status": "reset"})
	}
}

// DefaultResetCompetitionHandler wires ResetCompetitionHandler to the
// production store implementation. InvokeParticipantsHandler and
// TriggerInvocationHandler have no equivalent Default wiring helper: both
// need the scheduler's and decision.Round's long-lived singletons, which
// main.go constructs once at startup and passes into src/server directly.
func DefaultResetCompetitionHandler() http.HandlerFunc {
	return ResetCompetitionHandler(repository.NewStore())
}
