// Package scheduler drives the two periodic jobs described in spec §4.6:
// a global price-refresh tick and one decision tick per active competition,
// fanned out concurrently across that competition's active participants.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"agentarena/src/model"
)

// CompetitionSource lists and refreshes the competitions the scheduler ticks.
type CompetitionSource interface {
	ActiveCompetitions(ctx context.Context) ([]*model.Competition, error)
	CompetitionByID(ctx context.Context, id uuid.UUID) (*model.Competition, error)
}

// ParticipantSource lists the participants a decision tick should invoke.
type ParticipantSource interface {
	ActiveParticipants(ctx context.Context, competitionID uuid.UUID) ([]*model.Participant, error)
}

// DecisionRunner runs one participant's decision round; *decision.Round
// satisfies this directly.
type DecisionRunner interface {
	Run(ctx context.Context, participant *model.Participant, competition *model.Competition) (*model.DecisionRecord, error)
}

// PriceRefreshJob performs one price-refresh cycle: fetch marks, reprice
// every portfolio, then run the liquidation check on each. *risk.Monitor
// satisfies this.
type PriceRefreshJob interface {
	RefreshAndMonitor(ctx context.Context) error
}

// Disqualifier marks a participant disqualified after an invariant
// violation is detected, per spec §4.5's propagation policy.
type Disqualifier interface {
	Disqualify(ctx context.Context, participantID uuid.UUID, reason string) error
}

// ExceptionRecorder persists the operations-log record spec §7 requires for
// an internal_consistency violation, separate from the participant-facing
// disqualification audit entry. *repository.Store satisfies this directly.
type ExceptionRecorder interface {
	RecordException(ctx context.Context, exc *model.Exception) error
}

// MarketHoursOracle gates decision ticks for competitions flagged
// market_hours_only; it never gates the price-refresh job (see
// SPEC_FULL.md's pinned decision on this). *risk.MarketHours satisfies it.
type MarketHoursOracle interface {
	IsOpen(now time.Time) bool
}

// Scheduler is the process-wide singleton described in spec §5: it owns
// the price-refresh timer and one decision timer per active competition.
type Scheduler struct {
	Competitions CompetitionSource
	Participants ParticipantSource
	Rounds       DecisionRunner
	PriceJob     PriceRefreshJob
	Disqualifier Disqualifier
	Exceptions   ExceptionRecorder
	MarketHours  MarketHoursOracle

	PriceRefreshInterval   time.Duration
	CompetitionPollInterval time.Duration

	inflight inflightGuard

	mu                 sync.Mutex
	competitionCancels map[uuid.UUID]context.CancelFunc
	cancel             context.CancelFunc
	wg                 sync.WaitGroup

	log *logger.Entry
}

// New builds a Scheduler. priceRefreshInterval is the global tick period
// for price updates; competitionPollInterval is how often the scheduler
// re-checks which competitions are active and starts or stops their
// per-competition decision tickers.
func New(competitions CompetitionSource, participants ParticipantSource, rounds DecisionRunner, priceJob PriceRefreshJob, priceRefreshInterval, competitionPollInterval time.Duration) *Scheduler {
	return &Scheduler{
		Competitions:            competitions,
		Participants:            participants,
		Rounds:                  rounds,
		PriceJob:                priceJob,
		PriceRefreshInterval:    priceRefreshInterval,
		CompetitionPollInterval: competitionPollInterval,
		competitionCancels:      make(map[uuid.UUID]context.CancelFunc),
		log:                     logger.WithField("component", "scheduler"),
	}
}

// Start launches the price-refresh loop and the competition supervisor loop.
// It returns immediately; both loops run until Stop is called.
func (s *Scheduler) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	s.wg.Add(2)
	go s.runPriceRefresh(ctx)
	go s.runCompetitionSupervisor(ctx)

	s.log.Info("scheduler started")
}

// Stop stops accepting new ticks, cancels in-flight invocations by
// cancelling their context, and blocks until every in-flight round and
// price-refresh cycle has finished and flushed to the record store.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runPriceRefresh(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.PriceRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PriceJob.RefreshAndMonitor(ctx); err != nil {
				s.log.WithError(err).Error("price refresh cycle failed")
			}
		}
	}
}

func (s *Scheduler) runCompetitionSupervisor(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.reconcileCompetitions(ctx)

		select {
		case <-ctx.Done():
			s.stopAllCompetitionTickers()
			return
		case <-time.After(s.CompetitionPollInterval):
		}
	}
}

// reconcileCompetitions starts a decision ticker for every active
// competition not already ticking, and stops tickers for competitions that
// are no longer active — per spec §5, a competition stop "drops all
// pending decision ticks for that competition".
func (s *Scheduler) reconcileCompetitions(ctx context.Context) {
	active, err := s.Competitions.ActiveCompetitions(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to list active competitions")
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(active))
	for _, competition := range active {
		seen[competition.ID] = struct{}{}

		s.mu.Lock()
		_, running := s.competitionCancels[competition.ID]
		s.mu.Unlock()
		if running {
			continue
		}

		cctx, ccancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.competitionCancels[competition.ID] = ccancel
		s.mu.Unlock()

		s.wg.Add(1)
		go s.runDecisionTicks(cctx, competition.ID, competition.InvocationIntervalMinutes)
	}

	s.mu.Lock()
	for id, cancel := range s.competitionCancels {
		if _, ok := seen[id]; !ok {
			cancel()
			delete(s.competitionCancels, id)
		}
	}
	s.mu.Unlock()
}

// InvokeAllNow fires one decision tick for every active competition outside
// the normal per-competition timer, for the operator-triggered
// /internal/invoke-participants endpoint. It reuses fireDecisionTick so the
// forced tick goes through the same market-hours gate and inflight guard a
// regular tick would.
func (s *Scheduler) InvokeAllNow(ctx context.Context) error {
	active, err := s.Competitions.ActiveCompetitions(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: list active competitions: %w", err)
	}
	for _, competition := range active {
		s.fireDecisionTick(ctx, competition.ID)
	}
	return nil
}

func (s *Scheduler) stopAllCompetitionTickers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.competitionCancels {
		cancel()
		delete(s.competitionCancels, id)
	}
}

func (s *Scheduler) runDecisionTicks(ctx context.Context, competitionID uuid.UUID, invocationIntervalMinutes int) {
	defer s.wg.Done()

	interval := time.Duration(invocationIntervalMinutes) * time.Minute
	if interval <= 0 {
		s.log.WithField("competition_id", competitionID).Warn("invalid invocation interval, decision ticker not started")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDecisionTick(ctx, competitionID)
		}
	}
}

func (s *Scheduler) fireDecisionTick(ctx context.Context, competitionID uuid.UUID) {
	competition, err := s.Competitions.CompetitionByID(ctx, competitionID)
	if err != nil {
		s.log.WithError(err).WithField("competition_id", competitionID).Error("failed to reload competition")
		return
	}
	if competition == nil || competition.Status != model.CompetitionStatusActive {
		return
	}
	if competition.MarketHoursOnly && s.MarketHours != nil && !s.MarketHours.IsOpen(time.Now()) {
		s.log.WithField("competition_id", competitionID).Debug("decision tick skipped: outside market hours")
		return
	}

	participants, err := s.Participants.ActiveParticipants(ctx, competitionID)
	if err != nil {
		s.log.WithError(err).WithField("competition_id", competitionID).Error("failed to list active participants")
		return
	}

	for _, participant := range participants {
		participant := participant

		if !s.inflight.tryAcquire(participant.ID) {
			s.log.WithFields(logger.Fields{
				"participant_id": participant.ID,
				"competition_id": competitionID,
			}).Warn("decision tick dropped: previous round still running")
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.inflight.release(participant.ID)
			s.runRound(ctx, participant, competition)
		}()
	}
}

// runRound invokes one round and recovers from any panic raised while
// doing so, treating it as the invariant violation described in spec
// §4.5: recoverable errors never disqualify, but an assertion failure in
// the accounting layer is exactly the kind of invariant break that should.
func (s *Scheduler) runRound(ctx context.Context, participant *model.Participant, competition *model.Competition) {
	defer func() {
		if rec := recover(); rec != nil {
			reason := fmt.Sprintf("invariant violation: %v", rec)
			s.log.WithFields(logger.Fields{
				"participant_id": participant.ID,
				"competition_id": competition.ID,
			}).Error(reason)
			if s.Exceptions != nil {
				exc := &model.Exception{
					Service: "scheduler",
					Module:  "decision.Round",
					Method:  "Run",
					Message: fmt.Sprintf("%v", rec),
					Stack:   string(debug.Stack()),
					Level:   "error",
				}
				if err := s.Exceptions.RecordException(ctx, exc); err != nil {
					s.log.WithError(err).Error("failed to record internal_consistency exception")
				}
			}
			if s.Disqualifier != nil {
				if err := s.Disqualifier.Disqualify(ctx, participant.ID, reason); err != nil {
					s.log.WithError(err).Error("failed to disqualify participant after invariant violation")
				}
			}
		}
	}()

	record, err := s.Rounds.Run(ctx, participant, competition)
	if err != nil {
		s.log.WithError(err).WithFields(logger.Fields{
			"participant_id": participant.ID,
			"competition_id": competition.ID,
		}).Error("decision round failed")
		return
	}

	s.log.WithFields(logger.Fields{
		"participant_id": participant.ID,
		"competition_id": competition.ID,
		"status":         record.Status,
	}).Info("decision round recorded")
}

// inflightGuard enforces the overlap policy: at most one outstanding
// decision round per participant, dropping (never queueing) a tick that
// fires while the previous round is still running.
type inflightGuard struct {
	running sync.Map // uuid.UUID -> struct{}
}

func (g *inflightGuard) tryAcquire(id uuid.UUID) bool {
	_, loaded := g.running.LoadOrStore(id, struct{}{})
	return !loaded
}

func (g *inflightGuard) release(id uuid.UUID) {
	g.running.Delete(id)
}
