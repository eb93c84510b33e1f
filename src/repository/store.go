package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"agentarena/src/database"
	"agentarena/src/decision"
	"agentarena/src/model"
	"agentarena/src/portfolio"
	"agentarena/src/risk"
	"agentarena/src/trading"
)

// Store composes the per-entity repositories into the persistence
// boundaries decision.Round, risk.Monitor and scheduler.Scheduler need.
// One Store per process, backed by database.MainDB; NewStoreWithDB builds
// one bound to a transaction for tests or nested callers.
type Store struct {
	db *gorm.DB

	competitions *CompetitionRepository
	participants *ParticipantRepository
	portfolios   *PortfolioRepository
	orders       *OrderRepository
	trades       *TradeRepository
	decisions    *DecisionRepository
	audits       *AuditRepository
	exceptions   *ExceptionRepository
}

func NewStore() *Store {
	return NewStoreWithDB(database.MainDB)
}

func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		competitions: NewCompetitionRepository().WithDB(db),
		participants: NewParticipantRepository().WithDB(db),
		portfolios:   NewPortfolioRepository().WithDB(db),
		orders:       NewOrderRepository().WithDB(db),
		trades:       NewTradeRepository().WithDB(db),
		decisions:    NewDecisionRepository().WithDB(db),
		audits:       NewAuditRepository().WithDB(db),
		exceptions:   NewExceptionRepository().WithDB(db),
	}
}

// --- decision.Store -------------------------------------------------------

func (s *Store) LoadPortfolio(ctx context.Context, participantID uuid.UUID) (*model.Portfolio, []model.Position, error) {
	pf, err := s.portfolios.ByParticipantID(ctx, participantID)
	if err != nil {
		return nil, nil, fmt.Errorf("repository: load portfolio for participant %s: %w", participantID, err)
	}
	if pf == nil {
		return nil, nil, fmt.Errorf("repository: no portfolio for participant %s", participantID)
	}
	positions, err := s.portfolios.PositionsByPortfolioID(ctx, pf.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("repository: load positions for portfolio %s: %w", pf.ID, err)
	}
	return pf, positions, nil
}

func (s *Store) RecentTrades(ctx context.Context, participantID uuid.UUID, limit int) ([]model.Trade, error) {
	return s.trades.RecentByParticipant(ctx, participantID, limit)
}

func (s *Store) Leaderboard(ctx context.Context, competitionID uuid.UUID) ([]decision.LeaderboardEntry, error) {
	rows, err := s.participants.Leaderboard(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("repository: load leaderboard for competition %s: %w", competitionID, err)
	}

	entries := make([]decision.LeaderboardEntry, 0, len(rows))
	for i, p := range rows {
		entries = append(entries, decision.LeaderboardEntry{
			Rank:   i + 1,
			Name:   p.Name,
			Equity: p.CurrentEquity,
			PnLPct: p.PnLPct(),
		})
	}
	return entries, nil
}

// SaveRound persists the full result of one decision round inside a single
// transaction: the participant's updated counters/equity, the portfolio's
// cash/margin columns, the final open-position set, every order, every
// trade, a portfolio-history sample and the DecisionRecord itself.
func (s *Store) SaveRound(ctx context.Context, st *trading.State, orders []*model.Order, trades []*model.Trade, record *model.DecisionRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := NewStoreWithDB(tx)

		if err := txStore.participants.Save(ctx, st.Participant); err != nil {
			return fmt.Errorf("repository: save participant: %w", err)
		}
		if err := txStore.portfolios.Update(ctx, st.Portfolio); err != nil {
			return fmt.Errorf("repository: save portfolio: %w", err)
		}
		if err := replacePositions(tx, st.Portfolio.ID, st.Positions); err != nil {
			return err
		}
		for _, o := range orders {
			if err := txStore.orders.Create(ctx, o); err != nil {
				return fmt.Errorf("repository: save order: %w", err)
			}
		}
		for _, t := range trades {
			if err := txStore.trades.Create(ctx, t); err != nil {
				return fmt.Errorf("repository: save trade: %w", err)
			}
		}

		view := portfolio.Snapshot(*st.Portfolio, st.Positions)
		if err := txStore.portfolios.RecordHistory(ctx, historyFromView(st.Participant.ID, view)); err != nil {
			return fmt.Errorf("repository: save portfolio history: %w", err)
		}

		if err := txStore.decisions.Create(ctx, record); err != nil {
			return fmt.Errorf("repository: save decision record: %w", err)
		}
		return nil
	})
}

// --- risk.Store ------------------------------------------------------------

func (s *Store) SymbolsInUse(ctx context.Context) ([]string, error) {
	return s.portfolios.SymbolsInUse(ctx)
}

func (s *Store) ActivePortfolioStates(ctx context.Context) ([]risk.PortfolioState, error) {
	var participants []model.Participant
	if err := s.db.WithContext(ctx).Where("status = ?", model.ParticipantStatusActive).Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("repository: load active participants: %w", err)
	}

	states := make([]risk.PortfolioState, 0, len(participants))
	for i := range participants {
		p := &participants[i]

		var competition model.Competition
		if err := s.db.WithContext(ctx).First(&competition, "id = ?", p.CompetitionID).Error; err != nil {
			return nil, fmt.Errorf("repository: load competition %s: %w", p.CompetitionID, err)
		}

		pf, err := s.portfolios.ByParticipantID(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("repository: load portfolio for participant %s: %w", p.ID, err)
		}
		if pf == nil {
			continue
		}
		positions, err := s.portfolios.PositionsByPortfolioID(ctx, pf.ID)
		if err != nil {
			return nil, fmt.Errorf("repository: load positions for portfolio %s: %w", pf.ID, err)
		}

		states = append(states, risk.PortfolioState{
			Participant: p,
			Competition: &competition,
			Portfolio:   pf,
			Positions:   positions,
		})
	}
	return states, nil
}

func (s *Store) SaveReprice(ctx context.Context, state risk.PortfolioState, view model.PortfolioView) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := NewStoreWithDB(tx)
		if err := txStore.participants.Save(ctx, state.Participant); err != nil {
			return fmt.Errorf("repository: save participant equity: %w", err)
		}
		if err := replacePositions(tx, state.Portfolio.ID, state.Positions); err != nil {
			return err
		}
		if err := txStore.portfolios.RecordHistory(ctx, historyFromView(state.Participant.ID, view)); err != nil {
			return fmt.Errorf("repository: save portfolio history: %w", err)
		}
		return nil
	})
}

func (s *Store) SaveLiquidation(ctx context.Context, st *trading.State, orders []*model.Order, trades []*model.Trade, audit model.AuditLog) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := NewStoreWithDB(tx)
		if err := txStore.participants.Save(ctx, st.Participant); err != nil {
			return fmt.Errorf("repository: save liquidated participant: %w", err)
		}
		if err := txStore.portfolios.Update(ctx, st.Portfolio); err != nil {
			return fmt.Errorf("repository: save portfolio: %w", err)
		}
		if err := replacePositions(tx, st.Portfolio.ID, st.Positions); err != nil {
			return err
		}
		for _, o := range orders {
			if err := txStore.orders.Create(ctx, o); err != nil {
				return fmt.Errorf("repository: save liquidation order: %w", err)
			}
		}
		for _, t := range trades {
			if err := txStore.trades.Create(ctx, t); err != nil {
				return fmt.Errorf("repository: save liquidation trade: %w", err)
			}
		}
		if err := txStore.audits.Create(ctx, &audit); err != nil {
			return fmt.Errorf("repository: save liquidation audit entry: %w", err)
		}
		return nil
	})
}

// --- scheduler.CompetitionSource / ParticipantSource / Disqualifier --------

func (s *Store) ActiveCompetitions(ctx context.Context) ([]*model.Competition, error) {
	rows, err := s.competitions.Active(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Competition, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (s *Store) CompetitionByID(ctx context.Context, id uuid.UUID) (*model.Competition, error) {
	return s.competitions.FindByID(ctx, id)
}

func (s *Store) ActiveParticipants(ctx context.Context, competitionID uuid.UUID) ([]*model.Participant, error) {
	rows, err := s.participants.ActiveByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Participant, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (s *Store) Disqualify(ctx context.Context, participantID uuid.UUID, reason string) error {
	if err := s.participants.UpdateStatus(ctx, participantID, model.ParticipantStatusDisqualified); err != nil {
		return err
	}
	return s.audits.Create(ctx, &model.AuditLog{
		ParticipantID: &participantID,
		Level:         "error",
		Message:       fmt.Sprintf("participant %s disqualified: %s", participantID, reason),
	})
}

// RecordException satisfies scheduler.ExceptionRecorder: the operations-log
// surface spec §7 requires for an internal_consistency violation, distinct
// from the participant-facing AuditLog row Disqualify also writes.
func (s *Store) RecordException(ctx context.Context, exc *model.Exception) error {
	return s.exceptions.Create(ctx, exc)
}

// ResetCompetition reinitializes every participant of a competition back to
// its starting state: equity reset to the participant's initial capital,
// trade counters zeroed, status restored to active, portfolio cash/margin/P&L
// reset and positions cleared. Orders, trades and decision records are left
// untouched as the audit trail of the run being reset, and the competition's
// own status/time window are not touched — a caller that also wants a clean
// lifecycle calls start/stop separately. See DESIGN.md's pinned decision on
// reset-competition semantics.
func (s *Store) ResetCompetition(ctx context.Context, competitionID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := NewStoreWithDB(tx)

		participants, err := txStore.participants.ByCompetition(ctx, competitionID)
		if err != nil {
			return fmt.Errorf("repository: load participants for competition %s: %w", competitionID, err)
		}

		for i := range participants {
			p := &participants[i]
			p.Status = model.ParticipantStatusActive
			p.CurrentEquity = p.InitialCapital
			p.PeakEquity = p.InitialCapital
			p.TotalTrades = 0
			p.WinningTrades = 0
			p.LosingTrades = 0
			if err := txStore.participants.Save(ctx, p); err != nil {
				return fmt.Errorf("repository: reset participant %s: %w", p.ID, err)
			}

			pf, err := txStore.portfolios.ByParticipantID(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("repository: load portfolio for participant %s: %w", p.ID, err)
			}
			if pf == nil {
				continue
			}
			pf.CashBalance = p.InitialCapital
			pf.ReservedMargin = decimal.Zero
			pf.RealizedPnL = decimal.Zero
			if err := txStore.portfolios.Update(ctx, pf); err != nil {
				return fmt.Errorf("repository: reset portfolio for participant %s: %w", p.ID, err)
			}
			if err := replacePositions(tx, pf.ID, nil); err != nil {
				return err
			}
		}

		return txStore.audits.Create(ctx, &model.AuditLog{
			CompetitionID: &competitionID,
			Level:         "info",
			Message:       fmt.Sprintf("competition %s reset: %d participants restored to initial capital", competitionID, len(participants)),
		})
	})
}

// --- helpers ----------------------------------------------------------------

// replacePositions overwrites a portfolio's open positions with the final
// set a round or reprice produced. trading.Engine threads st.Positions
// through as a full replacement slice rather than a delta, so the simplest
// correct persistence is delete-then-reinsert inside the same transaction.
func replacePositions(tx *gorm.DB, portfolioID uuid.UUID, positions []model.Position) error {
	if err := tx.Where("portfolio_id = ?", portfolioID).Delete(&model.Position{}).Error; err != nil {
		return fmt.Errorf("repository: clear positions for portfolio %s: %w", portfolioID, err)
	}
	if len(positions) == 0 {
		return nil
	}
	rows := make([]model.Position, len(positions))
	copy(rows, positions)
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("repository: reinsert positions for portfolio %s: %w", portfolioID, err)
	}
	return nil
}

func historyFromView(participantID uuid.UUID, view model.PortfolioView) *model.PortfolioHistory {
	return &model.PortfolioHistory{
		ID:             uuid.New(),
		ParticipantID:  participantID,
		Equity:         view.Equity,
		CashBalance:    view.CashBalance,
		ReservedMargin: view.ReservedMargin,
		RealizedPnL:    view.RealizedPnL,
		UnrealizedPnL:  view.UnrealizedPnL,
		TotalPnL:       view.TotalPnL,
	}
}

// SortPositionsBySymbol gives handler-level listing endpoints a
// deterministic position order independent of insertion order.
func SortPositionsBySymbol(positions []model.Position) []model.Position {
	out := make([]model.Position, len(positions))
	copy(out, positions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
