package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"agentarena/src/model"
	"agentarena/src/portfolio"
	"agentarena/src/repository"
	"agentarena/src/security"
)

type participantCreator interface {
	Create(ctx context.Context, p *model.Participant) error
}

type participantGetter interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Participant, error)
}

type portfolioCreator interface {
	Create(ctx context.Context, p *model.Portfolio) error
}

type portfolioLoader interface {
	ByParticipantID(ctx context.Context, participantID uuid.UUID) (*model.Portfolio, error)
	PositionsByPortfolioID(ctx context.Context, portfolioID uuid.UUID) ([]model.Position, error)
}

type tradeLister interface {
	RecentByParticipant(ctx context.Context, participantID uuid.UUID, limit int) ([]model.Trade, error)
}

type decisionLister interface {
	ByParticipant(ctx context.Context, participantID uuid.UUID, limit int) ([]model.DecisionRecord, error)
}

// createParticipantRequest is the wire shape of POST /competitions/{id}/participants.
type createParticipantRequest struct {
	Name                     string `json:"name"`
	ModelProvider            string `json:"model_provider"`
	ModelID                  string `json:"model_id"`
	ModelConfig              string `json:"model_config"`
	InvocationTimeoutSeconds int    `json:"invocation_timeout_seconds"`
}

// CreateParticipantHandler handles POST /competitions/{id}/participants: it
// enrolls a new agent and opens its portfolio at the competition's initial
// capital in one call, since a participant with no portfolio is not a
// state the rest of the system (decision.Store.LoadPortfolio) tolerates.
func CreateParticipantHandler(competitions competitionGetter, participants participantCreator, portfolios portfolioCreator, securityCfg security.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		competitionID, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		competition, err := competitions.FindByID(r.Context(), competitionID)
		if err != nil {
			logger.WithError(err).Error("failed to load competition for participant enrollment")
			http.Error(w, "unable to load competition", http.StatusInternalServerError)
			return
		}
		if competition == nil {
			http.Error(w, "competition not found", http.StatusNotFound)
			return
		}

		var req createParticipantRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.ModelProvider == "" || req.ModelID == "" {
			http.Error(w, "name, model_provider and model_id are required", http.StatusBadRequest)
			return
		}

		timeout := 30 * time.Second
		if req.InvocationTimeoutSeconds > 0 {
			timeout = time.Duration(req.InvocationTimeoutSeconds) * time.Second
		}

		encryptedConfig, err := security.EncryptString(securityCfg, req.ModelConfig)
		if err != nil {
			logger.WithError(err).Error("failed to encrypt participant model config")
			http.Error(w, "unable to enroll participant", http.StatusInternalServerError)
			return
		}

		participant := &model.Participant{
			ID:                   uuid.New(),
			CompetitionID:        competitionID,
			Name:                 req.Name,
			ModelProvider:        req.ModelProvider,
			ModelID:              req.ModelID,
			ModelConfigEncrypted: encryptedConfig,
			InvocationTimeout:    timeout,
			Status:               model.ParticipantStatusActive,
			CurrentEquity:        competition.InitialCapital,
			InitialCapital:       competition.InitialCapital,
			PeakEquity:           competition.InitialCapital,
		}
		if err := participants.Create(r.Context(), participant); err != nil {
			logger.WithError(err).Error("failed to create participant")
			http.Error(w, "unable to enroll participant", http.StatusInternalServerError)
			return
		}

		initialPortfolio := &model.Portfolio{
			ID:            uuid.New(),
			ParticipantID: participant.ID,
			CashBalance:   competition.InitialCapital,
		}
		if err := portfolios.Create(r.Context(), initialPortfolio); err != nil {
			logger.WithError(err).Error("failed to open initial portfolio for participant")
			http.Error(w, "unable to enroll participant", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, participant)
	}
}

// GetParticipantHandler handles GET /participants/{id}.
func GetParticipantHandler(repo participantGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		participant, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to load participant")
			http.Error(w, "unable to load participant", http.StatusInternalServerError)
			return
		}
		if participant == nil {
			http.Error(w, "participant not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, participant)
	}
}

// PortfolioHandler handles GET /participants/{id}/portfolio, returning the
// fully-derived view: equity, available margin, leverage, P&L.
func PortfolioHandler(repo portfolioLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		pf, positions, err := loadPortfolioAndPositions(r.Context(), repo, id)
		if err != nil {
			logger.WithError(err).Error("failed to load portfolio")
			http.Error(w, "unable to load portfolio", http.StatusInternalServerError)
			return
		}
		if pf == nil {
			http.Error(w, "portfolio not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, portfolio.Snapshot(*pf, positions))
	}
}

// PositionsHandler handles GET /participants/{id}/positions.
func PositionsHandler(repo portfolioLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		_, positions, err := loadPortfolioAndPositions(r.Context(), repo, id)
		if err != nil {
			logger.WithError(err).Error("failed to load positions")
			http.Error(w, "unable to load positions", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, repository.SortPositionsBySymbol(positions))
	}
}

func loadPortfolioAndPositions(ctx context.Context, repo portfolioLoader, participantID uuid.UUID) (*model.Portfolio, []model.Position, error) {
	pf, err := repo.ByParticipantID(ctx, participantID)
	if err != nil {
		return nil, nil, err
	}
	if pf == nil {
		return nil, nil, nil
	}
	positions, err := repo.PositionsByPortfolioID(ctx, pf.ID)
	if err != nil {
		return nil, nil, err
	}
	return pf, positions, nil
}

// TradesHandler handles GET /participants/{id}/trades.
func TradesHandler(repo tradeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		trades, err := repo.RecentByParticipant(r.Context(), id, queryLimit(r, 20))
		if err != nil {
			logger.WithError(err).Error("failed to load trades")
			http.Error(w, "unable to load trades", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

// InvocationsHandler handles GET /participants/{id}/invocations: the
// decision-record audit trail of every round the participant has run.
func InvocationsHandler(repo decisionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := repo.ByParticipant(r.Context(), id, queryLimit(r, 20))
		if err != nil {
			logger.WithError(err).Error("failed to load decision records")
			http.Error(w, "unable to load invocations", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// performanceResponse is the summary GET /participants/{id}/performance
// returns: the scalar metrics a leaderboard row or a dashboard card needs
// without pulling the full position/trade detail.
type performanceResponse struct {
	ParticipantID  uuid.UUID `json:"participant_id"`
	CurrentEquity  string    `json:"current_equity"`
	InitialCapital string    `json:"initial_capital"`
	PeakEquity     string    `json:"peak_equity"`
	PnLPct         string    `json:"pnl_pct"`
	TotalTrades    int       `json:"total_trades"`
	WinningTrades  int       `json:"winning_trades"`
	LosingTrades   int       `json:"losing_trades"`
	WinRatePct     string    `json:"win_rate_pct"`
	Status         string    `json:"status"`
}

// PerformanceHandler handles GET /participants/{id}/performance.
func PerformanceHandler(repo participantGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		participant, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to load participant")
			http.Error(w, "unable to load performance", http.StatusInternalServerError)
			return
		}
		if participant == nil {
			http.Error(w, "participant not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, performanceResponse{
			ParticipantID:  participant.ID,
			CurrentEquity:  participant.CurrentEquity.String(),
			InitialCapital: participant.InitialCapital.String(),
			PeakEquity:     participant.PeakEquity.String(),
			PnLPct:         participant.PnLPct().String(),
			TotalTrades:    participant.TotalTrades,
			WinningTrades:  participant.WinningTrades,
			LosingTrades:   participant.LosingTrades,
			WinRatePct:     participant.WinRate().String(),
			Status:         participant.Status,
		})
	}
}

// queryLimit reads an optional "limit" query parameter, falling back to
// def when absent, non-numeric or non-positive.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

// DefaultCreateParticipantHandler wires CreateParticipantHandler to the
// production repository and security configuration.
func DefaultCreateParticipantHandler() http.HandlerFunc {
	return CreateParticipantHandler(
		repository.NewCompetitionRepository(),
		repository.NewParticipantRepository(),
		repository.NewPortfolioRepository(),
		security.GetConfig(),
	)
}

// DefaultGetParticipantHandler wires GetParticipantHandler to the production
// repository implementation.
func DefaultGetParticipantHandler() http.HandlerFunc {
	return GetParticipantHandler(repository.NewParticipantRepository())
}

// DefaultPortfolioHandler wires PortfolioHandler to the production
// repository implementation.
func DefaultPortfolioHandler() http.HandlerFunc {
	return PortfolioHandler(repository.NewPortfolioRepository())
}

// DefaultPositionsHandler wires PositionsHandler to the production
// repository implementation.
func DefaultPositionsHandler() http.HandlerFunc {
	return PositionsHandler(repository.NewPortfolioRepository())
}

// DefaultTradesHandler wires TradesHandler to the production repository
// implementation.
func DefaultTradesHandler() http.HandlerFunc {
	return TradesHandler(repository.NewTradeRepository())
}

// DefaultInvocationsHandler wires InvocationsHandler to the production
// repository implementation.
func DefaultInvocationsHandler() http.HandlerFunc {
	return InvocationsHandler(repository.NewDecisionRepository())
}

// DefaultPerformanceHandler wires PerformanceHandler to the production
// repository implementation.
func DefaultPerformanceHandler() http.HandlerFunc {
	return PerformanceHandler(repository.NewParticipantRepository())
}
