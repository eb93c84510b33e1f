package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"agentarena/src/auth"
	"agentarena/src/decision"
	"agentarena/src/handler"
	"agentarena/src/repository"
	"agentarena/src/scheduler"
)

// RouterDeps carries the long-lived singletons the REST surface needs
// beyond what a Default*Handler can construct for itself from
// database.MainDB: the scheduler (for the manual invoke-participants
// trigger) and a decision.Round (for trigger-invocation), both built once
// in main.go alongside the market-data/model-provider adapters they close
// over.
type RouterDeps struct {
	Scheduler *scheduler.Scheduler
	Round     *decision.Round
	AuthCfg   auth.Config
}

// NewRouter builds the full REST surface described in spec §6: open read
// routes, and mutating/admin routes gated behind RequireAPIKey.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck error")
		}
	})

	r.Get("/competitions", handler.DefaultListCompetitionsHandler())
	r.Get("/competitions/{id}", handler.DefaultGetCompetitionHandler())
	r.Get("/competitions/{id}/leaderboard", handler.DefaultLeaderboardHandler())
	r.Get("/participants/{id}", handler.DefaultGetParticipantHandler())
	r.Get("/participants/{id}/portfolio", handler.DefaultPortfolioHandler())
	r.Get("/participants/{id}/positions", handler.DefaultPositionsHandler())
	r.Get("/participants/{id}/trades", handler.DefaultTradesHandler())
	r.Get("/participants/{id}/invocations", handler.DefaultInvocationsHandler())
	r.Get("/participants/{id}/performance", handler.DefaultPerformanceHandler())

	r.Group(func(protected chi.Router) {
		protected.Use(auth.RequireAPIKey(deps.AuthCfg))

		protected.Post("/competitions", handler.DefaultCreateCompetitionHandler())
		protected.Post("/competitions/{id}/start", handler.DefaultStartCompetitionHandler())
		protected.Post("/competitions/{id}/stop", handler.DefaultStopCompetitionHandler())
		protected.Post("/competitions/{id}/participants", handler.DefaultCreateParticipantHandler())

		protected.Post("/internal/invoke-participants", handler.InvokeParticipantsHandler(deps.Scheduler))
		protected.Post("/internal/trigger-invocation/{id}", handler.TriggerInvocationHandler(
			repository.NewParticipantRepository(), repository.NewCompetitionRepository(), deps.Round,
		))
		protected.Post("/internal/reset-competition", handler.DefaultResetCompetitionHandler())
	})

	return r
}

// StartServer runs the HTTP server on port until SIGINT/SIGTERM, then shuts
// it down gracefully.
func StartServer(port string, deps RouterDeps) {
	r := NewRouter(deps)

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
