package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"agentarena/src/auth"
	"agentarena/src/cfd"
	"agentarena/src/database"
	"agentarena/src/decision"
	"agentarena/src/llm"
	"agentarena/src/llm/prompt"
	"agentarena/src/market"
	"agentarena/src/model"
	"agentarena/src/portfolio"
	"agentarena/src/repository"
	"agentarena/src/risk"
	"agentarena/src/scheduler"
	"agentarena/src/server"
	"agentarena/src/trading"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

// trackedSymbols is the fixed universe of instruments every competition in
// this deployment trades, per TRACKED_SYMBOLS (comma-separated). Spec §4.2
// scopes symbols per-competition at the model/portfolio level, but the
// market-data layer (price cache warm-up, websocket subscriptions, candle
// sync) needs one superset to prime ahead of any participant's first
// decision tick.
func trackedSymbols() []string {
	raw := os.Getenv("TRACKED_SYMBOLS")
	if raw == "" {
		raw = "BTCUSDT,ETHUSDT"
	}
	symbols := strings.Split(raw, ",")
	for i := range symbols {
		symbols[i] = strings.TrimSpace(symbols[i])
	}
	return symbols
}

func main() {
	SetupLogger()
	defer handlePanic()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	marketCfg := market.GetConfig()
	provider := market.NewProvider(marketCfg)
	cache := market.NewCache(provider, marketCfg.CacheTTL)

	store := repository.NewStore()
	cfdEngine := cfd.NewEngine()
	tradingEngine := trading.NewEngine(cfdEngine)
	lanes := portfolio.NewLanes()
	llmRegistry := llm.NewRegistry(llm.GetConfig())
	promptBuilder := prompt.NewBuilder()

	round := decision.NewRound(store, cache, llmRegistry, promptBuilder, tradingEngine, lanes)
	monitor := risk.NewMonitor(store, cache, cfdEngine, tradingEngine)

	sched := scheduler.New(store, store, round, monitor, 30*time.Second, 30*time.Second)
	sched.Disqualifier = store
	sched.Exceptions = store
	sched.MarketHours = risk.MarketHours{}

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	sched.Start(bgCtx)
	defer sched.Stop()

	if marketCfg.StreamEnabled {
		stream := market.NewStream(cache)
		go stream.Run(bgCtx, trackedSymbols())
	}

	candleSync := market.NewCandleSync(provider, repository.NewCandleRepository(), trackedSymbols(), model.IntervalOneHour)
	go candleSync.Run(bgCtx)

	server.StartServer(server.GetConfig().Port, server.RouterDeps{
		Scheduler: sched,
		Round:     round,
		AuthCfg:   auth.GetConfig(),
	})
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	time.Sleep(time.Second * 5)
}
