package risk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agentarena/src/calc"
	"agentarena/src/cfd"
	"agentarena/src/model"
	"agentarena/src/portfolio"
	"agentarena/src/trading"
)

// PriceSource is the narrow market-data capability the monitor needs; it
// matches decision.PriceSource's shape so a single src/market implementation
// can satisfy both without that package depending on either caller.
type PriceSource interface {
	LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// PortfolioState is one portfolio's full working set, as reprice_all and
// check_and_liquidate need it: the owning participant and competition plus
// current positions.
type PortfolioState struct {
	Participant *model.Participant
	Competition *model.Competition
	Portfolio   *model.Portfolio
	Positions   []model.Position
}

// Store is the persistence boundary the monitor needs. src/repository
// supplies the concrete implementation.
type Store interface {
	SymbolsInUse(ctx context.Context) ([]string, error)
	ActivePortfolioStates(ctx context.Context) ([]PortfolioState, error)
	SaveReprice(ctx context.Context, state PortfolioState, view model.PortfolioView) error
	SaveLiquidation(ctx context.Context, st *trading.State, orders []*model.Order, trades []*model.Trade, audit model.AuditLog) error
}

// Monitor is the risk monitor described in spec §4.7: on every price
// refresh it reprices every open position and then checks each portfolio
// for a liquidation trigger, synthesizing forced-close orders when one
// fires. Grounded on portfolio_manager.py's update_portfolio (reprice loop)
// and check_and_liquidate (the liquidation shape); the liquidation
// threshold formula itself does not carry over — see the pinned
// margin_level decision in DESIGN.md.
type Monitor struct {
	Store   Store
	Prices  PriceSource
	CFD     *cfd.Engine
	Trading *trading.Engine

	now func() time.Time
}

func NewMonitor(store Store, prices PriceSource, cfdEngine *cfd.Engine, tradingEngine *trading.Engine) *Monitor {
	return &Monitor{Store: store, Prices: prices, CFD: cfdEngine, Trading: tradingEngine, now: time.Now}
}

// RefreshAndMonitor is one price-refresh tick, satisfying
// scheduler.PriceRefreshJob: fetch marks for every symbol currently in use,
// reprice every open position, then run the liquidation check on each
// portfolio. Per spec §5, marks are published atomically per tick — every
// portfolio reprices against the same snapshot of fetched marks, never a
// mix of old and new.
func (m *Monitor) RefreshAndMonitor(ctx context.Context) error {
	symbols, err := m.Store.SymbolsInUse(ctx)
	if err != nil {
		return fmt.Errorf("risk: list symbols in use: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	marks, err := m.Prices.LatestPrices(ctx, symbols)
	if err != nil {
		return fmt.Errorf("risk: fetch prices: %w", err)
	}

	states, err := m.Store.ActivePortfolioStates(ctx)
	if err != nil {
		return fmt.Errorf("risk: load portfolio states: %w", err)
	}

	for _, state := range states {
		state.Positions = portfolio.RepriceAll(m.CFD, state.Positions, marks)
		view := portfolio.Snapshot(*state.Portfolio, state.Positions)
		state.Participant.RecordEquity(view.Equity)

		if err := m.Store.SaveReprice(ctx, state, view); err != nil {
			return fmt.Errorf("risk: save reprice for portfolio %s: %w", state.Portfolio.ID, err)
		}

		if !calc.LiquidationTriggered(view.Equity, state.Portfolio.ReservedMargin, state.Competition.MaintenanceMarginPct) {
			continue
		}
		if err := m.liquidate(ctx, state, marks); err != nil {
			return fmt.Errorf("risk: liquidate portfolio %s: %w", state.Portfolio.ID, err)
		}
	}

	return nil
}

// liquidate closes every open position of a triggered portfolio in
// descending notional order, marks the participant liquidated, and records
// an audit entry noting the trigger, per spec §4.7.
func (m *Monitor) liquidate(ctx context.Context, state PortfolioState, marks map[string]decimal.Decimal) error {
	now := m.now()

	positions := make([]model.Position, len(state.Positions))
	copy(positions, state.Positions)
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Notional().GreaterThan(positions[j].Notional())
	})

	st := &trading.State{
		Participant: state.Participant,
		Competition: state.Competition,
		Portfolio:   state.Portfolio,
		Positions:   state.Positions,
		Marks:       marks,
	}

	preLiquidationEquity := portfolio.Snapshot(*state.Portfolio, state.Positions).Equity
	preLiquidationMargin := state.Portfolio.ReservedMargin

	var orders []*model.Order
	var trades []*model.Trade

	for _, position := range positions {
		price, ok := marks[position.Symbol]
		if !ok {
			price = position.MarkPrice
		}
		target := findPosition(st.Positions, position.ID)
		if target == nil {
			continue
		}
		outcome := m.Trading.ForceClose(st, target, price, now)
		orders = append(orders, outcome.Order)
		if outcome.Trade != nil {
			trades = append(trades, outcome.Trade)
		}
	}

	state.Participant.Status = model.ParticipantStatusLiquidated

	audit := model.AuditLog{
		CompetitionID: &state.Competition.ID,
		ParticipantID: &state.Participant.ID,
		Level:         "warn",
		Message:       fmt.Sprintf("participant %s liquidated: equity %s fell below maintenance margin against reserved margin %s", state.Participant.ID, preLiquidationEquity, preLiquidationMargin),
		Metadata: map[string]any{
			"equity":            preLiquidationEquity.String(),
			"reserved_margin":   preLiquidationMargin.String(),
			"closed_positions":  len(orders),
		},
		CreatedAt: now,
	}

	return m.Store.SaveLiquidation(ctx, st, orders, trades, audit)
}

func findPosition(positions []model.Position, id uuid.UUID) *model.Position {
	for i := range positions {
		if positions[i].ID == id {
			return &positions[i]
		}
	}
	return nil
}
