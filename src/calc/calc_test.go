package calc

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNotional(t *testing.T) {
	got := Notional(d("2"), d("100.125"))
	want := d("200.25")
	if !got.Equal(want) {
		t.Fatalf("Notional() = %s, want %s", got, want)
	}
}

func TestMarginRequired(t *testing.T) {
	tests := []struct {
		name     string
		notional decimal.Decimal
		leverage decimal.Decimal
		want     decimal.Decimal
		wantErr  error
	}{
		{name: "10x leverage", notional: d("1000"), leverage: d("10"), want: d("100")},
		{name: "1x leverage", notional: d("1000"), leverage: d("1"), want: d("1000")},
		{name: "zero leverage rejected", notional: d("1000"), leverage: d("0"), wantErr: ErrBadLeverage},
		{name: "negative leverage rejected", notional: d("1000"), leverage: d("-5"), wantErr: ErrBadLeverage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarginRequired(tt.notional, tt.leverage)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("MarginRequired() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnrealizedPnL(t *testing.T) {
	tests := []struct {
		name  string
		side  string
		qty   decimal.Decimal
		entry decimal.Decimal
		mark  decimal.Decimal
		want  decimal.Decimal
	}{
		{name: "long gains", side: "long", qty: d("10"), entry: d("100"), mark: d("110"), want: d("100")},
		{name: "long loses", side: "long", qty: d("10"), entry: d("100"), mark: d("90"), want: d("-100")},
		{name: "short gains", side: "short", qty: d("10"), entry: d("100"), mark: d("90"), want: d("100")},
		{name: "short loses", side: "short", qty: d("10"), entry: d("100"), mark: d("110"), want: d("-100")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnrealizedPnL(tt.side, tt.qty, tt.entry, tt.mark)
			if !got.Equal(tt.want) {
				t.Fatalf("UnrealizedPnL() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEquityAndAvailableMargin(t *testing.T) {
	eq := Equity(d("1000"), d("-100"))
	if !eq.Equal(d("900")) {
		t.Fatalf("Equity() = %s, want 900", eq)
	}

	avail := AvailableMargin(eq, d("200"))
	if !avail.Equal(d("700")) {
		t.Fatalf("AvailableMargin() = %s, want 700", avail)
	}
}

func TestCurrentLeverage(t *testing.T) {
	tests := []struct {
		name   string
		notional decimal.Decimal
		equity decimal.Decimal
		want   decimal.Decimal
	}{
		{name: "normal", notional: d("5000"), equity: d("1000"), want: d("5")},
		{name: "zero equity", notional: d("5000"), equity: d("0"), want: d("0")},
		{name: "negative equity", notional: d("5000"), equity: d("-100"), want: d("0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurrentLeverage(tt.notional, tt.equity)
			if !got.Equal(tt.want) {
				t.Fatalf("CurrentLeverage() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMarginLevel(t *testing.T) {
	if lvl := MarginLevel(d("900"), d("0")); lvl != nil {
		t.Fatalf("MarginLevel() with no reserved margin = %v, want nil", lvl)
	}

	lvl := MarginLevel(d("900"), d("10"))
	if lvl == nil || !lvl.Equal(d("90")) {
		t.Fatalf("MarginLevel() = %v, want 90", lvl)
	}
}

func TestLiquidationTriggered(t *testing.T) {
	tests := []struct {
		name           string
		equity         decimal.Decimal
		reservedMargin decimal.Decimal
		maintenancePct decimal.Decimal
		want           bool
	}{
		{name: "no margin in use never liquidates", equity: d("-500"), reservedMargin: d("0"), maintenancePct: d("0.5"), want: false},
		{name: "healthy margin", equity: d("900"), reservedMargin: d("10"), maintenancePct: d("0.5"), want: false},
		{name: "breached after adverse move", equity: d("-100"), reservedMargin: d("10"), maintenancePct: d("0.5"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LiquidationTriggered(tt.equity, tt.reservedMargin, tt.maintenancePct)
			if got != tt.want {
				t.Fatalf("LiquidationTriggered() = %v, want %v", got, tt.want)
			}
		})
	}
}
