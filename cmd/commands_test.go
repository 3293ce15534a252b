package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/glbter/fin-dashboard/portfolio"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1000", "USD", "$1,000.00"},
		{"12.345", "USD", "$12.35"},
		{"5", "JPY", "¥5"},
		{"7.5", "XXXX", "7.50"},
	}
	for _, tt := range tests {
		got := formatMoney(decimal.RequireFromString(tt.amount), tt.currency)
		if got != tt.want {
			t.Errorf("formatMoney(%s, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestWriteSummary(t *testing.T) {
	snap, err := portfolio.Compute(portfolio.DefaultGoal(), []portfolio.Holding{
		{Symbol: "VTI", Kind: portfolio.Stock, Price: decimal.NewFromInt(100), Shares: 6, GoalPercent: 58, Order: 1},
		{Symbol: "BND", Kind: portfolio.Bond, Price: decimal.NewFromInt(80), Shares: 5, GoalPercent: 42, Order: 2},
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	var buf bytes.Buffer
	if err := writeSummary(&buf, snap, "USD"); err != nil {
		t.Fatalf("writeSummary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"my portfolio: $1,000.00", "stocks 60.00%", "VTI", "BND", "$400.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary misses %q:\n%s", want, out)
		}
	}
}

func TestInitLogger(t *testing.T) {
	if l := InitLogger("debug"); !l.Core().Enabled(-1) {
		t.Error("expected debug to be enabled")
	}
	if l := InitLogger("nonsense"); l.Core().Enabled(-1) {
		t.Error("expected an unknown level to fall back to info")
	}
}
