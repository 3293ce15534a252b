package portfolio

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/glbter/fin-dashboard/entities"
)

func testHoldings() []Holding {
	return []Holding{
		{Symbol: "BND", Kind: Bond, Fee: 0.035, Price: decimal.NewFromInt(80), Shares: 5, GoalPercent: 42, Order: 3},
		{Symbol: "VTI", Kind: Stock, Fee: 0.03, Price: decimal.NewFromInt(100), Shares: 6, GoalPercent: 40, Order: 1},
		{Symbol: "VXUS", Kind: Stock, Fee: 0.07, Price: decimal.NewFromInt(50), Shares: 0, GoalPercent: 18, Order: 2},
	}
}

func TestCompute(t *testing.T) {
	snap, err := Compute(DefaultGoal(), testHoldings())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	resp := snap.Response()
	want := entities.FinPortfolioResp{
		Name: "my portfolio",
		Tickers: []entities.Ticker{
			{Symbol: "VTI", Fee: 0.03, CurrentGoal: 40, CurrentPercent: 60},
			{Symbol: "VXUS", Fee: 0.07, CurrentGoal: 18, CurrentPercent: 0},
			{Symbol: "BND", Fee: 0.035, CurrentGoal: 42, CurrentPercent: 40},
		},
		GoalStockPercent:   58,
		ActualStockPercent: 60,
		TotalValue:         1000,
		DeviationPercent:   2,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if err := resp.Validate(); err != nil {
		t.Errorf("response does not validate: %v", err)
	}
}

func TestCompute_Split(t *testing.T) {
	snap, err := Compute(DefaultGoal(), testHoldings())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	p := snap.Portfolio()
	if len(p.Stocks) != 2 || len(p.Bonds) != 1 {
		t.Fatalf("expected 2 stocks and 1 bond, got %d and %d", len(p.Stocks), len(p.Bonds))
	}
	if p.DeviationPercent != p.CurrentStockPercent-p.GoalStockPercent {
		t.Errorf("deviation %v is not current %v - goal %v", p.DeviationPercent, p.CurrentStockPercent, p.GoalStockPercent)
	}

	table, err := snap.TableState()
	if err != nil {
		t.Fatalf("TableState: %v", err)
	}
	if len(table.Columns) != len(table.ColumnsNames) || len(table.Columns) != len(DefaultColumns) {
		t.Errorf("unexpected columns %v / %v", table.ColumnsNames, table.Columns)
	}
}

func TestCompute_ZeroValue(t *testing.T) {
	holdings := testHoldings()
	for i := range holdings {
		holdings[i].Shares = 0
	}
	snap, err := Compute(DefaultGoal(), holdings)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if snap.StockPercent != 0 {
		t.Errorf("expected 0 stock percent, got %v", snap.StockPercent)
	}
	if err := snap.Response().Validate(); err != nil {
		t.Errorf("response does not validate: %v", err)
	}
}

func TestCompute_Errors(t *testing.T) {
	dup := testHoldings()
	dup[2].Symbol = "VTI"
	badKind := testHoldings()
	badKind[0].Kind = "cash"

	tests := []struct {
		name     string
		holdings []Holding
		want     error
	}{
		{"empty", nil, entities.ErrEmptyPortfolio},
		{"duplicate", dup, entities.ErrMalformedPayload},
		{"unknown kind", badKind, entities.ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compute(DefaultGoal(), tt.holdings); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDiffs(t *testing.T) {
	snap, err := Compute(DefaultGoal(), testHoldings())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := []Trade{Sell, Buy, Hold}
	for i, d := range snap.Diffs() {
		if d.Trade != want[i] {
			t.Errorf("%s: expected %s, got %s", d.Symbol, want[i], d.Trade)
		}
	}
}

func TestSide(t *testing.T) {
	tests := []struct {
		name   string
		shares map[string]int64
		side   Side
		next   string
	}{
		{"balanced", map[string]int64{"VTI": 6, "VXUS": 0, "BND": 5}, BuyEither, "VXUS"},
		{"too many stocks", map[string]int64{"VTI": 9, "VXUS": 0, "BND": 1}, BuyBond, "BND"},
		{"too many bonds", map[string]int64{"VTI": 0, "VXUS": 0, "BND": 5}, BuyStock, "VXUS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holdings := testHoldings()
			for i := range holdings {
				holdings[i].Shares = tt.shares[holdings[i].Symbol]
			}
			snap, err := Compute(DefaultGoal(), holdings)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if got := snap.Side(); got != tt.side {
				t.Errorf("expected side %s, got %s", tt.side, got)
			}
			h, ok := snap.NextTicker(nil)
			if !ok {
				t.Fatal("expected a next ticker")
			}
			if h.Symbol != tt.next {
				t.Errorf("expected next ticker %s, got %s", tt.next, h.Symbol)
			}
		})
	}
}

func TestPlan_SingleShare(t *testing.T) {
	resp, err := Plan(context.Background(), DefaultGoal(), testHoldings(), decimal.Zero)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := entities.BuyNextResp{
		Actions:  []entities.Action{{ID: 1, Shares: 1, Price: 50}},
		BuyValue: 50,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_SpendsCash(t *testing.T) {
	resp, err := Plan(context.Background(), DefaultGoal(), testHoldings(), decimal.NewFromInt(120))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := entities.BuyNextResp{
		Actions:  []entities.Action{{ID: 1, Shares: 2, Price: 50}},
		BuyValue: 100,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_BuyValueMatchesActions(t *testing.T) {
	resp, err := Plan(context.Background(), DefaultGoal(), testHoldings(), decimal.NewFromFloat(10_000.55))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if math.Abs(resp.BuyValue-resp.ExpectedBuyValue()) > entities.Epsilon {
		t.Errorf("buy_value %v, actions sum %v", resp.BuyValue, resp.ExpectedBuyValue())
	}
	if resp.BuyValue > 10_000.55 {
		t.Errorf("plan spends %v, more than the cash", resp.BuyValue)
	}
	if 10_000.55-resp.BuyValue >= 50 {
		t.Errorf("plan leaves %v unspent while the cheapest share is 50", 10_000.55-resp.BuyValue)
	}
}

func TestPlan_NothingAffordable(t *testing.T) {
	resp, err := Plan(context.Background(), DefaultGoal(), testHoldings(), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(resp.Actions) != 0 || resp.BuyValue != 0 {
		t.Errorf("expected an empty plan, got %+v", resp)
	}
}

func TestPlan_NegativeCash(t *testing.T) {
	if _, err := Plan(context.Background(), DefaultGoal(), testHoldings(), decimal.NewFromInt(-1)); !errors.Is(err, entities.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestPlan_SpendsCashBeyondStepBound(t *testing.T) {
	holdings := []Holding{
		{Symbol: "VTI", Kind: Stock, Price: decimal.NewFromInt(1), Shares: 1, GoalPercent: 100, Order: 1},
	}
	cash := decimal.NewFromInt(150_000)

	resp, err := Plan(context.Background(), DefaultGoal(), holdings, cash)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := entities.BuyNextResp{
		Actions:  []entities.Action{{ID: 0, Shares: 150_000, Price: 1}},
		BuyValue: 150_000,
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_LargeCash(t *testing.T) {
	cash := decimal.NewFromInt(5_000_000)
	resp, err := Plan(context.Background(), DefaultGoal(), testHoldings(), cash)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if math.Abs(resp.BuyValue-resp.ExpectedBuyValue()) > entities.Epsilon*resp.BuyValue {
		t.Errorf("buy_value %v, actions sum %v", resp.BuyValue, resp.ExpectedBuyValue())
	}
	if left := 5_000_000 - resp.BuyValue; left < 0 || left >= 50 {
		t.Errorf("plan leaves %v unspent while the cheapest share is 50", left)
	}
}

func TestPlan_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Plan(ctx, DefaultGoal(), testHoldings(), decimal.NewFromInt(1000)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSells(t *testing.T) {
	snap, err := Compute(DefaultGoal(), testHoldings())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := []entities.Action{{ID: 0, Shares: -2, Price: 100}}
	if diff := cmp.Diff(want, snap.Sells()); diff != "" {
		t.Errorf("sells mismatch (-want +got):\n%s", diff)
	}
}
