package portfolio

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/glbter/fin-dashboard/entities"
)

var hundred = decimal.NewFromInt(100)

// DefaultColumns are the table columns of the dashboard, keyed by the
// Ticker wire field they display.
var DefaultColumns = []struct{ Name, Key string }{
	{"Symbol", "symbol"},
	{"Fee", "fee"},
	{"Goal %", "currentGoal"},
	{"Current %", "currentPercent"},
}

// Snapshot is the allocation of a portfolio at current prices.
type Snapshot struct {
	Goal     Goal
	Holdings []Holding
	// Percents holds the share of each holding in the total value, in the
	// order of Holdings.
	Percents     []float64
	Total        decimal.Decimal
	StockPercent float64
}

// Compute values the holdings and their share of the portfolio. Holdings are
// ordered by display order, then symbol.
func Compute(goal Goal, holdings []Holding) (Snapshot, error) {
	if err := goal.validate(); err != nil {
		return Snapshot{}, err
	}
	if len(holdings) == 0 {
		return Snapshot{}, fmt.Errorf("%w: portfolio %q has no holding", entities.ErrEmptyPortfolio, goal.Name)
	}

	seen := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		if err := h.validate(); err != nil {
			return Snapshot{}, err
		}
		if _, ok := seen[h.Symbol]; ok {
			return Snapshot{}, fmt.Errorf("%w: %s is held twice", entities.ErrMalformedPayload, h.Symbol)
		}
		seen[h.Symbol] = struct{}{}
	}

	ordered := append([]Holding(nil), holdings...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].Symbol < ordered[j].Symbol
	})

	total, stocks := decimal.Zero, decimal.Zero
	for _, h := range ordered {
		total = total.Add(h.Value())
		if h.Kind == Stock {
			stocks = stocks.Add(h.Value())
		}
	}

	s := Snapshot{
		Goal:         goal,
		Holdings:     ordered,
		Percents:     make([]float64, len(ordered)),
		Total:        total,
		StockPercent: percentOf(stocks, total),
	}
	for i, h := range ordered {
		s.Percents[i] = percentOf(h.Value(), total)
	}
	return s, nil
}

func percentOf(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(hundred).InexactFloat64()
}

// Deviation is how far the stock allocation is above its goal.
func (s Snapshot) Deviation() float64 {
	return s.StockPercent - s.Goal.StockPercent
}

func (s Snapshot) ticker(i int) entities.Ticker {
	h := s.Holdings[i]
	return entities.Ticker{
		Symbol:         h.Symbol,
		Fee:            h.Fee,
		CurrentGoal:    h.GoalPercent,
		CurrentPercent: s.Percents[i],
	}
}

func (s Snapshot) Response() entities.FinPortfolioResp {
	tickers := make([]entities.Ticker, len(s.Holdings))
	for i := range s.Holdings {
		tickers[i] = s.ticker(i)
	}
	return entities.FinPortfolioResp{
		Name:               s.Goal.Name,
		Tickers:            tickers,
		GoalStockPercent:   s.Goal.StockPercent,
		ActualStockPercent: s.StockPercent,
		TotalValue:         s.Total.InexactFloat64(),
		DeviationPercent:   s.Deviation(),
	}
}

func (s Snapshot) Portfolio() entities.Portfolio {
	p := entities.Portfolio{
		Stocks:              []entities.Ticker{},
		Bonds:               []entities.Ticker{},
		GoalStockPercent:    s.Goal.StockPercent,
		CurrentStockPercent: s.StockPercent,
		DeviationPercent:    s.Deviation(),
	}
	for i, h := range s.Holdings {
		if h.Kind == Stock {
			p.Stocks = append(p.Stocks, s.ticker(i))
		} else {
			p.Bonds = append(p.Bonds, s.ticker(i))
		}
	}
	return p
}

func (s Snapshot) TableState() (entities.FinTableState, error) {
	names := make([]string, len(DefaultColumns))
	keys := make([]string, len(DefaultColumns))
	for i, c := range DefaultColumns {
		names[i], keys[i] = c.Name, c.Key
	}
	return entities.NewFinTableState(s.Portfolio(), names, keys)
}
