package entities

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// Epsilon is the absolute tolerance used when comparing a computed field with
// the value derived from the other fields.
const Epsilon = 1e-6

// Validator is implemented by every contract type.
type Validator interface {
	Validate() error
}

func (t Ticker) Validate() error {
	var err error
	if t.Symbol == "" {
		err = multierr.Append(err, malformed("ticker symbol is empty"))
	}
	if t.Fee < 0 || math.IsNaN(t.Fee) {
		err = multierr.Append(err, malformed("ticker %q: fee %v is negative", t.Symbol, t.Fee))
	}
	if t.CurrentGoal < 0 || math.IsNaN(t.CurrentGoal) {
		err = multierr.Append(err, malformed("ticker %q: currentGoal %v is negative", t.Symbol, t.CurrentGoal))
	}
	if !isPercent(t.CurrentPercent) {
		err = multierr.Append(err, malformed("ticker %q: currentPercent %v is not in [0,100]", t.Symbol, t.CurrentPercent))
	}
	return err
}

func (p Portfolio) Validate() error {
	var err error
	seen := make(map[string]string, len(p.Stocks)+len(p.Bonds))
	check := func(kind string, tickers []Ticker) {
		for _, t := range tickers {
			err = multierr.Append(err, t.Validate())
			if t.Symbol == "" {
				continue
			}
			if prev, ok := seen[t.Symbol]; ok {
				err = multierr.Append(err, malformed("ticker %q listed in %s and %s", t.Symbol, prev, kind))
				continue
			}
			seen[t.Symbol] = kind
		}
	}
	check("stocks", p.Stocks)
	check("bonds", p.Bonds)

	err = multierr.Append(err, checkPercents(p.GoalStockPercent, p.CurrentStockPercent))
	err = multierr.Append(err, checkDeviation(p.GoalStockPercent, p.CurrentStockPercent, p.DeviationPercent))
	return err
}

// NewFinTableState builds a table state and refuses columns whose labels do
// not line up with their keys.
func NewFinTableState(p Portfolio, columnsNames, columns []string) (FinTableState, error) {
	s := FinTableState{
		Portfolio:    p,
		ColumnsNames: columnsNames,
		Columns:      columns,
	}
	if s.ColumnsNames == nil {
		s.ColumnsNames = []string{}
	}
	if s.Columns == nil {
		s.Columns = []string{}
	}
	if err := s.Validate(); err != nil {
		return FinTableState{}, err
	}
	return s, nil
}

func (s FinTableState) Validate() error {
	var err error
	if len(s.ColumnsNames) != len(s.Columns) {
		err = multierr.Append(err, malformed("%d column names for %d columns", len(s.ColumnsNames), len(s.Columns)))
	}
	for i, c := range s.Columns {
		if c == "" {
			err = multierr.Append(err, malformed("column %d has an empty key", i))
		}
	}
	return multierr.Append(err, s.Portfolio.Validate())
}

func (r FinPortfolioResp) Validate() error {
	var err error
	if len(r.Tickers) == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: portfolio %q has no ticker", ErrEmptyPortfolio, r.Name))
	}
	seen := make(map[string]struct{}, len(r.Tickers))
	for _, t := range r.Tickers {
		err = multierr.Append(err, t.Validate())
		if _, ok := seen[t.Symbol]; ok && t.Symbol != "" {
			err = multierr.Append(err, malformed("ticker %q listed twice", t.Symbol))
		}
		seen[t.Symbol] = struct{}{}
	}
	if r.TotalValue < 0 || math.IsNaN(r.TotalValue) {
		err = multierr.Append(err, malformed("total_value %v is negative", r.TotalValue))
	}
	err = multierr.Append(err, checkPercents(r.GoalStockPercent, r.ActualStockPercent))
	err = multierr.Append(err, checkDeviation(r.GoalStockPercent, r.ActualStockPercent, r.DeviationPercent))
	return err
}

func (a Action) Validate() error {
	var err error
	if a.Shares == 0 {
		err = multierr.Append(err, malformed("action %d trades no share", a.ID))
	}
	if a.Price < 0 || math.IsNaN(a.Price) {
		err = multierr.Append(err, malformed("action %d: price %v is negative", a.ID, a.Price))
	}
	return err
}

func (r BuyNextResp) Validate() error {
	var err error
	seen := make(map[int]struct{}, len(r.Actions))
	for _, a := range r.Actions {
		err = multierr.Append(err, a.Validate())
		if _, ok := seen[a.ID]; ok {
			err = multierr.Append(err, malformed("action id %d is not unique", a.ID))
		}
		seen[a.ID] = struct{}{}
	}
	want := r.ExpectedBuyValue()
	if !approxEqual(r.BuyValue, want, Epsilon*math.Max(1, math.Abs(want))) {
		err = multierr.Append(err, inconsistent("buy_value %v, actions buy %v", r.BuyValue, want))
	}
	return err
}

// ExpectedBuyValue sums shares*price over the buy actions.
func (r BuyNextResp) ExpectedBuyValue() float64 {
	var sum float64
	for _, a := range r.Actions {
		if a.Shares > 0 {
			sum += float64(a.Shares) * a.Price
		}
	}
	return sum
}

func checkPercents(goal, current float64) error {
	var err error
	if !isPercent(goal) {
		err = multierr.Append(err, malformed("goal stock percent %v is not in [0,100]", goal))
	}
	if !isPercent(current) {
		err = multierr.Append(err, malformed("current stock percent %v is not in [0,100]", current))
	}
	return err
}

func checkDeviation(goal, current, deviation float64) error {
	if want := current - goal; !approxEqual(deviation, want, Epsilon) {
		return inconsistent("deviation_percent %v, want %v", deviation, want)
	}
	return nil
}

func isPercent(v float64) bool { return v >= 0 && v <= 100 }

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }
