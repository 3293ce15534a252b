package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/entities"
)

type fakeRepo struct {
	holdings []Holding
	err      error
}

func (r fakeRepo) GetHoldings(context.Context) ([]Holding, error) {
	return append([]Holding(nil), r.holdings...), r.err
}

type fakeQuotes struct {
	prices map[string]decimal.Decimal
	err    error
}

func (q fakeQuotes) Get(_ context.Context, symbol string) (decimal.Decimal, bool, error) {
	if q.err != nil {
		return decimal.Zero, false, q.err
	}
	p, ok := q.prices[symbol]
	return p, ok, nil
}

func (q fakeQuotes) Set(_ context.Context, symbol string, price decimal.Decimal) error {
	q.prices[symbol] = price
	return nil
}

func TestService_AppliesQuotes(t *testing.T) {
	quotes := fakeQuotes{prices: map[string]decimal.Decimal{"VTI": decimal.NewFromInt(200)}}
	svc := NewService(DefaultGoal(), fakeRepo{holdings: testHoldings()}, quotes, zap.NewNop())

	resp, err := svc.Portfolio(context.Background())
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if resp.TotalValue != 1600 {
		t.Errorf("expected total 1600 with the VTI quote, got %v", resp.TotalValue)
	}
}

func TestService_IgnoresQuoteErrors(t *testing.T) {
	quotes := fakeQuotes{err: errors.New("store down")}
	svc := NewService(DefaultGoal(), fakeRepo{holdings: testHoldings()}, quotes, zap.NewNop())

	resp, err := svc.Portfolio(context.Background())
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if resp.TotalValue != 1000 {
		t.Errorf("expected total 1000 at repository prices, got %v", resp.TotalValue)
	}
}

func TestService_RepoError(t *testing.T) {
	repoErr := errors.New("no file")
	svc := NewService(DefaultGoal(), fakeRepo{err: repoErr}, nil, zap.NewNop())

	if _, err := svc.Table(context.Background()); !errors.Is(err, repoErr) {
		t.Fatalf("expected the repository error, got %v", err)
	}
}

func TestService_BuyNextWithSells(t *testing.T) {
	svc := NewService(DefaultGoal(), fakeRepo{holdings: testHoldings()}, nil, zap.NewNop())

	resp, err := svc.BuyNext(context.Background(), decimal.Zero, true)
	if err != nil {
		t.Fatalf("BuyNext: %v", err)
	}
	if len(resp.Actions) != 2 {
		t.Fatalf("expected a buy and a sell, got %+v", resp.Actions)
	}
	if resp.BuyValue != 50 {
		t.Errorf("sells must not count toward buy_value, got %v", resp.BuyValue)
	}
	if err := resp.Validate(); err != nil {
		t.Errorf("response does not validate: %v", err)
	}
}

func TestService_Symbols(t *testing.T) {
	svc := NewService(DefaultGoal(), fakeRepo{holdings: testHoldings()}, nil, zap.NewNop())
	symbols, err := svc.Symbols(context.Background())
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(symbols) != 3 {
		t.Errorf("expected 3 symbols, got %v", symbols)
	}
}

func TestService_EmptyPortfolio(t *testing.T) {
	svc := NewService(DefaultGoal(), fakeRepo{}, nil, zap.NewNop())
	if _, err := svc.Portfolio(context.Background()); !errors.Is(err, entities.ErrEmptyPortfolio) {
		t.Fatalf("expected ErrEmptyPortfolio, got %v", err)
	}
}
