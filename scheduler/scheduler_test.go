package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/portfolio/cache"
)

type staticSymbols []string

func (s staticSymbols) Symbols(context.Context) ([]string, error) { return s, nil }

type fakeSource map[string]decimal.Decimal

func (f fakeSource) Quote(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := f[symbol]
	if !ok {
		return decimal.Zero, errors.New("unknown symbol")
	}
	return p, nil
}

func TestRefreshNow(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryQuotes()
	src := fakeSource{"VTI": decimal.NewFromInt(231), "BND": decimal.NewFromInt(72)}
	r := NewQuoteRefresher(ctx, staticSymbols{"VTI", "GONE", "BND"}, src, store, time.Second, zap.NewNop())

	if got := r.RefreshNow(); got != 2 {
		t.Fatalf("expected 2 updated quotes, got %d", got)
	}
	p, ok, _ := store.Get(ctx, "BND")
	if !ok || !p.Equal(decimal.NewFromInt(72)) {
		t.Errorf("expected BND at 72, got %s (%v)", p, ok)
	}
	if _, ok, _ := store.Get(ctx, "GONE"); ok {
		t.Error("expected no quote for a failing symbol")
	}
}

func TestRegister(t *testing.T) {
	r := NewQuoteRefresher(context.Background(), staticSymbols{}, fakeSource{}, cache.NewMemoryQuotes(), 0, zap.NewNop())
	if err := r.Register("0 */15 * * * *"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register("every now and then"); err == nil {
		t.Fatal("expected an error for an invalid spec")
	}
	r.Start()
	r.Stop()
}
