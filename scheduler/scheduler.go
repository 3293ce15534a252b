package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/portfolio"
)

type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// QuoteRefresher periodically copies the latest quotes of every held symbol
// into the quote store.
type QuoteRefresher struct {
	Cron    *cron.Cron
	Symbols SymbolLister
	Source  QuoteSource
	Store   portfolio.QuoteStore
	Logger  *zap.Logger
	Timeout time.Duration
	Ctx     context.Context
}

func NewQuoteRefresher(ctx context.Context, symbols SymbolLister, src QuoteSource, store portfolio.QuoteStore, timeout time.Duration, logger *zap.Logger) *QuoteRefresher {
	return &QuoteRefresher{
		Cron:    cron.New(cron.WithSeconds()),
		Symbols: symbols,
		Source:  src,
		Store:   store,
		Logger:  logger.With(zap.String("caller", "QuoteRefresher")),
		Timeout: timeout,
		Ctx:     ctx,
	}
}

func (r *QuoteRefresher) Register(spec string) error {
	if _, err := r.Cron.AddFunc(spec, func() { r.RefreshNow() }); err != nil {
		return fmt.Errorf("register quote refresh: %w", err)
	}
	return nil
}

func (r *QuoteRefresher) Start() {
	r.Cron.Start()
	r.Logger.Info("scheduler started")
}

func (r *QuoteRefresher) Stop() {
	<-r.Cron.Stop().Done()
	r.Logger.Info("scheduler stopped")
}

// RefreshNow refreshes every symbol and returns how many were updated. A
// failing symbol does not stop the others.
func (r *QuoteRefresher) RefreshNow() int {
	start := time.Now()

	symbols, err := r.Symbols.Symbols(r.Ctx)
	if err != nil {
		r.Logger.Error("list symbols", zap.Error(err))
		return 0
	}

	updated := 0
	for _, symbol := range symbols {
		if err := r.refresh(symbol); err != nil {
			r.Logger.Warn("refresh quote", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		updated++
	}

	r.Logger.Info("quotes refreshed",
		zap.Int("updated", updated),
		zap.Int("symbols", len(symbols)),
		zap.Duration("duration", time.Since(start)))
	return updated
}

func (r *QuoteRefresher) refresh(symbol string) error {
	ctx := r.Ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	price, err := r.Source.Quote(ctx, symbol)
	if err != nil {
		return fmt.Errorf("get quote: %w", err)
	}
	return r.Store.Set(ctx, symbol, price)
}
