package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/config"
	"github.com/glbter/fin-dashboard/portfolio"
	"github.com/glbter/fin-dashboard/portfolio/cache"
	quoteHttp "github.com/glbter/fin-dashboard/portfolio/client/http"
	"github.com/glbter/fin-dashboard/portfolio/repo/csv"
	"github.com/glbter/fin-dashboard/scheduler"
)

var configFile = flag.String("config", "configs/config.yaml", "Path to the YAML configuration file")

// LoadConfig reads and validates the configuration named by -config.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// app is the portfolio service with the stores it was built on.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	service   *portfolio.Service
	quotes    portfolio.QuoteStore
	refresher *scheduler.QuoteRefresher
	closers   []func() error
}

func goalOf(cfg *config.Config) portfolio.Goal {
	return portfolio.Goal{
		Name:             cfg.Portfolio.Name,
		StockPercent:     cfg.Portfolio.GoalStockPercent,
		TolerancePercent: cfg.Portfolio.TolerancePercent,
	}
}

// newApp wires the holdings file, the quote store and, when a quote engine is
// configured, the periodic quote refresh.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.Redis.Addr, err)
		}
		store := cache.NewRedisQuotes(client, cfg.Redis.QuoteTTL)
		a.quotes = store
		a.closers = append(a.closers, store.Close)
		logger.Info("quotes are stored in redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		a.quotes = cache.NewMemoryQuotes()
	}

	repo := csv.HoldingRepo{Path: cfg.Portfolio.HoldingsFile}
	a.service = portfolio.NewService(goalOf(cfg), repo, a.quotes, logger)

	if cfg.Quotes.URL != "" {
		client := quoteHttp.NewClient(&http.Client{Timeout: cfg.Quotes.Timeout}, cfg.Quotes.URL, cfg.Quotes.PricePath, logger)
		a.refresher = scheduler.NewQuoteRefresher(ctx, a.service, client, a.quotes, cfg.Quotes.Timeout, logger)
		if err := a.refresher.Register(cfg.Quotes.RefreshCron); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// StartRefresh refreshes the quotes once and then on schedule. It is a no-op
// without a quote engine.
func (a *app) StartRefresh() {
	if a.refresher == nil {
		return
	}
	a.refresher.RefreshNow()
	a.refresher.Start()
	a.closers = append(a.closers, func() error {
		a.refresher.Stop()
		return nil
	})
}

// RefreshOnce refreshes the quotes a single time when a quote engine is
// configured.
func (a *app) RefreshOnce() {
	if a.refresher != nil {
		a.refresher.RefreshNow()
	}
}

func (a *app) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}

// BuildService wires the portfolio service the way the API server does,
// without refreshing quotes itself. The returned func releases the stores.
func BuildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*portfolio.Service, func() error, error) {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.service, a.Close, nil
}
