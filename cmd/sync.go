package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/config"
	portfolioHttp "github.com/glbter/fin-dashboard/http"
)

const shutdownTimeout = 10 * time.Second

// ExecuteSync serves the portfolio API computing every answer in process.
func ExecuteSync(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error(fmt.Errorf("close app: %w", err).Error())
		}
	}()
	a.StartRefresh()

	handler := portfolioHttp.PortfolioHandler{
		Logger:  logger,
		Service: a.service,
	}

	return listen(ctx, cfg, logger, portfolioHttp.NewRouter(handler, cfg.Server.Timeout))
}

// listen serves h until ctx is done.
func listen(ctx context.Context, cfg *config.Config, logger *zap.Logger, h http.Handler) error {
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: h}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is starting", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server is stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
