package cmd

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/config"
	portfolioHttp "github.com/glbter/fin-dashboard/http"
	"github.com/glbter/fin-dashboard/portfolio/client/rabbit"
)

// ExecuteAsync serves the portfolio API and additionally forwards buy next
// requests to the workers over RabbitMQ.
func ExecuteAsync(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.RequireRabbit(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error(fmt.Errorf("close app: %w", err).Error())
		}
	}()

	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open a channel: %w", err)
	}
	defer ch.Close()

	if err := rabbit.DeclareQueues(ch); err != nil {
		return err
	}

	client := rabbit.NewBuyNextClient(ch)

	msgCh, err := client.ReceiveBuyNext()
	if err != nil {
		return fmt.Errorf("consume buy next replies: %w", err)
	}

	replies := rabbit.NewReplyRouter(logger)
	go replies.Run(msgCh)

	a.StartRefresh()

	handler := portfolioHttp.PortfolioHandler{
		Logger:       logger,
		Service:      a.service,
		BuyNextAsync: client,
		Replies:      replies,
	}

	return listen(ctx, cfg, logger, portfolioHttp.NewRouter(handler, cfg.Server.Timeout))
}
