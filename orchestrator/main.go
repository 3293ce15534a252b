package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glbter/fin-dashboard/cmd"
	"github.com/glbter/fin-dashboard/portfolio/client/rabbit"
)

func main() {
	flag.Parse()

	cfg, err := cmd.LoadConfig()
	if err != nil {
		log.Fatalln("Failed to load config", err)
	}
	if err := cfg.RequireRabbit(); err != nil {
		log.Fatalln(err)
	}

	logger := cmd.InitLogger(cfg.Log.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, closeService, err := cmd.BuildService(ctx, cfg, logger)
	if err != nil {
		log.Fatalln("Failed to build the portfolio service", err)
	}
	defer closeService()

	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		log.Fatalln("Failed to connect to RabbitMQ", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalln("Failed to open a channel", err)
	}
	defer ch.Close()

	if err := rabbit.DeclareQueues(ch); err != nil {
		log.Fatalln("Failed", err)
	}

	// one request at a time per worker so that priorities are honoured
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatalln("Failed to set prefetch", err)
	}

	msgs, err := ch.Consume(
		rabbit.BUY_NEXT_QUEUE_REQ, // queue
		"",                        // consumer
		false,                     // auto-ack
		false,                     // exclusive
		false,                     // no-local
		false,                     // no-wait
		nil,                       // args
	)
	if err != nil {
		log.Fatalln("Failed to initialize a consumer", err)
	}

	go func() {
		<-ctx.Done()
		logger.Info("worker is stopping")
		if err := ch.Close(); err != nil {
			logger.Error(fmt.Errorf("close channel: %w", err).Error())
		}
	}()

	logger.Info("worker is starting")
	NewWorker(ch, service, cfg.Server.Timeout, logger).Run(ctx, msgs)
}
