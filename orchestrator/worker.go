package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/entities"
	"github.com/glbter/fin-dashboard/portfolio/client/rabbit"
)

type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Planner interface {
	BuyNext(ctx context.Context, cash decimal.Decimal, sells bool) (entities.BuyNextResp, error)
}

// Worker answers buy next requests read from the request queue.
type Worker struct {
	ch      Publisher
	planner Planner
	logger  *zap.Logger
	timeout time.Duration
}

func NewWorker(ch Publisher, planner Planner, timeout time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		ch:      ch,
		planner: planner,
		logger:  logger,
		timeout: timeout,
	}
}

// Run handles every delivery in its own goroutine until msgs is closed, then
// waits for the requests in flight.
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for msg := range msgs {
		wg.Add(1)
		go func(msg amqp.Delivery) {
			defer wg.Done()
			w.Handle(ctx, msg)
		}(msg)
	}
	wg.Wait()
}

func (w *Worker) Handle(ctx context.Context, msg amqp.Delivery) {
	var (
		start  = time.Now()
		cid    = msg.CorrelationId
		logger = w.logger.With(zap.String("cid", cid))
	)
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	logger.Info("start processing of request")

	cash, sells, err := parseRequest(msg.Body)
	if err != nil {
		logger.Error(err.Error())
		if err := w.respondWithError(ctx, msg, err); err != nil {
			logger.Error(fmt.Errorf("respond with error: %w", err).Error())
		}
		msg.Reject(false)
		return
	}

	resp, err := w.planner.BuyNext(ctx, cash, sells)
	if err != nil {
		logger.Error(fmt.Errorf("plan buy next: %w", err).Error())
		if err := w.respondWithError(ctx, msg, err); err != nil {
			logger.Error(fmt.Errorf("respond with error: %w", err).Error())
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		logger.Error(fmt.Errorf("marshall response: %w", err).Error())
		msg.Reject(false)
		return
	}

	if err := w.publish(ctx, msg, body); err != nil {
		logger.Error(fmt.Errorf("publish response: %w", err).Error())
		msg.Nack(false, true)
		return
	}

	msg.Ack(false)
	logger.Info("finish", zap.Int("actions", len(resp.Actions)), zap.Duration("duration", time.Since(start)))
}

func parseRequest(body []byte) (decimal.Decimal, bool, error) {
	var req rabbit.BuyNextReq
	if err := json.Unmarshal(body, &req); err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: decode request: %v", entities.ErrMalformedPayload, err)
	}

	cash := decimal.Zero
	if req.Cash != "" {
		var err error
		if cash, err = decimal.NewFromString(req.Cash); err != nil {
			return decimal.Zero, false, fmt.Errorf("%w: parse cash: %v", entities.ErrMalformedPayload, err)
		}
		if cash.IsNegative() {
			return decimal.Zero, false, fmt.Errorf("%w: negative cash %s", entities.ErrMalformedPayload, req.Cash)
		}
	}
	return cash, req.Sells, nil
}

func (w *Worker) respondWithError(ctx context.Context, msg amqp.Delivery, err error) error {
	body, mErr := json.Marshal(rabbit.ErrorReply{
		Error: err.Error(),
		Code:  entities.Code(err),
	})
	if mErr != nil {
		return mErr
	}
	return w.publish(ctx, msg, body)
}

func (w *Worker) publish(ctx context.Context, msg amqp.Delivery, body []byte) error {
	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = rabbit.BUY_NEXT_QUEUE_RESP
	}

	return w.ch.PublishWithContext(ctx,
		"",      // exchange
		replyTo, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: msg.CorrelationId,
			Body:          body,
			Priority:      msg.Priority,
		})
}
