package rabbit

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ReplyRouter hands each reply to the request waiting for its correlation id.
type ReplyRouter struct {
	mu      sync.Mutex
	waiting map[string]chan amqp.Delivery
	logger  *zap.Logger
}

func NewReplyRouter(logger *zap.Logger) *ReplyRouter {
	return &ReplyRouter{
		waiting: make(map[string]chan amqp.Delivery),
		logger:  logger.With(zap.String("caller", "ReplyRouter")),
	}
}

// Register must be called before the request is published, so that a fast
// reply is not lost.
func (r *ReplyRouter) Register(cid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.waiting[cid] = make(chan amqp.Delivery, 1)
}

func (r *ReplyRouter) Cancel(cid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.waiting, cid)
}

// Wait blocks until the reply of cid arrives or ctx is done.
func (r *ReplyRouter) Wait(ctx context.Context, cid string) (amqp.Delivery, error) {
	r.mu.Lock()
	ch, ok := r.waiting[cid]
	r.mu.Unlock()
	if !ok {
		return amqp.Delivery{}, fmt.Errorf("await reply %s: not registered", cid)
	}
	defer r.Cancel(cid)

	select {
	case <-ctx.Done():
		return amqp.Delivery{}, fmt.Errorf("await reply %s: %w", cid, ctx.Err())
	case d := <-ch:
		return d, nil
	}
}

// Run dispatches deliveries until the channel closes. A registered cid keeps
// its reply until Cancel. Replies nobody waits for any more are acknowledged
// and dropped.
func (r *ReplyRouter) Run(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		if err := d.Ack(false); err != nil {
			r.logger.Error(fmt.Errorf("acknowledge reply: %w", err).Error(), zap.String("cid", d.CorrelationId))
		}

		r.mu.Lock()
		ch, ok := r.waiting[d.CorrelationId]
		r.mu.Unlock()

		if !ok {
			r.logger.Info(fmt.Sprintf("dropping reply with unknown cid %s", d.CorrelationId))
			continue
		}
		select {
		case ch <- d:
		default:
			r.logger.Info(fmt.Sprintf("dropping duplicate reply with cid %s", d.CorrelationId))
		}
	}
	r.logger.Info("reply channel closed")
}
