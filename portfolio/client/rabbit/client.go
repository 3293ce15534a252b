package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glbter/fin-dashboard/entities"
)

const (
	BUY_NEXT_QUEUE_REQ  = "buy_next_req"
	BUY_NEXT_QUEUE_RESP = "buy_next_resp"

	maxPriority = 3
)

// Channel is the part of *amqp.Channel the client needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// BuyNextReq asks a worker for a buy next plan.
type BuyNextReq struct {
	// Cash is a decimal amount; empty means the single next share.
	Cash  string `json:"cash"`
	Sells bool   `json:"sells"`
}

// ErrorReply is published instead of a BuyNextResp when the plan fails.
type ErrorReply struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewBuyNextClient(channel Channel) *BuyNextClient {
	return &BuyNextClient{
		channel: channel,
	}
}

type BuyNextClient struct {
	channel Channel
}

func (c *BuyNextClient) StartBuyNext(ctx context.Context, req BuyNextReq, cid string, isVipUser bool) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshall request: %w", err)
	}

	return c.channel.PublishWithContext(ctx,
		"",                 // exchange
		BUY_NEXT_QUEUE_REQ, // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: cid,
			ReplyTo:       BUY_NEXT_QUEUE_RESP,
			Body:          body,
			Priority:      c.userPriority(isVipUser),
		})
}

func (c *BuyNextClient) userPriority(isVip bool) uint8 {
	if isVip {
		return maxPriority
	}

	return 1
}

func (c *BuyNextClient) ReceiveBuyNext() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(
		BUY_NEXT_QUEUE_RESP, // queue
		"",                  // consumer
		false,               // auto-ack
		false,               // exclusive
		false,               // no-local
		false,               // no-wait
		nil,                 // args
	)
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

// DecodeReply reads a worker reply.
func DecodeReply(body []byte) (entities.BuyNextResp, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return entities.BuyNextResp{}, fmt.Errorf("%w: %v", entities.ErrMalformedPayload, err)
	}
	if _, ok := probe["error"]; ok {
		var reply ErrorReply
		if err := json.Unmarshal(body, &reply); err != nil {
			return entities.BuyNextResp{}, fmt.Errorf("%w: %v", entities.ErrMalformedPayload, err)
		}
		return entities.BuyNextResp{}, entities.FromCode(reply.Code, reply.Error)
	}

	var resp entities.BuyNextResp
	if err := entities.Decode(body, &resp); err != nil {
		return entities.BuyNextResp{}, err
	}
	return resp, nil
}

// DeclareQueues declares the request and reply queues with priorities
// enabled.
func DeclareQueues(ch *amqp.Channel) error {
	args := amqp.Table{"x-max-priority": int32(maxPriority)}

	for _, name := range []string{BUY_NEXT_QUEUE_REQ, BUY_NEXT_QUEUE_RESP} {
		if _, err := ch.QueueDeclare(
			name,  // name
			false, // durable
			false, // delete when unused
			false, // exclusive
			false, // noWait
			args,  // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}

	return nil
}
