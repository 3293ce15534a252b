package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const keyPrefix = "fin:quote:"

// RedisQuotes shares quotes between the API server and the workers.
type RedisQuotes struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQuotes wraps client. A zero ttl keeps quotes until overwritten.
func NewRedisQuotes(client *redis.Client, ttl time.Duration) *RedisQuotes {
	return &RedisQuotes{client: client, ttl: ttl}
}

func QuoteKey(symbol string) string {
	return keyPrefix + strings.ToUpper(symbol)
}

func (r *RedisQuotes) Get(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	raw, err := r.client.Get(ctx, QuoteKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get quote %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse quote %s: %w", symbol, err)
	}
	return price, true, nil
}

func (r *RedisQuotes) Set(ctx context.Context, symbol string, price decimal.Decimal) error {
	if err := r.client.Set(ctx, QuoteKey(symbol), price.String(), r.ttl).Err(); err != nil {
		return fmt.Errorf("set quote %s: %w", symbol, err)
	}
	return nil
}

func (r *RedisQuotes) Close() error {
	return r.client.Close()
}
