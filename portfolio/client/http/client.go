package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultPricePath = "$.price"

// QuoteClient fetches the latest price of a symbol from a quote engine
// answering GET {url}/quote/{symbol} with a JSON document.
type QuoteClient struct {
	url       string
	pricePath string
	client    *http.Client
	logger    *zap.Logger
}

// NewClient creates a quote client. pricePath is the JSONPath of the price in
// the quote document; empty means DefaultPricePath.
func NewClient(c *http.Client, url, pricePath string, logger *zap.Logger) QuoteClient {
	if pricePath == "" {
		pricePath = DefaultPricePath
	}
	return QuoteClient{
		url:       url,
		pricePath: pricePath,
		client:    c,
		logger:    logger.With(zap.String("caller", "QuoteClient")),
	}
}

func (qc QuoteClient) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	logger := qc.logger.With(zap.String("method", "Quote"), zap.String("symbol", symbol))

	start := time.Now()

	path, err := url.JoinPath(qc.url, "quote", url.PathEscape(symbol))
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := qc.client.Do(req)
	logger.Debug("finish quote", zap.Duration("duration", time.Since(start)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("send Get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("responded with %v http code", resp.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}

	return extractPrice(doc, qc.pricePath)
}

func extractPrice(doc any, path string) (decimal.Decimal, error) {
	val, err := jsonpath.Get(path, doc)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read %q: %w", path, err)
	}
	// wildcard paths answer a list, keep the first match
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return decimal.Zero, fmt.Errorf("read %q: no match", path)
		}
		val = list[0]
	}

	var price decimal.Decimal
	switch v := val.(type) {
	case float64:
		price = decimal.NewFromFloat(v)
	case string:
		price, err = decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(v), ",", "."))
		if err != nil {
			return decimal.Zero, fmt.Errorf("read %q: %w", path, err)
		}
	default:
		return decimal.Zero, fmt.Errorf("read %q: %v is not a price", path, val)
	}

	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("read %q: negative price %s", path, price)
	}
	return price, nil
}
