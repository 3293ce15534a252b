package cache

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryQuotes keeps quotes for the lifetime of the process.
type MemoryQuotes struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

func NewMemoryQuotes() *MemoryQuotes {
	return &MemoryQuotes{prices: make(map[string]decimal.Decimal)}
}

func (m *MemoryQuotes) Get(_ context.Context, symbol string) (decimal.Decimal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prices[symbol]
	return p, ok, nil
}

func (m *MemoryQuotes) Set(_ context.Context, symbol string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prices[symbol] = price
	return nil
}
