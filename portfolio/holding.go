package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/glbter/fin-dashboard/entities"
)

type Kind string

const (
	Stock Kind = "stock"
	Bond  Kind = "bond"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Stock, Bond:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown ticker kind %q", entities.ErrMalformedPayload, s)
}

// Holding is a position of the portfolio together with its allocation goal.
type Holding struct {
	Symbol      string
	Kind        Kind
	Fee         float64
	Price       decimal.Decimal
	Shares      int64
	GoalPercent float64
	// Order is the display position of the ticker.
	Order int
}

func (h Holding) Value() decimal.Decimal {
	return h.Price.Mul(decimal.NewFromInt(h.Shares))
}

func (h Holding) validate() error {
	switch {
	case h.Symbol == "":
		return fmt.Errorf("%w: holding without symbol", entities.ErrMalformedPayload)
	case h.Kind != Stock && h.Kind != Bond:
		return fmt.Errorf("%w: %s: unknown ticker kind %q", entities.ErrMalformedPayload, h.Symbol, h.Kind)
	case h.Price.IsNegative():
		return fmt.Errorf("%w: %s: negative price %s", entities.ErrMalformedPayload, h.Symbol, h.Price)
	case h.Shares < 0:
		return fmt.Errorf("%w: %s: negative shares %d", entities.ErrMalformedPayload, h.Symbol, h.Shares)
	case h.Fee < 0:
		return fmt.Errorf("%w: %s: negative fee %v", entities.ErrMalformedPayload, h.Symbol, h.Fee)
	case h.GoalPercent < 0 || h.GoalPercent > 100:
		return fmt.Errorf("%w: %s: goal percent %v is not in [0,100]", entities.ErrMalformedPayload, h.Symbol, h.GoalPercent)
	}
	return nil
}

// Goal is the target allocation of the portfolio.
type Goal struct {
	Name         string
	StockPercent float64
	// TolerancePercent is how far an allocation may drift from its goal
	// before a trade is suggested.
	TolerancePercent float64
}

func DefaultGoal() Goal {
	return Goal{
		Name:             "my portfolio",
		StockPercent:     58,
		TolerancePercent: 5,
	}
}

func (g Goal) validate() error {
	if g.StockPercent < 0 || g.StockPercent > 100 {
		return fmt.Errorf("%w: goal stock percent %v is not in [0,100]", entities.ErrMalformedPayload, g.StockPercent)
	}
	if g.TolerancePercent < 0 {
		return fmt.Errorf("%w: negative tolerance %v", entities.ErrMalformedPayload, g.TolerancePercent)
	}
	return nil
}
