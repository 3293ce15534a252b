package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/glbter/fin-dashboard/entities"
)

// maxPlanSteps bounds the number of runs of identical purchases in a plan.
const maxPlanSteps = 10_000

type Trade int

const (
	Hold Trade = iota
	Buy
	Sell
)

func (t Trade) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "hold"
}

// Side is the asset class the next purchase should go to.
type Side int

const (
	BuyEither Side = iota
	BuyStock
	BuyBond
)

func (s Side) String() string {
	switch s {
	case BuyStock:
		return "stock"
	case BuyBond:
		return "bond"
	}
	return "either"
}

type TickerDiff struct {
	Symbol          string
	GoalMinusActual float64
	Trade           Trade
	Order           int
}

func (s Snapshot) Diffs() []TickerDiff {
	diffs := make([]TickerDiff, len(s.Holdings))
	for i, h := range s.Holdings {
		gap := h.GoalPercent - s.Percents[i]
		diffs[i] = TickerDiff{
			Symbol:          h.Symbol,
			GoalMinusActual: gap,
			Trade:           s.trade(gap),
			Order:           h.Order,
		}
	}
	return diffs
}

func (s Snapshot) trade(gap float64) Trade {
	switch {
	case gap > 0 && gap > s.Goal.TolerancePercent:
		return Buy
	case gap < 0 && -gap > s.Goal.TolerancePercent:
		return Sell
	}
	return Hold
}

// Side buys bonds while stocks exceed their goal by more than the tolerance,
// stocks while they trail it by more than the tolerance, and either otherwise.
func (s Snapshot) Side() Side {
	switch s.trade(s.Goal.StockPercent - s.StockPercent) {
	case Buy:
		return BuyStock
	case Sell:
		return BuyBond
	}
	return BuyEither
}

// NextTicker picks the holding to buy next among those accepted by eligible:
// the cheapest holding of the side to buy that trails its goal, falling back
// to the whole side, then to every eligible holding.
func (s Snapshot) NextTicker(eligible func(Holding) bool) (Holding, bool) {
	side := s.Side()
	diffs := s.Diffs()

	var inSide, buys []int
	var all []int
	for i, h := range s.Holdings {
		if eligible != nil && !eligible(h) {
			continue
		}
		all = append(all, i)
		if side == BuyStock && h.Kind != Stock || side == BuyBond && h.Kind != Bond {
			continue
		}
		inSide = append(inSide, i)
		if diffs[i].Trade == Buy {
			buys = append(buys, i)
		}
	}

	candidates := buys
	if len(candidates) == 0 {
		candidates = inSide
	}
	if len(candidates) == 0 {
		candidates = all
	}
	if len(candidates) == 0 {
		return Holding{}, false
	}

	best := candidates[0]
	for _, i := range candidates[1:] {
		if cheaper(s.Holdings[i], diffs[i], s.Holdings[best], diffs[best]) {
			best = i
		}
	}
	return s.Holdings[best], true
}

// cheaper orders by price, then by the widest gap to the goal.
func cheaper(a Holding, ad TickerDiff, b Holding, bd TickerDiff) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	return ad.GoalMinusActual > bd.GoalMinusActual
}

// Plan proposes the purchases to make with cash. It buys the next ticker it
// can afford, revaluing the portfolio after each purchase, until nothing is
// affordable. Without cash, the plan is the single next share to buy.
func Plan(ctx context.Context, goal Goal, holdings []Holding, cash decimal.Decimal) (entities.BuyNextResp, error) {
	if cash.IsNegative() {
		return entities.BuyNextResp{}, fmt.Errorf("%w: negative cash %s", entities.ErrMalformedPayload, cash)
	}

	snap, err := Compute(goal, holdings)
	if err != nil {
		return entities.BuyNextResp{}, err
	}

	bought := make(map[string]int64)
	if cash.IsZero() {
		if h, ok := snap.NextTicker(nil); ok {
			bought[h.Symbol] = 1
		}
	} else {
		remaining := cash
		converged := false
		for step := 0; step < maxPlanSteps; step++ {
			if err := ctx.Err(); err != nil {
				return entities.BuyNextResp{}, fmt.Errorf("plan buy next: %w", err)
			}
			h, ok := snap.NextTicker(affordable(remaining))
			if !ok {
				converged = true
				break
			}
			n, err := snap.run(ctx, h, remaining)
			if err != nil {
				return entities.BuyNextResp{}, err
			}
			remaining = remaining.Sub(h.Price.Mul(decimal.NewFromInt(n)))
			bought[h.Symbol] += n
			if snap, err = Compute(goal, withShares(snap.Holdings, h.Symbol, n)); err != nil {
				return entities.BuyNextResp{}, fmt.Errorf("revalue portfolio: %w", err)
			}
		}
		if !converged {
			return entities.BuyNextResp{}, fmt.Errorf("%w: plan for %s did not settle in %d steps", entities.ErrInconsistentTotals, cash, maxPlanSteps)
		}
	}

	resp := entities.BuyNextResp{Actions: []entities.Action{}}
	buyValue := decimal.Zero
	for i, h := range snap.Holdings {
		n := bought[h.Symbol]
		if n == 0 {
			continue
		}
		resp.Actions = append(resp.Actions, entities.Action{
			ID:     i,
			Shares: n,
			Price:  h.Price.InexactFloat64(),
		})
		buyValue = buyValue.Add(h.Price.Mul(decimal.NewFromInt(n)))
	}
	resp.BuyValue = buyValue.InexactFloat64()

	if err := resp.Validate(); err != nil {
		return entities.BuyNextResp{}, fmt.Errorf("build buy next response: %w", err)
	}
	return resp, nil
}

func affordable(cash decimal.Decimal) func(Holding) bool {
	return func(h Holding) bool {
		return h.Price.IsPositive() && h.Price.LessThanOrEqual(cash)
	}
}

// run returns how many shares of h to buy in a row: the largest n such that,
// with n-1 shares already bought, h is still the next ticker. At least one.
func (s Snapshot) run(ctx context.Context, h Holding, cash decimal.Decimal) (int64, error) {
	most := cash.Div(h.Price).Floor().IntPart()
	if most <= 1 {
		return 1, nil
	}

	stillNext := func(n int64) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, fmt.Errorf("plan buy next: %w", err)
		}
		snap, err := Compute(s.Goal, withShares(s.Holdings, h.Symbol, n-1))
		if err != nil {
			return false, fmt.Errorf("revalue portfolio: %w", err)
		}
		left := cash.Sub(h.Price.Mul(decimal.NewFromInt(n - 1)))
		next, ok := snap.NextTicker(affordable(left))
		return ok && next.Symbol == h.Symbol, nil
	}

	// gallop, then bisect between the last good and the first bad run
	good, bad := int64(1), most+1
	for n := int64(2); n <= most; n *= 2 {
		ok, err := stillNext(n)
		if err != nil {
			return 0, err
		}
		if !ok {
			bad = n
			break
		}
		good = n
	}
	if bad == most+1 && good < most {
		ok, err := stillNext(most)
		if err != nil {
			return 0, err
		}
		if ok {
			return most, nil
		}
		bad = most
	}
	for bad-good > 1 {
		mid := good + (bad-good)/2
		ok, err := stillNext(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			good = mid
		} else {
			bad = mid
		}
	}
	return good, nil
}

func withShares(holdings []Holding, symbol string, n int64) []Holding {
	out := append([]Holding(nil), holdings...)
	for i := range out {
		if out[i].Symbol == symbol {
			out[i].Shares += n
		}
	}
	return out
}

// Sells lists the holdings above their goal by more than the tolerance,
// with the whole shares to sell to bring them back to it.
func (s Snapshot) Sells() []entities.Action {
	actions := []entities.Action{}
	if s.Total.IsZero() {
		return actions
	}
	for i, d := range s.Diffs() {
		h := s.Holdings[i]
		if d.Trade != Sell || !h.Price.IsPositive() {
			continue
		}
		excess := s.Total.Mul(decimal.NewFromFloat(-d.GoalMinusActual)).Div(hundred)
		shares := excess.Div(h.Price).Floor().IntPart()
		if shares > h.Shares {
			shares = h.Shares
		}
		if shares <= 0 {
			continue
		}
		actions = append(actions, entities.Action{ID: i, Shares: -shares, Price: h.Price.InexactFloat64()})
	}
	return actions
}
