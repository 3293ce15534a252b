package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/entities"
)

type HoldingsRepo interface {
	GetHoldings(ctx context.Context) ([]Holding, error)
}

// QuoteStore keeps the latest known price per symbol.
type QuoteStore interface {
	Get(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, symbol string, price decimal.Decimal) error
}

type Service struct {
	goal   Goal
	repo   HoldingsRepo
	quotes QuoteStore
	logger *zap.Logger
}

// NewService creates the portfolio service. quotes may be nil, in which case
// the prices of the repository are used as is.
func NewService(goal Goal, repo HoldingsRepo, quotes QuoteStore, logger *zap.Logger) *Service {
	return &Service{
		goal:   goal,
		repo:   repo,
		quotes: quotes,
		logger: logger.With(zap.String("caller", "PortfolioService")),
	}
}

// Holdings returns the holdings priced with the latest known quotes.
func (s *Service) Holdings(ctx context.Context) ([]Holding, error) {
	holdings, err := s.repo.GetHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}
	if s.quotes == nil {
		return holdings, nil
	}

	for i, h := range holdings {
		price, ok, err := s.quotes.Get(ctx, h.Symbol)
		if err != nil {
			// a stale price is better than no answer
			s.logger.Warn("get quote", zap.String("symbol", h.Symbol), zap.Error(err))
			continue
		}
		if ok {
			holdings[i].Price = price
		}
	}
	return holdings, nil
}

func (s *Service) Symbols(ctx context.Context) ([]string, error) {
	holdings, err := s.repo.GetHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}
	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}
	return symbols, nil
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	holdings, err := s.Holdings(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Compute(s.goal, holdings)
}

func (s *Service) Portfolio(ctx context.Context) (entities.FinPortfolioResp, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return entities.FinPortfolioResp{}, err
	}
	resp := snap.Response()
	if err := resp.Validate(); err != nil {
		return entities.FinPortfolioResp{}, fmt.Errorf("build portfolio response: %w", err)
	}
	return resp, nil
}

func (s *Service) Split(ctx context.Context) (entities.Portfolio, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return entities.Portfolio{}, err
	}
	p := snap.Portfolio()
	if err := p.Validate(); err != nil {
		return entities.Portfolio{}, fmt.Errorf("build portfolio split: %w", err)
	}
	return p, nil
}

func (s *Service) Table(ctx context.Context) (entities.FinTableState, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return entities.FinTableState{}, err
	}
	return snap.TableState()
}

// BuyNext plans the purchases to make with cash. With sells, holdings above
// their goal that are not bought get a sell action as well.
func (s *Service) BuyNext(ctx context.Context, cash decimal.Decimal, sells bool) (entities.BuyNextResp, error) {
	holdings, err := s.Holdings(ctx)
	if err != nil {
		return entities.BuyNextResp{}, err
	}

	resp, err := Plan(ctx, s.goal, holdings, cash)
	if err != nil {
		return entities.BuyNextResp{}, err
	}
	if !sells {
		return resp, nil
	}

	snap, err := Compute(s.goal, holdings)
	if err != nil {
		return entities.BuyNextResp{}, err
	}
	planned := make(map[int]struct{}, len(resp.Actions))
	for _, a := range resp.Actions {
		planned[a.ID] = struct{}{}
	}
	for _, a := range snap.Sells() {
		if _, ok := planned[a.ID]; !ok {
			resp.Actions = append(resp.Actions, a)
		}
	}
	if err := resp.Validate(); err != nil {
		return entities.BuyNextResp{}, fmt.Errorf("build buy next response: %w", err)
	}
	return resp, nil
}
