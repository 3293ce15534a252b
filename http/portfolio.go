package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glbter/fin-dashboard/entities"
	portfolioRabbit "github.com/glbter/fin-dashboard/portfolio/client/rabbit"
)

const maxBodyBytes = 1 << 20

type PortfolioService interface {
	Portfolio(ctx context.Context) (entities.FinPortfolioResp, error)
	Split(ctx context.Context) (entities.Portfolio, error)
	Table(ctx context.Context) (entities.FinTableState, error)
	BuyNext(ctx context.Context, cash decimal.Decimal, sells bool) (entities.BuyNextResp, error)
}

type BuyNextStarter interface {
	StartBuyNext(ctx context.Context, req portfolioRabbit.BuyNextReq, cid string, isVipUser bool) error
}

type ReplyWaiter interface {
	Register(cid string)
	Cancel(cid string)
	Wait(ctx context.Context, cid string) (amqp.Delivery, error)
}

type PortfolioHandler struct {
	Logger       *zap.Logger
	Service      PortfolioService
	BuyNextAsync BuyNextStarter
	Replies      ReplyWaiter
}

func (h PortfolioHandler) logger(r *http.Request, method string) *zap.Logger {
	return h.Logger.With(
		zap.String("method", method),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "GetPortfolio")

	res, err := h.Service.Portfolio(r.Context())
	if err != nil {
		respondError(w, logger, fmt.Errorf("get portfolio: %w", err))
		return
	}
	respondJSON(w, logger, http.StatusOK, res)
}

func (h PortfolioHandler) GetSplit(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "GetSplit")

	res, err := h.Service.Split(r.Context())
	if err != nil {
		respondError(w, logger, fmt.Errorf("get portfolio split: %w", err))
		return
	}
	respondJSON(w, logger, http.StatusOK, res)
}

func (h PortfolioHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "GetTable")

	res, err := h.Service.Table(r.Context())
	if err != nil {
		respondError(w, logger, fmt.Errorf("get table state: %w", err))
		return
	}
	respondJSON(w, logger, http.StatusOK, res)
}

func (h PortfolioHandler) BuyNext(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "BuyNext")

	cash, sells, err := parseBuyNextQuery(r)
	if err != nil {
		respondBadRequest(w, logger, err)
		return
	}

	start := time.Now()
	res, err := h.Service.BuyNext(r.Context(), cash, sells)
	if err != nil {
		respondError(w, logger, fmt.Errorf("plan buy next: %w", err))
		return
	}
	logger.Info("planned buy next", zap.Int("actions", len(res.Actions)), zap.Duration("duration", time.Since(start)))
	respondJSON(w, logger, http.StatusOK, res)
}

func (h PortfolioHandler) BuyNextAsyncHandler(w http.ResponseWriter, r *http.Request) {
	cid := uuid.New().String()
	logger := h.logger(r, "BuyNextAsync").With(zap.String("cid", cid))
	logger.Info("start run async")

	cash, sells, err := parseBuyNextQuery(r)
	if err != nil {
		respondBadRequest(w, logger, err)
		return
	}

	isVip := false
	if vip := r.URL.Query().Get("is_vip"); vip != "" {
		isVip, err = strconv.ParseBool(vip)
		if err != nil {
			respondBadRequest(w, logger, fmt.Errorf("parse is_vip: %w", err))
			return
		}
	}

	start := time.Now()
	h.Replies.Register(cid)
	defer h.Replies.Cancel(cid)

	req := portfolioRabbit.BuyNextReq{Cash: cash.String(), Sells: sells}
	if err := h.BuyNextAsync.StartBuyNext(r.Context(), req, cid, isVip); err != nil {
		respondError(w, logger, fmt.Errorf("start buy next: %w", err))
		return
	}

	waitCtx, cancel := replyContext(r.Context())
	defer cancel()

	d, err := h.Replies.Wait(waitCtx, cid)
	if err != nil {
		logger.Error(fmt.Errorf("await buy next: %w", err).Error())
		respondErrorStatus(w, logger, http.StatusGatewayTimeout, "timeout", err)
		return
	}

	res, err := portfolioRabbit.DecodeReply(d.Body)
	if err != nil {
		respondError(w, logger, fmt.Errorf("buy next reply: %w", err))
		return
	}
	logger.Info("finish run async", zap.Duration("duration", time.Since(start)))
	respondJSON(w, logger, http.StatusOK, res)
}

// replyMargin is the share of the time left to a request kept to answer it
// once the wait for a reply is over, capped by maxReplyMargin.
const (
	replyMargin    = 10
	maxReplyMargin = time.Second
)

// replyContext ends before ctx does, so that a timed out wait is answered by
// the handler before the request deadline.
func replyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	margin := time.Until(deadline) / replyMargin
	if margin > maxReplyMargin {
		margin = maxReplyMargin
	}
	return context.WithDeadline(ctx, deadline.Add(-margin))
}

var contractKinds = map[string]func() any{
	"ticker":             func() any { return &entities.Ticker{} },
	"portfolio":          func() any { return &entities.Portfolio{} },
	"table-state":        func() any { return &entities.FinTableState{} },
	"portfolio-response": func() any { return &entities.FinPortfolioResp{} },
	"action":             func() any { return &entities.Action{} },
	"buy-next":           func() any { return &entities.BuyNextResp{} },
}

// ValidateContract answers 204 when the body is a conforming value of the
// contract named in the path.
func (h PortfolioHandler) ValidateContract(w http.ResponseWriter, r *http.Request) {
	logger := h.logger(r, "ValidateContract")

	kind := chi.URLParam(r, "kind")
	newValue, ok := contractKinds[kind]
	if !ok {
		respondErrorStatus(w, logger, http.StatusNotFound, "unknown_contract", fmt.Errorf("unknown contract %q", kind))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondBadRequest(w, logger, fmt.Errorf("read body: %w", err))
		return
	}

	if err := entities.Decode(body, newValue()); err != nil {
		respondError(w, logger, fmt.Errorf("validate %s: %w", kind, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseBuyNextQuery(r *http.Request) (decimal.Decimal, bool, error) {
	q := r.URL.Query()

	cash := decimal.Zero
	if v := q.Get("cash"); v != "" {
		var err error
		cash, err = decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("parse cash: %w", err)
		}
		if cash.IsNegative() {
			return decimal.Zero, false, fmt.Errorf("parse cash: %s is negative", v)
		}
	}

	sells := false
	if v := q.Get("sells"); v != "" {
		var err error
		sells, err = strconv.ParseBool(v)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("parse sells: %w", err)
		}
	}
	return cash, sells, nil
}
