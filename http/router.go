package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the handlers. The asynchronous buy next route is only
// served when the handler has a queue client.
func NewRouter(h PortfolioHandler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			h.Logger.Error(fmt.Errorf("write health answer: %w", err).Error())
		}
	})

	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.GetPortfolio)
		r.Get("/split", h.GetSplit)
		r.Get("/table", h.GetTable)
		r.Get("/buy-next", h.BuyNext)
		if h.BuyNextAsync != nil && h.Replies != nil {
			r.Post("/buy-next/async", h.BuyNextAsyncHandler)
		}
	})

	r.Post("/contracts/{kind}/validate", h.ValidateContract)

	return r
}
