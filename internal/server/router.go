package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pharmacart/internal/auth"
	"pharmacart/internal/infrastructure/metrics"
	"pharmacart/internal/infrastructure/web"
	ordercontroller "pharmacart/internal/order/controller"
	walletcontroller "pharmacart/internal/wallet/controller"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func NewRouter(orderCtrl *ordercontroller.OrderController, walletCtrl *walletcontroller.WalletController, store Pinger, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", health(store, logger))
	r.Handle("/metrics", metrics.Handler(gatherer))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/orders", orderCtrl.PlaceOrder)
		r.Get("/orders/{orderId}", orderCtrl.GetOrder)
		r.Get("/wallet", walletCtrl.GetBalance)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/orders", orderCtrl.ListOrders)
			r.Get("/orders/{orderId}", orderCtrl.GetOrder)
			r.Put("/orders/{orderId}", orderCtrl.UpdateStatus)
			r.Post("/users/{userId}/wallet/credit", walletCtrl.Credit)
		})
	})

	return r
}

func health(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			web.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Store: "unreachable"}, logger)
			return
		}
		web.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: "ok"}, logger)
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("requestId", middleware.GetReqID(r.Context())),
			)
		})
	}
}
