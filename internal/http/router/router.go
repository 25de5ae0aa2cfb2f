package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-dispatch/internal/http/handlers"
	mw "service-dispatch/internal/http/middleware"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/logx"
)

// New constructs a chi-based http.Handler with base middleware and routes.
// Dispatch routes require a bearer token and are rate limited per caller.
func New(
	h *handlers.Handlers,
	d *handlers.DispatchHandler,
	verifier mw.TokenVerifier,
	limiter *ratelimit.Middleware,
	logger logx.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Observability(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/ping", h.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(h.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.NotFound(http.HandlerFunc(h.NotFound))

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(verifier, logger))
		if limiter != nil {
			r.Use(limiter.Handler())
		}

		r.Route("/partners/{id}", func(r chi.Router) {
			r.Get("/nearby-orders", d.NearbyOrders)
			r.Get("/requests", d.PartnerRequests)
			r.Post("/release-capacity", d.ReleaseCapacity)
		})
		r.Get("/orders/{id}/requests", d.OrderRequests)

		r.Post("/requests", d.CreateRequest)
		r.Route("/requests/{id}", func(r chi.Router) {
			r.Get("/", d.GetRequest)
			r.Post("/accept", d.AcceptRequest)
			r.Post("/reject", d.RejectRequest)
			r.Post("/cancel", d.CancelRequest)
		})
	})

	return r
}
