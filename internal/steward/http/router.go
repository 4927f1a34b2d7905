package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/aussiebroadwan/steward/pkg/httpx"
	"github.com/aussiebroadwan/steward/pkg/slogx"
)

// MaxWebhookBody bounds a single webhook delivery.
const MaxWebhookBody = 1 << 20

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	verifyToken string
	Dispatcher  Dispatcher
}

func NewRouter(
	verifyToken, buildVersion string,
	st store.Store,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		verifyToken:  verifyToken,
		Dispatcher:   dispatcher,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerWebhook()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerWebhook() {
	h := &WebhookHandler{VerifyToken: r.verifyToken, Dispatcher: r.Dispatcher}

	// Handshakes are rare; anything beyond a handful is someone guessing tokens.
	r.Mux.Handle("GET /webhook",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Deliveries come from the platform's own address pool and are not limited.
	r.Mux.Handle("POST /webhook",
		httpx.Chain(http.HandlerFunc(h.HandleEvent),
			httpx.MaxBytes(MaxWebhookBody),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	// readyz touches the ledger, so it gets a ceiling.
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
