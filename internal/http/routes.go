package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	backoffice "github.com/harborline/backoffice"
	"github.com/harborline/backoffice/internal/observability/metrics"
	"github.com/harborline/backoffice/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth      AuthServiceInterface
	Shipments ShipmentsService
	Admin     AdminServiceInterface
	Guard     *service.Guard
	// Optional: exposes /metrics when set.
	Gatherer     prometheus.Gatherer
	Metrics      *metrics.Metrics
	HealthChecks map[string]HealthCheck
	CookieDomain string
	Logger       *slog.Logger // Logger for HTTP errors (optional)
}

// Router is the assembled HTTP handler plus the guarded API routes it serves.
type Router struct {
	handler  http.Handler
	registry *OperationRegistry
}

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) { rt.handler.ServeHTTP(w, r) }

// Operations lists the guarded API routes.
func (rt *Router) Operations() []RegisteredRoute { return rt.registry.Operations() }

// NewRouter creates and configures the HTTP router. Middleware order, outermost first:
// request id, recover, logging, browser detection, session loading, gateway, CSRF.
func NewRouter(services RouterServices) *Router {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	registry := NewOperationRegistry(mux, services.Guard, logger)

	authHandlers := &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain, Logger: logger}
	registerAuthRoutes(mux, authHandlers)
	registerPageRoutes(mux)
	registerAPIRoutes(registry, services, logger)

	health := HealthHandler(services.HealthChecks)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if services.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(services.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.Handle("GET /static/", staticHandler())

	var h http.Handler = mux
	h = CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})(h)
	h = Gateway(GatewayOptions{CookieDomain: services.CookieDomain, Logger: logger, Metrics: services.Metrics})(h)
	h = LoadSession(services.Auth, services.CookieDomain, logger)(h)
	h = BrowserDetection()(h)
	h = Logging(logger)(h)
	h = Recover(logger)(h)
	h = RequestID()(h)
	return &Router{handler: h, registry: registry}
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("GET /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("GET /auth/signed-out", h.SignedOut)
	mux.HandleFunc("GET /auth/denied", h.Denied)
}

func registerPageRoutes(mux *http.ServeMux) {
	requireAuth := RequireAuth()
	mux.Handle("GET /{$}", requireAuth(http.HandlerFunc(Home)))
	mux.Handle("GET /client/dashboard", requireAuth(http.HandlerFunc(ClientDashboard)))
}

func registerAPIRoutes(reg *OperationRegistry, services RouterServices, logger *slog.Logger) {
	if services.Shipments != nil {
		sh := &ShipmentHandlers{Svc: services.Shipments, Logger: logger}
		reg.RegisterFunc("GET /api/shipments", service.OpShipmentsList, sh.List)
		reg.RegisterFunc("GET /api/shipments/{id}", service.OpShipmentsGet, sh.Get)
		reg.RegisterFunc("DELETE /api/shipments/{id}", service.OpShipmentsDelete, sh.Delete)
	}
	if services.Admin != nil {
		ah := &AdminHandlers{Svc: services.Admin, Logger: logger}
		reg.RegisterFunc("POST /api/admin/roles", service.OpRolesProvision, ah.ProvisionRole)
		reg.RegisterFunc("GET /api/admin/users/{id}/sessions", service.OpSessionsList, ah.ListSessions)
		reg.RegisterFunc("DELETE /api/admin/users/{id}/sessions", service.OpSessionsRevoke, ah.RevokeSessions)
	}
}

// staticHandler serves the embedded assets with a cache header.
func staticHandler() http.Handler {
	sub, err := fs.Sub(backoffice.StaticFS, "static")
	if err != nil {
		// The embed directive guarantees the directory; this only trips on a broken build.
		panic(err)
	}
	files := http.StripPrefix("/static/", http.FileServerFS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
