package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/harborline/backoffice/internal/service"
)

// RegisteredRoute pairs a mux pattern with the operation guarding it.
type RegisteredRoute struct {
	Pattern   string
	Operation service.Operation
}

// OperationRegistry is the only way API routes are added to the mux, so every API
// handler runs behind RequireAuth and the operation guard.
type OperationRegistry struct {
	mux    *http.ServeMux
	guard  *service.Guard
	logger *slog.Logger
	routes []RegisteredRoute
}

// NewOperationRegistry wraps mux. A nil guard gets a default one.
func NewOperationRegistry(mux *http.ServeMux, guard *service.Guard, logger *slog.Logger) *OperationRegistry {
	if guard == nil {
		guard = service.NewGuard(service.GuardOptions{Logger: logger})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationRegistry{mux: mux, guard: guard, logger: logger}
}

// Register mounts h at pattern behind op. It panics when op is unusable, so a route
// without roles cannot reach production.
func (o *OperationRegistry) Register(pattern string, op service.Operation, h http.Handler) {
	if err := op.Validate(); err != nil {
		panic(fmt.Sprintf("httpx: route %q: %v", pattern, err))
	}
	o.routes = append(o.routes, RegisteredRoute{Pattern: pattern, Operation: op})
	o.mux.Handle(pattern, RequireAuth()(o.guarded(op, h)))
}

// RegisterFunc is Register for handler functions.
func (o *OperationRegistry) RegisterFunc(pattern string, op service.Operation, h http.HandlerFunc) {
	o.Register(pattern, op, h)
}

// Operations lists every registered route in registration order.
func (o *OperationRegistry) Operations() []RegisteredRoute {
	return slices.Clone(o.routes)
}

func (o *OperationRegistry) guarded(op service.Operation, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := o.guard.Authorize(r.Context(), GetSessionFromContext(r.Context()), op); err != nil {
			writeServiceError(w, r, o.logger, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
