package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/harborline/backoffice/internal/service"
)

const (
	defaultShipmentPage = 50
	maxShipmentPage     = 500
)

// ShipmentsService is the shipment history behavior the handlers need.
type ShipmentsService interface {
	List(ctx context.Context, sess *domainauth.Session, filter model.ShipmentFilter) ([]model.Shipment, error)
	Get(ctx context.Context, sess *domainauth.Session, id string) (model.Shipment, error)
	Delete(ctx context.Context, sess *domainauth.Session, id string) error
}

var _ ShipmentsService = (*service.ShipmentService)(nil)

// ShipmentHandlers serves the shipment history API.
type ShipmentHandlers struct {
	Svc    ShipmentsService
	Logger *slog.Logger
}

func (h *ShipmentHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type shipmentListResponse struct {
	Shipments []model.Shipment `json:"shipments"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

// List handles GET /api/shipments?status=&organization=&limit=&offset=.
// The organization parameter is ignored for Client sessions.
func (h *ShipmentHandlers) List(w http.ResponseWriter, r *http.Request) {
	filter := shipmentFilterFromQuery(r.URL.Query())
	out, err := h.Svc.List(r.Context(), GetSessionFromContext(r.Context()), filter)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if out == nil {
		out = []model.Shipment{}
	}
	WriteJSON(w, http.StatusOK, shipmentListResponse{Shipments: out, Limit: filter.Limit, Offset: filter.Offset})
}

// shipmentFilterFromQuery reads the list filter. Unparseable paging values fall back to
// the defaults; limit is clamped to [1, maxShipmentPage] and offset to >= 0.
func shipmentFilterFromQuery(q url.Values) model.ShipmentFilter {
	intParam := func(key string, def int) int {
		n, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
		if err != nil {
			return def
		}
		return n
	}
	return model.ShipmentFilter{
		Organization: strings.TrimSpace(q.Get("organization")),
		Status:       model.ShipmentStatus(strings.TrimSpace(q.Get("status"))),
		Limit:        min(max(intParam("limit", defaultShipmentPage), 1), maxShipmentPage),
		Offset:       max(intParam("offset", 0), 0),
	}
}

// Get handles GET /api/shipments/{id}.
func (h *ShipmentHandlers) Get(w http.ResponseWriter, r *http.Request) {
	sh, err := h.Svc.Get(r.Context(), GetSessionFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, sh)
}

// Delete handles DELETE /api/shipments/{id}.
func (h *ShipmentHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), GetSessionFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
