package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"shopgrid/internal/service/order/application"
	"shopgrid/internal/service/order/domain"
)

const serviceName = "order-service"

// OrderHandler exposes the orchestrator over HTTP. Caller identity arrives
// out-of-band on X-User-Id / X-User-Name, set by the gateway after
// authentication.
type OrderHandler struct {
	service *application.OrderService
	tracer  trace.Tracer
}

func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
		tracer:  otel.Tracer(serviceName),
	}
}

// RegisterRoutes wires all order routes onto the ServeMux.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /orders", h.traced("order-service.SubmitOrder", h.submitOrder))
	mux.HandleFunc("GET /orders", h.traced("order-service.ListOrders", h.listOrders))
	mux.HandleFunc("GET /orders/all", h.traced("order-service.ListAllOrders", h.listAllOrders))
	mux.HandleFunc("GET /orders/{id}", h.traced("order-service.GetOrder", h.getOrder))
	mux.HandleFunc("PATCH /orders/{id}/status", h.traced("order-service.SetStatus", h.setStatus))
	mux.HandleFunc("DELETE /orders/{id}", h.traced("order-service.DeleteOrder", h.deleteOrder))
}

// traced extracts the upstream trace context and opens a server span before
// delegating to the handler.
func (h *OrderHandler) traced(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := h.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		next(w, r.WithContext(ctx))
	}
}

type submitOrderRequest struct {
	Products []application.SubmitItem `json:"products"`
}

func (h *OrderHandler) submitOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "caller identity is required")
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.SubmitOrder(r.Context(), actor, req.Products)
	if err != nil {
		// Admission-time shortfalls are a client problem, not a conflict the
		// client can retry against a stale view, so they map to 400 here.
		if errors.Is(err, domain.ErrConflict) {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "caller identity is required")
		return
	}
	orders, err := h.service.ListOrders(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAllOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "caller identity is required")
		return
	}
	order, err := h.service.GetOrder(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.SetStatus(r.Context(), r.PathValue("id"), domain.Status(req.Status), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "caller identity is required")
		return
	}
	if err := h.service.DeleteOrder(r.Context(), r.PathValue("id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "order deleted successfully")
}

func actorFrom(r *http.Request) (domain.Actor, bool) {
	actor := domain.Actor{
		ID:   r.Header.Get("X-User-Id"),
		Name: r.Header.Get("X-User-Name"),
	}
	return actor, actor.ID != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps the domain taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
