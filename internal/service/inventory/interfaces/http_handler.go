package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"shopgrid/internal/service/inventory/application"
	"shopgrid/internal/service/inventory/domain"
)

const serviceName = "inventory-service"

// InventoryHandler exposes the catalog and the reserve/release protocol over
// HTTP. Reserve and release are the only mutations the order service calls;
// the catalog routes are administrative.
type InventoryHandler struct {
	service *application.InventoryService
	tracer  trace.Tracer
}

func NewInventoryHandler(service *application.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		tracer:  otel.Tracer(serviceName),
	}
}

func (h *InventoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /products", h.traced("inventory-service.CreateProduct", h.createProduct))
	mux.HandleFunc("GET /products", h.traced("inventory-service.ListProducts", h.listProducts))
	mux.HandleFunc("GET /products/{id}", h.traced("inventory-service.GetProduct", h.getProduct))
	mux.HandleFunc("PUT /products/{id}", h.traced("inventory-service.UpdateProduct", h.updateProduct))
	mux.HandleFunc("DELETE /products/{id}", h.traced("inventory-service.DeleteProduct", h.deleteProduct))
	mux.HandleFunc("POST /products/{id}/reserve", h.traced("inventory-service.Reserve", h.reserve))
	mux.HandleFunc("POST /products/{id}/release", h.traced("inventory-service.Release", h.release))
}

func (h *InventoryHandler) traced(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := h.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		next(w, r.WithContext(ctx))
	}
}

func (h *InventoryHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in application.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	product, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *InventoryHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *InventoryHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *InventoryHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in application.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *InventoryHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "product deleted successfully")
}

type adjustRequest struct {
	Quantity int    `json:"quantity"`
	OrderID  string `json:"order_id"`
}

type adjustResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	productID := r.PathValue("id")
	remaining, err := h.service.Reserve(r.Context(), productID, req.Quantity, req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResponse{ProductID: productID, Quantity: remaining})
}

func (h *InventoryHandler) release(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	productID := r.PathValue("id")
	remaining, err := h.service.Release(r.Context(), productID, req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustResponse{ProductID: productID, Quantity: remaining})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

type conflictBody struct {
	Message   string `json:"message"`
	Available int    `json:"available"`
}

func writeError(w http.ResponseWriter, err error) {
	var shortage *domain.InsufficientStock
	switch {
	case errors.As(err, &shortage):
		writeJSON(w, http.StatusConflict, conflictBody{
			Message:   shortage.Error(),
			Available: shortage.Available,
		})
	case errors.Is(err, domain.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
