package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/application"
	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/dmehra2102/order-fulfillment/internal/platform/httpapi"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log.With("component", "product-http"),
		service: service,
		tracer:  otel.Tracer("product-http"),
	}
}

type stockReq struct {
	StockQuantity *int `json:"stockQuantity"`
}

type availability struct {
	ProductID     int64 `json:"productId"`
	InStock       bool  `json:"inStock"`
	StockQuantity int   `json:"stockQuantity"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/availability", h.availability)
	r.Put("/{id}/stock", h.setStock)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	products, err := h.service.ListProducts(ctx)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, products)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))
	p, err := h.service.GetProduct(ctx, id)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ProductAvailability")
	defer span.End()

	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	qty, err := h.service.StockLevel(ctx, id)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	inStock, err := h.service.IsInStock(ctx, id)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, availability{ProductID: id, InStock: inStock, StockQuantity: qty})
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetStock")
	defer span.End()

	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req stockReq
	if err := httpapi.Decode(w, r, &req); err != nil || req.StockQuantity == nil {
		httpapi.WriteError(w, http.StatusBadRequest, "stockQuantity is required")
		return
	}
	p, err := h.service.SetStock(ctx, id, *req.StockQuantity)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) fail(w http.ResponseWriter, span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		httpapi.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNegativeStock):
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
