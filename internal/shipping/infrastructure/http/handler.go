package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/order-fulfillment/internal/platform/httpapi"
	"github.com/dmehra2102/order-fulfillment/internal/shipping/application"
	"github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log.With("component", "shipping-http"),
		service: service,
		tracer:  otel.Tracer("shipping-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/methods", h.methods)
	r.Get("/quote", h.quote)
	return r
}

func (h *Handler) methods(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "ShippingMethods")
	defer span.End()

	httpapi.WriteJSON(w, http.StatusOK, h.service.Methods())
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "ShippingQuote")
	defer span.End()

	weight := decimal.NewFromInt(1)
	if raw := r.URL.Query().Get("weightKg"); raw != "" {
		kg, err := decimal.NewFromString(raw)
		if err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "weightKg must be a number")
			return
		}
		weight = kg
	}

	q, err := h.service.Quote(r.URL.Query().Get("method"), weight)
	switch {
	case errors.Is(err, domain.ErrUnknownMethod), errors.Is(err, application.ErrNegativeWeight):
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.log.Error("quote failed", "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "internal error")
	default:
		httpapi.WriteJSON(w, http.StatusOK, q)
	}
}
