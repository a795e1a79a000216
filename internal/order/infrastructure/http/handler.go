package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	notifdomain "github.com/dmehra2102/order-fulfillment/internal/notification/domain"
	orchdomain "github.com/dmehra2102/order-fulfillment/internal/orchestrator/domain"
	"github.com/dmehra2102/order-fulfillment/internal/order/application"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/internal/platform/httpapi"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Notifications interface {
	History(ctx context.Context, orderID int64) ([]notifdomain.Delivery, error)
	SendCustom(ctx context.Context, orderID int64, channel notifdomain.Channel, title, body string) (notifdomain.Delivery, error)
}

type Journeys interface {
	Journey(ctx context.Context, orderID int64) (orchdomain.Journey, error)
}

type Handler struct {
	log           *slog.Logger
	service       *application.Service
	notifications Notifications
	journeys      Journeys
	tracer        trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, notifications Notifications, journeys Journeys) *Handler {
	return &Handler{
		log:           log.With("component", "order-http"),
		service:       service,
		notifications: notifications,
		journeys:      journeys,
		tracer:        otel.Tracer("order-http"),
	}
}

type cancelReq struct {
	Reason string `json:"reason"`
}

type cancelResp struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusReq struct {
	Status string `json:"status"`
}

type trackingReq struct {
	TrackingNumber string `json:"trackingNumber"`
}

type notifyReq struct {
	Channel string `json:"channel"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/place-order", h.placeOrder)
	r.Get("/statistics", h.statistics)
	r.Get("/user/{userId}", h.listByUser)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getOrder)
		r.Get("/status", h.getStatus)
		r.Put("/status", h.updateStatus)
		r.Put("/tracking", h.attachTracking)
		r.Post("/cancel", h.cancel)
		r.Get("/notifications", h.notificationHistory)
		r.Post("/notifications", h.sendNotification)
		r.Get("/journey", h.journey)
	})
	return r
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	var req application.PlaceOrderRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Order placement failed: invalid request body: "+err.Error())
		return
	}
	span.SetAttributes(attribute.Int64("user.id", req.UserID), attribute.Int("order.products", len(req.ProductIDs)))

	conf, err := h.service.PlaceOrder(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		var verr *application.ValidationError
		if errors.As(err, &verr) {
			httpapi.WriteError(w, http.StatusBadRequest, "Order placement failed: "+verr.Error())
			return
		}
		h.log.Error("place order failed", "user_id", req.UserID, "err", err)
		httpapi.WriteError(w, http.StatusBadRequest, "Order placement failed: "+err.Error())
		return
	}
	span.SetAttributes(attribute.Int64("order.id", conf.OrderID))
	httpapi.WriteJSON(w, http.StatusCreated, conf)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id, ok := h.orderID(w, r, span)
	if !ok {
		return
	}
	o, err := h.service.GetOrder(ctx, id)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrderStatus")
	defer span.End()

	id, ok := h.orderID(w, r, span)
	if !ok {
		return
	}
	st, err := h.service.GetStatus(ctx, id)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListUserOrders")
	defer span.End()

	userID, err := httpapi.PathID(r, "userId")
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	orders, err := h.service.ListByUser(ctx, userID)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	id, ok := h.orderID(w, r, span)
	if !ok {
		return
	}
	var req statusReq
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := h.service.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) attachTracking(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AttachTrackingNumber")
	defer span.End()

	id, ok := h.orderID(w, r, span)
	if !ok {
		return
	}
	var req trackingReq
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := h.service.AttachTrackingNumber(ctx, id, req.TrackingNumber)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	id, ok := h.orderID(w, r, span)
	if !ok {
		return
	}
	var req cancelReq
	if r.ContentLength != 0 {
		if err := httpapi.Decode(w, r, &req); err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	_, err := h.service.Cancel(ctx, id, req.Reason)
	switch {
	case errors.Is(err, domain.ErrNotCancellable):
		httpapi.WriteJSON(w, http.StatusBadRequest, cancelResp{
			OrderID: id,
			Status:  "CANCELLATION_FAILED",
			Message: "Order cannot be cancelled at this stage",
		})
	case err != nil:
		h.fail(w, span, err)
	default:
		httpapi.WriteJSON(w, http.StatusOK, cancelResp{
			OrderID: id,
			Status:  string(domain.StatusCancelled),
			Message: "Order cancelled successfully",
		})
	}
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "OrderStatistics")
	defer span.End()

	stats, err := h.service.Statistics(ctx)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) notificationHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "NotificationHistory")
	defer span.End()

	id, ok := h.orderID(w, r, span)
	if !ok {
		return
	}
	if _, err := h.service.GetOrder(ctx, id); err != nil {
		h.fail(w, span, err)
		return
	}
	history, err := h.notifications.History(ctx, id)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) sendNotification(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SendNotification")
	defer span.End()

	id, ok := h.orderID(w, r, span)
	if !ok {
		return
	}
	var req notifyReq
	if err := httpapi.Decode(w, r, &req); err != nil || req.Title == "" || req.Body == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "channel, title and body are required")
		return
	}
	d, err := h.notifications.SendCustom(ctx, id, notifdomain.Channel(req.Channel), req.Title, req.Body)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusAccepted, d)
}

func (h *Handler) journey(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "OrderJourney")
	defer span.End()

	id, ok := h.orderID(w, r, span)
	if !ok {
		return
	}
	j, err := h.journeys.Journey(ctx, id)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, j)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request, span trace.Span) (int64, bool) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	span.SetAttributes(attribute.Int64("order.id", id))
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())

	var verr *application.ValidationError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, orchdomain.ErrJourneyNotFound):
		httpapi.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &verr),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, application.ErrTrackingRequired),
		errors.Is(err, notifdomain.ErrUnknownChannel):
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", "err", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
