package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	invdomain "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	paydomain "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	shipdomain "github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/dmehra2102/order-fulfillment/pkg/latency"
)

const HandlerName = "notification"

var standardChannels = []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelPush}

// Service turns workflow events into customer messages. It never changes an order.
type Service struct {
	log     *slog.Logger
	orders  OrderReader
	senders map[domain.Channel]Sender
	history HistoryStore
	dedupe  idempotency.Checker
	delay   latency.Injector
	now     func() time.Time
}

func NewService(log *slog.Logger, orders OrderReader, history HistoryStore, dedupe idempotency.Checker, delay latency.Injector, senders ...Sender) *Service {
	if delay == nil {
		delay = latency.None{}
	}
	s := &Service{
		log:     log.With("component", "notification"),
		orders:  orders,
		senders: make(map[domain.Channel]Sender, len(senders)),
		history: history,
		dedupe:  dedupe,
		delay:   delay,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, snd := range senders {
		s.senders[snd.Channel()] = snd
	}
	return s
}

func (s *Service) Register(bus *eventbus.Bus) {
	for _, eventType := range []string{
		orderdomain.EventOrderCreated,
		invdomain.EventInventoryReserved,
		paydomain.EventPaymentProcessed,
		shipdomain.EventOrderShipped,
		orderdomain.EventOrderCancelled,
	} {
		bus.Subscribe(eventType, HandlerName, s.Handle)
	}
}

func (s *Service) Handle(ctx context.Context, ev eventbus.Event) error {
	meta := ev.Meta()
	if s.dedupe != nil {
		seen, err := s.dedupe.Seen(ctx, idempotency.EventKey(HandlerName, meta.EventID))
		if err != nil {
			s.log.Warn("notification dedupe unavailable", "event_id", meta.EventID, "err", err)
		} else if seen {
			s.log.Info("duplicate event skipped", "event_id", meta.EventID)
			return nil
		}
	}

	order, err := s.orders.Get(ctx, meta.OrderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", meta.OrderID, err)
	}

	msgs := compose(ev, order)
	if len(msgs) == 0 {
		return nil
	}
	var errs []error
	for _, msg := range msgs {
		if err := s.send(ctx, meta.EventID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendCustom delivers an operator-written message on one channel.
func (s *Service) SendCustom(ctx context.Context, orderID int64, channel domain.Channel, title, body string) (domain.Delivery, error) {
	if _, err := domain.ParseChannel(string(channel)); err != nil {
		return domain.Delivery{}, err
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Delivery{}, err
	}
	msg := address(order, channel)
	msg.Kind = domain.KindCustom
	msg.Title = title
	msg.Body = body
	err = s.send(ctx, "", msg)
	return domain.Delivery{Message: msg, SentAt: s.now(), Error: errString(err)}, err
}

func (s *Service) History(ctx context.Context, orderID int64) ([]domain.Delivery, error) {
	return s.history.ForOrder(ctx, orderID)
}

func (s *Service) send(ctx context.Context, eventID string, msg domain.Message) error {
	var err error
	if err = s.delay.Wait(ctx, latency.NotificationDispatch); err == nil {
		snd, ok := s.senders[msg.Channel]
		if !ok {
			err = fmt.Errorf("%w: %s", domain.ErrUnknownChannel, msg.Channel)
		} else {
			err = snd.Send(ctx, msg)
		}
	}
	if err != nil {
		s.log.Error("notification send failed", "order_id", msg.OrderID, "channel", msg.Channel, "kind", msg.Kind, "err", err)
	}

	d := domain.Delivery{Message: msg, EventID: eventID, SentAt: s.now(), Error: errString(err)}
	if herr := s.history.Append(ctx, d); herr != nil {
		s.log.Warn("notification history append failed", "order_id", msg.OrderID, "err", herr)
	}
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
