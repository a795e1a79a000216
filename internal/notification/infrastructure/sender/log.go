package sender

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
)

// Log writes messages to the structured log instead of a real provider.
type Log struct {
	log     *slog.Logger
	channel domain.Channel
}

func NewLog(log *slog.Logger, channel domain.Channel) *Log {
	return &Log{log: log.With("component", "sender", "channel", string(channel)), channel: channel}
}

// All returns a log sender for every supported channel.
func All(log *slog.Logger) []*Log {
	return []*Log{
		NewLog(log, domain.ChannelEmail),
		NewLog(log, domain.ChannelSMS),
		NewLog(log, domain.ChannelPush),
		NewLog(log, domain.ChannelDeepLink),
	}
}

func (l *Log) Channel() domain.Channel { return l.channel }

func (l *Log) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	attrs := []any{
		"order_id", msg.OrderID,
		"kind", msg.Kind,
		"recipient", msg.Recipient,
		"title", msg.Title,
		"body", msg.Body,
	}
	if msg.Link != "" {
		attrs = append(attrs, "link", msg.Link)
	}
	l.log.InfoContext(ctx, "notification sent", attrs...)
	return nil
}
