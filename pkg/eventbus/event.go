package eventbus

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a value published on the bus. Concrete events embed Envelope.
type Event interface {
	EventType() string
	Meta() Envelope
}

type Envelope struct {
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId"`
	OccurredAt    time.Time `json:"timestamp"`
	OrderID       int64     `json:"orderId"`
	UserID        int64     `json:"userId"`
}

func (e Envelope) Meta() Envelope { return e }

// NewEnvelope stamps a fresh event id of the form <TYPE>_XXXXXXXX. An empty
// correlation id starts a new journey.
func NewEnvelope(eventType string, orderID, userID int64, correlationID string) Envelope {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return Envelope{
		EventID:       eventType + "_" + ShortID(),
		CorrelationID: correlationID,
		OccurredAt:    time.Now().UTC(),
		OrderID:       orderID,
		UserID:        userID,
	}
}

// ShortID returns the first 8 hex characters of a random UUID, upper-cased.
func ShortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
