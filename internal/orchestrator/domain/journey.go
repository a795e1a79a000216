package domain

import (
	"errors"
	"time"
)

var ErrJourneyNotFound = errors.New("journey not found")

type JourneyState string

const (
	StateStarted   JourneyState = "STARTED"
	StateReserved  JourneyState = "RESERVED"
	StatePaid      JourneyState = "PAID"
	StateShipped   JourneyState = "SHIPPED"
	StateFailed    JourneyState = "PAYMENT_FAILED"
	StateCancelled JourneyState = "CANCELLED"
)

// Terminal reports whether no further workflow event is expected.
func (s JourneyState) Terminal() bool {
	return s == StateShipped || s == StateFailed || s == StateCancelled
}

const (
	StepStockReleased   = "STOCK_RELEASED"
	StepPaymentRefunded = "PAYMENT_REFUNDED"
)

type Step struct {
	Name         string    `json:"name"`
	EventID      string    `json:"eventId,omitempty"`
	At           time.Time `json:"at"`
	Detail       string    `json:"detail,omitempty"`
	Compensation bool      `json:"compensation,omitempty"`
}

// Journey is the ordered record of what happened to one order.
type Journey struct {
	OrderID       int64        `json:"orderId"`
	CorrelationID string       `json:"correlationId"`
	State         JourneyState `json:"state"`
	Steps         []Step       `json:"steps"`
	StartedAt     time.Time    `json:"startedAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Record appends a step. A terminal state is never left again.
func (j *Journey) Record(step Step, next JourneyState) {
	if j.StartedAt.IsZero() {
		j.StartedAt = step.At
	}
	j.Steps = append(j.Steps, step)
	j.UpdatedAt = step.At
	if next != "" && !j.State.Terminal() {
		j.State = next
	}
}
