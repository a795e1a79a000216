package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrNotRefundable   = errors.New("payment is not refundable")
)

type Status string

const (
	StatusAuthorized Status = "AUTHORIZED"
	StatusDeclined   Status = "DECLINED"
	StatusRefunded   Status = "REFUNDED"
)

// Payment is the ledger entry of one order's authorization attempt.
type Payment struct {
	OrderID       int64
	TransactionID string
	Method        string
	Amount        decimal.Decimal
	Status        Status
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Authorization is the gateway's answer. A decline is a normal outcome, not an error.
type Authorization struct {
	Approved      bool
	TransactionID string
	DeclineReason string
}

func NewTransactionID() string {
	return "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
