package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnknownMethod = errors.New("unknown shipping method")

type Carrier struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

var Carriers = []Carrier{
	{Name: "FedEx", Prefix: "FDX"},
	{Name: "UPS", Prefix: "UPS"},
	{Name: "DHL", Prefix: "DHL"},
	{Name: "USPS", Prefix: "USP"},
	{Name: "Amazon Logistics", Prefix: "AMZ"},
}

const fallbackPrefix = "TRK"

// TrackingNumber formats a carrier-prefixed tracking code with an 8 digit suffix.
func TrackingNumber(carrier string, serial int) string {
	prefix := fallbackPrefix
	for _, c := range Carriers {
		if c.Name == carrier {
			prefix = c.Prefix
			break
		}
	}
	return fmt.Sprintf("%s%08d", prefix, serial%100_000_000)
}

// Method describes a delivery option. Transit days are counted from the ship date.
type Method struct {
	Name      string          `json:"name"`
	MinDays   int             `json:"minDays"`
	MaxDays   int             `json:"maxDays"`
	BaseCost  decimal.Decimal `json:"baseCost"`
	Expedited bool            `json:"expedited"`
}

var methods = []Method{
	{Name: "STANDARD", MinDays: 2, MaxDays: 5, BaseCost: decimal.RequireFromString("5.99")},
	{Name: "EXPRESS", MinDays: 1, MaxDays: 2, BaseCost: decimal.RequireFromString("12.99"), Expedited: true},
	{Name: "OVERNIGHT", MinDays: 1, MaxDays: 1, BaseCost: decimal.RequireFromString("24.99"), Expedited: true},
	{Name: "SAME_DAY", MinDays: 0, MaxDays: 0, BaseCost: decimal.RequireFromString("39.99"), Expedited: true},
}

var perKg = decimal.RequireFromString("2.50")

func Methods() []Method {
	return append([]Method(nil), methods...)
}

// LookupMethod resolves a method name; an empty name means STANDARD.
func LookupMethod(name string) (Method, error) {
	if name == "" {
		name = "STANDARD"
	}
	for _, m := range methods {
		if m.Name == name {
			return m, nil
		}
	}
	return Method{}, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Cost is the base price plus 2.50 for every kg above the first.
func (m Method) Cost(weightKg decimal.Decimal) decimal.Decimal {
	cost := m.BaseCost
	if extra := weightKg.Sub(decimal.NewFromInt(1)); extra.IsPositive() {
		cost = cost.Add(extra.Mul(perKg))
	}
	return cost.Round(2)
}

// EstimatedDelivery adds offsetDays transit days to the calendar date of shipped.
func EstimatedDelivery(shipped time.Time, offsetDays int) time.Time {
	y, mo, d := shipped.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, shipped.Location()).AddDate(0, 0, offsetDays)
}

// DeliveryDateLayout renders dates like "Jan 02, 2006" in customer messages.
const DeliveryDateLayout = "Jan 02, 2006"
