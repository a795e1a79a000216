package application

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	minAmount    = decimal.RequireFromString("0.01")
	maxAmount    = decimal.RequireFromString("99999.99")
)

// ValidationError lists the rejected request fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	v.RegisterStructValidation(validateAmount, PlaceOrderRequest{})
	return &RequestValidator{v: v}
}

func validateAmount(sl validator.StructLevel) {
	req := sl.Current().Interface().(PlaceOrderRequest)
	amount := req.TotalAmount
	switch {
	case amount.LessThan(minAmount):
		sl.ReportError(amount, "totalAmount", "TotalAmount", "amount_min", minAmount.String())
	case amount.GreaterThan(maxAmount):
		sl.ReportError(amount, "totalAmount", "TotalAmount", "amount_max", maxAmount.String())
	case amount.Exponent() < -2 && !amount.Equal(amount.Round(2)):
		sl.ReportError(amount, "totalAmount", "TotalAmount", "amount_scale", "2")
	}
}

func (rv *RequestValidator) Validate(req PlaceOrderRequest) error {
	err := rv.v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldName(fe)] = message(fe)
	}
	return out
}

// fieldName strips the struct prefix and keeps slice indices, e.g. productIds[2].
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "amount_min":
		return "must be at least " + fe.Param()
	case "amount_max":
		return "must not exceed " + fe.Param()
	case "amount_scale":
		return "must have at most 2 decimal places"
	}
	return "is invalid"
}
