package domain

// ReserveOutcome is the result of taking one unit of a product.
type ReserveOutcome string

const (
	Reserved   ReserveOutcome = "RESERVED"
	OutOfStock ReserveOutcome = "OUT_OF_STOCK"
	NotFound   ReserveOutcome = "NOT_FOUND"
)

type FailureReason string

const (
	FailureOutOfStock     FailureReason = "OUT_OF_STOCK"
	FailureProductMissing FailureReason = "PRODUCT_NOT_FOUND"
	FailureStore          FailureReason = "STORE_ERROR"
)

// Reservation accumulates the units taken for one order. Reserved keeps one
// entry per unit, in reservation order.
type Reservation struct {
	Reserved        []int64
	Failure         FailureReason
	FailedProductID int64
	Err             error
}

func (r Reservation) OK() bool { return r.Failure == "" }

func (r *Reservation) Fail(productID int64, reason FailureReason, err error) {
	r.FailedProductID = productID
	r.Failure = reason
	r.Err = err
}
