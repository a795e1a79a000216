package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservationFail(t *testing.T) {
	var r Reservation
	assert.True(t, r.OK())

	r.Reserved = append(r.Reserved, 1)
	r.Fail(2, FailureStore, errors.New("conn reset"))

	assert.False(t, r.OK())
	assert.Equal(t, int64(2), r.FailedProductID)
	assert.Equal(t, FailureStore, r.Failure)
	assert.EqualError(t, r.Err, "conn reset")
	assert.Equal(t, []int64{1}, r.Reserved)
}

func TestProductInStock(t *testing.T) {
	assert.True(t, Product{StockQuantity: 1}.InStock())
	assert.False(t, Product{}.InStock())
}
