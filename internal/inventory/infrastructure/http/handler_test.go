package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/application"
	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/dmehra2102/order-fulfillment/internal/inventory/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler() http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.NewRepository(
		domain.Product{ID: 1, Name: "Desk Lamp", Price: decimal.RequireFromString("19.99"), StockQuantity: 4},
		domain.Product{ID: 2, Name: "Notebook", Price: decimal.RequireFromString("3.50"), StockQuantity: 0},
	)
	svc := application.NewService(log, repo, nil, nil, nil)
	return NewHandler(log, svc).Routes()
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestListAndGet(t *testing.T) {
	h := newHandler()

	rec := serve(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "Desk Lamp", products[0].Name)

	rec = serve(h, http.MethodGet, "/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "3.5", p.Price.String())

	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/9", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/x", "").Code)
}

func TestAvailability(t *testing.T) {
	h := newHandler()

	rec := serve(h, http.MethodGet, "/2/availability", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"productId":2,"inStock":false,"stockQuantity":0}`, rec.Body.String())
}

func TestSetStock(t *testing.T) {
	h := newHandler()

	rec := serve(h, http.MethodPut, "/2/stock", `{"stockQuantity": 12}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 12, p.StockQuantity)

	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodPut, "/2/stock", `{"stockQuantity": -1}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodPut, "/2/stock", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodPut, "/9/stock", `{"stockQuantity": 1}`).Code)
}
