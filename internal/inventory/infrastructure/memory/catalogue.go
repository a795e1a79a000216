package memory

import (
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/shopspring/decimal"
)

// Catalogue mirrors the products seeded by the SQL migrations.
func Catalogue() []domain.Product {
	now := time.Now().UTC()
	return []domain.Product{
		{ID: 1, Name: "Wireless Mouse", Description: "Ergonomic 2.4GHz mouse", Price: decimal.RequireFromString("24.99"), StockQuantity: 120, UpdatedAt: now},
		{ID: 2, Name: "Mechanical Keyboard", Description: "Tenkeyless, brown switches", Price: decimal.RequireFromString("89.00"), StockQuantity: 45, UpdatedAt: now},
		{ID: 3, Name: "USB-C Hub", Description: "7-in-1 aluminium hub", Price: decimal.RequireFromString("39.50"), StockQuantity: 80, UpdatedAt: now},
		{ID: 4, Name: `27" Monitor`, Description: "1440p IPS panel", Price: decimal.RequireFromString("279.99"), StockQuantity: 12, UpdatedAt: now},
		{ID: 5, Name: "Laptop Stand", Description: "Adjustable height", Price: decimal.RequireFromString("32.00"), StockQuantity: 0, UpdatedAt: now},
	}
}
