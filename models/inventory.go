package models

import "time"

// Defaults applied when an inventory record is created lazily on the
// first stock check or mutation for a product.
const (
	DefaultMinimumStockLevel = 5
	DefaultMaximumStockLevel = 1000
)

// InventoryRecord is the authoritative stock quantity per product.
// Product.Stock is a denormalized copy of Quantity and the two are
// reconciled whenever they are loaded together.
type InventoryRecord struct {
	ID                uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID         uint       `gorm:"uniqueIndex;not null" json:"product_id"`
	Quantity          int        `gorm:"not null;default:0" json:"quantity"`
	MinimumStockLevel int        `json:"minimum_stock_level"`
	MaximumStockLevel int        `json:"maximum_stock_level"`
	LastRestockDate   *time.Time `json:"last_restock_date"`
	LastStockOutDate  *time.Time `json:"last_stock_out_date"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
