package models

import "time"

type Cart struct {
	CartID         uint       `gorm:"primaryKey" json:"cart_id"`
	OwnerID        string     `gorm:"uniqueIndex" json:"owner_id"` // user id or guest session id, one cart per owner
	Items          []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	DiscountCode   string     `json:"discount_code"`
	DiscountAmount float64    `json:"discount_amount"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CartID      uint      `gorm:"index" json:"cart_id"`
	ProductID   uint      `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   float64   `json:"unit_price"` // price at the time the item was added
	Quantity    int       `json:"quantity"`
	AddedAt     time.Time `json:"added_at"`
}
