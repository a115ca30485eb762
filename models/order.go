package models

import (
	"errors"
	"strings"
	"time"
)

type OrderStatus string
type PaymentStatus string

const (
	// Order statuses
	OrderStatusPending    OrderStatus = "pending"    // Order placed, awaiting payment
	OrderStatusProcessing OrderStatus = "processing" // Payment completed, being prepared
	OrderStatusDelivered  OrderStatus = "delivered"  // Customer received the items
	OrderStatusCancelled  OrderStatus = "cancelled"  // Cancelled before delivery
	OrderStatusRefunded   OrderStatus = "refunded"   // Money returned after processing

	// Payment statuses
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// orderTransitions lists the allowed next statuses per current status.
// Delivered, Cancelled and Refunded are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// ParseOrderStatus maps a request string to an OrderStatus.
func ParseOrderStatus(status string) (OrderStatus, error) {
	switch OrderStatus(strings.ToLower(status)) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusProcessing:
		return OrderStatusProcessing, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	case OrderStatusRefunded:
		return OrderStatusRefunded, nil
	default:
		return "", errors.New("invalid order status")
	}
}

// ParsePaymentStatus maps a request string to a PaymentStatus.
func ParsePaymentStatus(status string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(status)) {
	case PaymentStatusPending:
		return PaymentStatusPending, nil
	case PaymentStatusCompleted:
		return PaymentStatusCompleted, nil
	case PaymentStatusFailed:
		return PaymentStatusFailed, nil
	case PaymentStatusRefunded:
		return PaymentStatusRefunded, nil
	default:
		return "", errors.New("invalid payment status")
	}
}

type Order struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	OrderNumber    string        `gorm:"index;not null" json:"order_number"`
	UserID         string        `gorm:"index" json:"user_id"`    // authenticated buyer, empty for guests
	SessionID      string        `gorm:"index" json:"session_id"` // anonymous buyer, empty for users
	Items          []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount    float64       `json:"total_amount"`
	DiscountAmount float64       `json:"discount_amount"`
	DiscountCode   string        `json:"discount_code"`
	Status         OrderStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentStatus  PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	PaymentMethod  string        `json:"payment_method"` // e.g. "card", "cod"
	ShippingName   string        `json:"shipping_name"`
	ShippingStreet string        `json:"shipping_street"`
	ShippingCity   string        `json:"shipping_city"`
	ShippingPostal string        `json:"shipping_postal"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// BuyerID returns whichever identity placed the order.
func (o *Order) BuyerID() string {
	if o.UserID != "" {
		return o.UserID
	}
	return o.SessionID
}

// OrderItem snapshots name and unit price at order time; the snapshot
// never changes even if the product is later edited.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"index" json:"order_id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}
