// Package order implements the order orchestrator: atomic creation and
// cancellation of orders composed with the stock operations under one
// transaction boundary.
package order

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/apperrors"
	"github.com/mbilalsh/storefront-api/models"
	"github.com/mbilalsh/storefront-api/services/gate"
	"github.com/mbilalsh/storefront-api/services/notify"
	"github.com/mbilalsh/storefront-api/services/txn"
)

// StockOps is the slice of the inventory service the orchestrator needs.
type StockOps interface {
	IsInStock(db *gorm.DB, productID uint, qty int) (bool, error)
	Deduct(db *gorm.DB, productID uint, qty int) bool
	Restock(db *gorm.DB, productID uint, qty int) bool
}

type Service struct {
	gate     *gate.Gate // order-creation gate, independent of the stock gate
	stock    StockOps
	carts    CartStore
	notifier notify.Sender
	log      *zap.SugaredLogger

	// OnOrderChanged, when set, receives every persisted order change
	// after commit. Used by the live order feed.
	OnOrderChanged func(models.Order)
}

func NewService(orderGate *gate.Gate, stock StockOps, carts CartStore, notifier notify.Sender, log *zap.SugaredLogger) *Service {
	return &Service{
		gate:     orderGate,
		stock:    stock,
		carts:    carts,
		notifier: notifier,
		log:      log,
	}
}

type ShippingInfo struct {
	Name   string `json:"name" binding:"required"`
	Street string `json:"street" binding:"required"`
	City   string `json:"city" binding:"required"`
	Postal string `json:"postal"`
}

type CreateOrderRequest struct {
	UserID        string // authenticated buyer, mutually exclusive with SessionID
	SessionID     string // anonymous buyer
	PaymentMethod string
	Shipping      ShippingInfo
}

func (r *CreateOrderRequest) buyerID() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.SessionID
}

// newSuffix produces the random tail of an order number. Package-level
// so tests can force collisions.
var newSuffix = func() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// generateOrderNumber builds a human-readable order number and re-checks
// it against existing orders, regenerating on a hit. The suffix is
// random, so a handful of attempts is plenty.
func generateOrderNumber(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		number := "ORD-" + time.Now().Format("20060102") + "-" + newSuffix()

		var count int64
		if err := tx.Model(&models.Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", errors.New("could not generate a unique order number")
}

// CreateOrder turns the buyer's cart into a persisted order. The whole
// workflow runs under the order-creation gate and inside one
// transaction: availability check across every line (collecting all
// shortfalls before failing), order header, item snapshots, stock
// deduction per line, cart clearing. Any failure rolls the whole thing
// back. Loyalty-tier update and notifications run after commit and are
// best-effort; when the call joins a caller-owned transaction they are
// skipped, since only the owner knows when the commit lands.
func (s *Service) CreateOrder(db *gorm.DB, req CreateOrderRequest) (*models.Order, error) {
	if req.buyerID() == "" {
		return nil, &apperrors.ValidationError{Field: "buyer", Reason: "a user id or session id is required"}
	}
	if req.PaymentMethod == "" {
		return nil, &apperrors.ValidationError{Field: "payment_method", Reason: "must not be empty"}
	}

	owned := !txn.InTransaction(db)

	var order *models.Order
	err := s.gate.Do(func() error {
		return txn.WithTransaction(db, func(tx *gorm.DB) error {
			items, err := s.carts.GetItems(tx, req.buyerID())
			if err != nil {
				return apperrors.Persistence("load cart", err)
			}
			if len(items) == 0 {
				return apperrors.ErrEmptyCart
			}

			// check every line so the error can name all short products
			var short []string
			for _, item := range items {
				inStock, err := s.stock.IsInStock(tx, item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				if !inStock {
					short = append(short, item.ProductName)
				}
			}
			if len(short) > 0 {
				return &apperrors.InsufficientInventoryError{Products: short}
			}

			var subtotal float64
			for _, item := range items {
				subtotal += item.UnitPrice * float64(item.Quantity)
			}
			discountCode, discountAmount, err := s.carts.AppliedDiscount(tx, req.buyerID())
			if err != nil {
				return apperrors.Persistence("load discount", err)
			}

			number, err := generateOrderNumber(tx)
			if err != nil {
				return apperrors.Persistence("generate order number", err)
			}

			order = &models.Order{
				OrderNumber:    number,
				UserID:         req.UserID,
				SessionID:      req.SessionID,
				TotalAmount:    subtotal - discountAmount,
				DiscountAmount: discountAmount,
				DiscountCode:   discountCode,
				Status:         models.OrderStatusPending,
				PaymentStatus:  models.PaymentStatusPending,
				PaymentMethod:  req.PaymentMethod,
				ShippingName:   req.Shipping.Name,
				ShippingStreet: req.Shipping.Street,
				ShippingCity:   req.Shipping.City,
				ShippingPostal: req.Shipping.Postal,
			}
			if err := tx.Create(order).Error; err != nil {
				return apperrors.Persistence("create order", err)
			}

			for _, item := range items {
				orderItem := models.OrderItem{
					OrderID:     order.ID,
					ProductID:   item.ProductID,
					ProductName: item.ProductName,
					UnitPrice:   item.UnitPrice,
					Quantity:    item.Quantity,
				}
				if err := tx.Create(&orderItem).Error; err != nil {
					return apperrors.Persistence("create order item", err)
				}
				if !s.stock.Deduct(tx, item.ProductID, item.Quantity) {
					// abort the whole workflow; the rollback undoes the
					// header, the items and every earlier deduction
					return &apperrors.InsufficientInventoryError{Products: []string{item.ProductName}}
				}
				order.Items = append(order.Items, orderItem)
			}

			if err := s.carts.ClearCart(tx, req.buyerID()); err != nil {
				return apperrors.Persistence("clear cart", err)
			}
			if err := s.carts.ClearAppliedDiscount(tx, req.buyerID()); err != nil {
				return apperrors.Persistence("clear discount", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if owned {
		s.updateLoyaltyTier(db, req.UserID, order.TotalAmount)
		go s.notifier.SendOrderConfirmation(order.ID)
		s.broadcast(*order)
	}

	s.log.Infow("order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"total", order.TotalAmount,
	)
	return order, nil
}

// updateLoyaltyTier bumps the buyer's lifetime spend and tier after a
// successful order. Failures here are logged and never fail the order.
func (s *Service) updateLoyaltyTier(db *gorm.DB, userID string, amount float64) {
	if userID == "" {
		return
	}
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		s.log.Warnw("loyalty update skipped", "user_id", userID, "error", err)
		return
	}
	user.LifetimeSpend += amount
	user.LoyaltyTier = models.LoyaltyTierFor(user.LifetimeSpend)
	if err := db.Save(&user).Error; err != nil {
		s.log.Warnw("loyalty update failed", "user_id", userID, "error", err)
	}
}

func (s *Service) broadcast(order models.Order) {
	if s.OnOrderChanged != nil {
		s.OnOrderChanged(order)
	}
}

// CancelOrder cancels a pending or processing order and restocks its
// items. When callerID is non-empty the order must belong to that
// caller. Restocking is best-effort: a failed restock is logged and
// leaves a drift that a later fix pass heals.
func (s *Service) CancelOrder(db *gorm.DB, orderID uint, callerID string) bool {
	cancelled := false
	var snapshot models.Order
	err := txn.WithTransaction(db, func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if callerID != "" && order.BuyerID() != callerID {
			return nil
		}
		if !order.Status.Cancellable() {
			return nil
		}

		order.Status = models.OrderStatusCancelled
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		for _, item := range order.Items {
			if !s.stock.Restock(tx, item.ProductID, item.Quantity) {
				s.log.Warnw("restock on cancel failed",
					"order_id", order.ID,
					"product_id", item.ProductID,
					"qty", item.Quantity,
				)
			}
		}
		cancelled = true
		snapshot = order
		return nil
	})
	if err != nil {
		s.log.Errorw("order cancellation failed", "order_id", orderID, "error", err)
		return false
	}
	if cancelled {
		go s.notifier.SendOrderStatusChanged(orderID)
		s.broadcast(snapshot)
	}
	return cancelled
}

// UpdateOrderStatus moves an order along the status machine.
func (s *Service) UpdateOrderStatus(db *gorm.DB, orderID uint, next models.OrderStatus) error {
	var snapshot models.Order
	err := txn.WithTransaction(db, func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.Persistence("load order", err)
		}
		if !order.Status.CanTransitionTo(next) {
			return &apperrors.ValidationError{
				Field:  "status",
				Reason: "cannot transition from " + string(order.Status) + " to " + string(next),
			}
		}
		order.Status = next
		if err := tx.Save(&order).Error; err != nil {
			return apperrors.Persistence("update order status", err)
		}
		snapshot = order
		return nil
	})
	if err != nil {
		return err
	}
	go s.notifier.SendOrderStatusChanged(orderID)
	s.broadcast(snapshot)
	return nil
}

// UpdatePaymentStatus moves an order along the payment machine. A
// completed payment on a still-pending order advances the order to
// processing in the same transaction.
func (s *Service) UpdatePaymentStatus(db *gorm.DB, orderID uint, next models.PaymentStatus) error {
	var snapshot models.Order
	err := txn.WithTransaction(db, func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.Persistence("load order", err)
		}
		if !order.PaymentStatus.CanTransitionTo(next) {
			return &apperrors.ValidationError{
				Field:  "payment_status",
				Reason: "cannot transition from " + string(order.PaymentStatus) + " to " + string(next),
			}
		}
		order.PaymentStatus = next
		if next == models.PaymentStatusCompleted && order.Status == models.OrderStatusPending {
			order.Status = models.OrderStatusProcessing
		}
		if err := tx.Save(&order).Error; err != nil {
			return apperrors.Persistence("update payment status", err)
		}
		snapshot = order
		return nil
	})
	if err != nil {
		return err
	}
	go s.notifier.SendOrderStatusChanged(orderID)
	s.broadcast(snapshot)
	return nil
}
