package order

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/models"
)

// CartStore is the cart collaborator consumed during order creation.
type CartStore interface {
	GetItems(db *gorm.DB, ownerID string) ([]models.CartItem, error)
	GetTotal(db *gorm.DB, ownerID string) (float64, error)
	AppliedDiscount(db *gorm.DB, ownerID string) (code string, amount float64, err error)
	ClearCart(db *gorm.DB, ownerID string) error
	ClearAppliedDiscount(db *gorm.DB, ownerID string) error
}

// GormCartStore reads the cart tables directly; one cart per owner id.
type GormCartStore struct{}

func (GormCartStore) getCart(db *gorm.DB, ownerID string) (*models.Cart, error) {
	var cart models.Cart
	if err := db.Where("owner_id = ?", ownerID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s GormCartStore) GetItems(db *gorm.DB, ownerID string) ([]models.CartItem, error) {
	cart, err := s.getCart(db, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []models.CartItem
	if err := db.Where("cart_id = ?", cart.CartID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s GormCartStore) GetTotal(db *gorm.DB, ownerID string) (float64, error) {
	items, err := s.GetItems(db, ownerID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total, nil
}

func (s GormCartStore) AppliedDiscount(db *gorm.DB, ownerID string) (string, float64, error) {
	cart, err := s.getCart(db, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	return cart.DiscountCode, cart.DiscountAmount, nil
}

func (s GormCartStore) ClearCart(db *gorm.DB, ownerID string) error {
	cart, err := s.getCart(db, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return db.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error
}

func (s GormCartStore) ClearAppliedDiscount(db *gorm.DB, ownerID string) error {
	cart, err := s.getCart(db, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	cart.DiscountCode = ""
	cart.DiscountAmount = 0
	return db.Save(cart).Error
}
