// Package inventory owns the stock ledger. Every operation acquires the
// process-wide stock gate, joins the ambient transaction of its caller,
// and heals any drift between the product counter and the ledger before
// acting.
package inventory

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/apperrors"
	"github.com/mbilalsh/storefront-api/models"
	"github.com/mbilalsh/storefront-api/services/gate"
	"github.com/mbilalsh/storefront-api/services/notify"
	"github.com/mbilalsh/storefront-api/services/txn"
)

type Service struct {
	gate     *gate.Gate
	notifier notify.Sender
	log      *zap.SugaredLogger
}

func NewService(stockGate *gate.Gate, notifier notify.Sender, log *zap.SugaredLogger) *Service {
	return &Service{
		gate:     stockGate,
		notifier: notifier,
		log:      log,
	}
}

// loadLedger fetches a product together with its inventory record,
// creating the record from the product counter when missing and healing
// drift by taking the larger of the two quantities. A transient drift
// must never read as a false stock-out, so reconciliation favours
// availability.
//
// Must be called with the stock gate held, inside a transaction.
func (s *Service) loadLedger(tx *gorm.DB, productID uint) (*models.Product, *models.InventoryRecord, error) {
	var product models.Product
	if err := tx.First(&product, "id = ?", productID).Error; err != nil {
		return nil, nil, err
	}

	var record models.InventoryRecord
	err := tx.Where("product_id = ?", productID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.InventoryRecord{
			ProductID:         productID,
			Quantity:          product.Stock,
			MinimumStockLevel: models.DefaultMinimumStockLevel,
			MaximumStockLevel: models.DefaultMaximumStockLevel,
			UpdatedAt:         time.Now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, nil, err
		}
		return &product, &record, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if record.Quantity != product.Stock {
		s.log.Warnw("stock drift detected",
			"product_id", productID,
			"counter", product.Stock,
			"ledger", record.Quantity,
		)
		if product.Stock > record.Quantity {
			record.Quantity = product.Stock
		}
		product.Stock = record.Quantity
		record.UpdatedAt = time.Now()
		if err := tx.Save(&record).Error; err != nil {
			return nil, nil, err
		}
		if err := tx.Save(&product).Error; err != nil {
			return nil, nil, err
		}
	}

	return &product, &record, nil
}

// persist writes the ledger and mirrors its quantity into the product
// counter so the two stay equal after every mutation.
func (s *Service) persist(tx *gorm.DB, product *models.Product, record *models.InventoryRecord) error {
	record.UpdatedAt = time.Now()
	if err := tx.Save(record).Error; err != nil {
		return err
	}
	product.Stock = record.Quantity
	return tx.Save(product).Error
}

// IsInStock reports whether at least qty units are available. A missing
// product is simply not in stock; a missing ledger row is created from
// the product counter before comparing.
func (s *Service) IsInStock(db *gorm.DB, productID uint, qty int) (bool, error) {
	if qty <= 0 {
		qty = 1
	}
	inStock := false
	err := s.gate.Do(func() error {
		return txn.WithTransaction(db, func(tx *gorm.DB) error {
			_, record, err := s.loadLedger(tx, productID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return apperrors.Persistence("stock check", err)
			}
			inStock = record.Quantity >= qty
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	return inStock, nil
}

// Deduct removes qty units from a product's stock. It returns false when
// the product is unknown, the quantity is short, or persistence fails;
// it never raises to its caller. When nested inside an open transaction
// a false return after partial writes is undone by the owner's rollback.
func (s *Service) Deduct(db *gorm.DB, productID uint, qty int) bool {
	if qty <= 0 {
		return false
	}
	deducted := false
	err := s.gate.Do(func() error {
		return txn.WithTransaction(db, func(tx *gorm.DB) error {
			product, record, err := s.loadLedger(tx, productID)
			if err != nil {
				return err
			}
			if record.Quantity < qty {
				return nil
			}
			record.Quantity -= qty
			if record.Quantity == 0 {
				now := time.Now()
				record.LastStockOutDate = &now
			}
			if err := s.persist(tx, product, record); err != nil {
				return err
			}
			deducted = true
			return nil
		})
	})
	if err != nil {
		s.log.Errorw("stock deduction failed",
			"product_id", productID,
			"qty", qty,
			"error", err,
		)
		return false
	}
	return deducted
}

// Restock adds qty units to a product's stock and stamps the restock
// date. Same degradation contract as Deduct: failures are logged and
// reported as false.
func (s *Service) Restock(db *gorm.DB, productID uint, qty int) bool {
	if qty <= 0 {
		return false
	}
	restocked := false
	err := s.gate.Do(func() error {
		return txn.WithTransaction(db, func(tx *gorm.DB) error {
			product, record, err := s.loadLedger(tx, productID)
			if err != nil {
				return err
			}
			record.Quantity += qty
			now := time.Now()
			record.LastRestockDate = &now
			if err := s.persist(tx, product, record); err != nil {
				return err
			}
			restocked = true
			return nil
		})
	})
	if err != nil {
		s.log.Errorw("restock failed",
			"product_id", productID,
			"qty", qty,
			"error", err,
		)
		return false
	}
	return restocked
}

// UpdateAbsolute sets the ledger quantity directly, stamps the stock-out
// date when the new value is zero, and fires a low-stock alert when it
// is at or below the minimum level.
func (s *Service) UpdateAbsolute(db *gorm.DB, productID uint, newQty int) bool {
	if newQty < 0 {
		return false
	}
	var lowStock bool
	err := s.gate.Do(func() error {
		return txn.WithTransaction(db, func(tx *gorm.DB) error {
			product, record, err := s.loadLedger(tx, productID)
			if err != nil {
				return err
			}
			record.Quantity = newQty
			if newQty == 0 {
				now := time.Now()
				record.LastStockOutDate = &now
			}
			lowStock = newQty <= record.MinimumStockLevel
			return s.persist(tx, product, record)
		})
	})
	if err != nil {
		s.log.Errorw("stock update failed",
			"product_id", productID,
			"qty", newQty,
			"error", err,
		)
		return false
	}
	if lowStock {
		go s.notifier.SendLowStockAlert(productID)
	}
	return true
}
