package inventory

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/models"
	"github.com/mbilalsh/storefront-api/services/txn"
)

// Batch reconciliation failure sentinel. Both bulk passes report how
// many rows they touched, or -1 when the pass could not complete.
const ReconcileFailed = -1

// SynchronizeAll copies the ledger quantity into every product counter,
// creating a missing ledger row from the product's counter. Runs in its
// own transaction under the stock gate so it cannot race a live
// deduction. Returns the number of rows touched or -1 on failure.
func (s *Service) SynchronizeAll(db *gorm.DB) int {
	touched := 0
	err := s.gate.Do(func() error {
		return txn.WithTransaction(db, func(tx *gorm.DB) error {
			var products []models.Product
			if err := tx.Find(&products).Error; err != nil {
				return err
			}
			for i := range products {
				product := &products[i]

				var record models.InventoryRecord
				err := tx.Where("product_id = ?", product.ID).First(&record).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					record = models.InventoryRecord{
						ProductID:         product.ID,
						Quantity:          product.Stock,
						MinimumStockLevel: models.DefaultMinimumStockLevel,
						MaximumStockLevel: models.DefaultMaximumStockLevel,
					}
					if err := tx.Create(&record).Error; err != nil {
						return err
					}
					touched++
					continue
				}
				if err != nil {
					return err
				}

				if product.Stock != record.Quantity {
					product.Stock = record.Quantity
					if err := tx.Save(product).Error; err != nil {
						return err
					}
					touched++
				}
			}
			return nil
		})
	})
	if err != nil {
		s.log.Errorw("inventory synchronization failed", "error", err)
		return ReconcileFailed
	}
	s.log.Infow("inventory synchronized", "rows", touched)
	return touched
}

// FixAll runs a bidirectional max-reconciliation across every
// (product, ledger) pair and backfills missing ledger rows. Returns the
// number of pairs fixed or -1 on failure.
func (s *Service) FixAll(db *gorm.DB) int {
	fixed := 0
	err := s.gate.Do(func() error {
		return txn.WithTransaction(db, func(tx *gorm.DB) error {
			var products []models.Product
			if err := tx.Find(&products).Error; err != nil {
				return err
			}
			for i := range products {
				product := &products[i]

				var record models.InventoryRecord
				err := tx.Where("product_id = ?", product.ID).First(&record).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					record = models.InventoryRecord{
						ProductID:         product.ID,
						Quantity:          product.Stock,
						MinimumStockLevel: models.DefaultMinimumStockLevel,
						MaximumStockLevel: models.DefaultMaximumStockLevel,
					}
					if err := tx.Create(&record).Error; err != nil {
						return err
					}
					fixed++
					continue
				}
				if err != nil {
					return err
				}

				if product.Stock == record.Quantity {
					continue
				}
				// both sides converge on the larger value
				if product.Stock > record.Quantity {
					record.Quantity = product.Stock
				} else {
					product.Stock = record.Quantity
				}
				if err := tx.Save(&record).Error; err != nil {
					return err
				}
				if err := tx.Save(product).Error; err != nil {
					return err
				}
				fixed++
			}
			return nil
		})
	})
	if err != nil {
		s.log.Errorw("inventory fix failed", "error", err)
		return ReconcileFailed
	}
	s.log.Infow("inventory fixed", "rows", fixed)
	return fixed
}
