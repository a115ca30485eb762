package inventoryControllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	inventoryService "github.com/mbilalsh/storefront-api/services/inventory"
)

type AdjustStockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type SetStockRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func parseProductID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("productID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productID must be numeric"})
		return 0, false
	}
	return uint(id), true
}

// GET /inventory/:productID/available?qty=
func CheckStockHandler(db *gorm.DB, svc *inventoryService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := parseProductID(c)
		if !ok {
			return
		}
		qty, _ := strconv.Atoi(c.DefaultQuery("qty", "1"))

		inStock, err := svc.IsInStock(db, productID, qty)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check stock"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"product_id": productID, "quantity": qty, "in_stock": inStock})
	}
}

// POST /admin/inventory/:productID/restock
func RestockHandler(db *gorm.DB, svc *inventoryService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := parseProductID(c)
		if !ok {
			return
		}
		var req AdjustStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !svc.Restock(db, productID, req.Quantity) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restock product"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product restocked"})
	}
}

// PUT /admin/inventory/:productID/stock
func UpdateStockHandler(db *gorm.DB, svc *inventoryService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := parseProductID(c)
		if !ok {
			return
		}
		var req SetStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if *req.Quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
			return
		}
		if !svc.UpdateAbsolute(db, productID, *req.Quantity) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stock"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Stock updated"})
	}
}

// POST /admin/inventory/synchronize
func SynchronizeHandler(db *gorm.DB, svc *inventoryService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		count := svc.SynchronizeAll(db)
		if count == inventoryService.ReconcileFailed {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Synchronization failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows_touched": count})
	}
}

// POST /admin/inventory/fix
func FixHandler(db *gorm.DB, svc *inventoryService.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		count := svc.FixAll(db)
		if count == inventoryService.ReconcileFailed {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Fix failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows_fixed": count})
	}
}
