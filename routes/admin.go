package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	inventoryControllers "github.com/mbilalsh/storefront-api/controllers/inventory"
	productControllers "github.com/mbilalsh/storefront-api/controllers/product"
	"github.com/mbilalsh/storefront-api/middleware"
	"github.com/mbilalsh/storefront-api/services/inventory"
)

func SetupAdminRoutes(r *gin.Engine, db *gorm.DB, inv *inventory.Service) {
	admin := r.Group("/admin")
	admin.Use(middleware.ValidateAPIKey)
	{
		// Product management
		admin.POST("/products", productControllers.CreateProduct(db, inv))
		admin.PUT("/products/:productID", productControllers.UpdateProduct(db, inv))
		admin.DELETE("/products/:productID", productControllers.DeleteProduct(db))

		// Inventory management
		admin.POST("/inventory/:productID/restock", inventoryControllers.RestockHandler(db, inv))
		admin.PUT("/inventory/:productID/stock", inventoryControllers.UpdateStockHandler(db, inv))
		admin.POST("/inventory/synchronize", inventoryControllers.SynchronizeHandler(db, inv))
		admin.POST("/inventory/fix", inventoryControllers.FixHandler(db, inv))
		admin.GET("/inventory/export", inventoryControllers.ExportInventoryToExcel(db))
	}
}
