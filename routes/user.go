package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	cartControllers "github.com/mbilalsh/storefront-api/controllers/cart"
	inventoryControllers "github.com/mbilalsh/storefront-api/controllers/inventory"
	productControllers "github.com/mbilalsh/storefront-api/controllers/product"
	"github.com/mbilalsh/storefront-api/middleware"
	"github.com/mbilalsh/storefront-api/services/inventory"
)

func SetupUserRoutes(r *gin.Engine, db *gorm.DB, inv *inventory.Service) {
	// Public catalog reads
	r.GET("/products", productControllers.GetAllProducts(db))
	r.GET("/products/:productID", productControllers.GetProduct(db))
	r.GET("/inventory/:productID/available", inventoryControllers.CheckStockHandler(db, inv))

	user := r.Group("/user")
	user.Use(middleware.ValidateToken)
	{
		user.GET("/cart", cartControllers.GetCart(db))
		user.POST("/cart", cartControllers.UpdateCartItem(db))
		user.POST("/cart/discount", cartControllers.ApplyDiscount(db))
		user.DELETE("/cart/:product_id", cartControllers.DeleteCartItem(db))
		user.DELETE("/cart", cartControllers.ClearCart(db))
	}
}
