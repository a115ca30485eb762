package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/services/inventory"
	"github.com/mbilalsh/storefront-api/services/order"
)

// SetupRoutes is the single entry-point that wires up Auth, User, Admin
// and Order route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB, inv *inventory.Service, ord *order.Service) {
	// Public auth routes (no middleware)
	SetupAuthRoutes(r, db)

	// User routes (JWT-protected): cart + catalog reads
	SetupUserRoutes(r, db, inv)

	// Admin routes (API-key-protected): inventory + product management
	SetupAdminRoutes(r, db, inv)

	// Order routes
	SetupOrderRoutes(r, db, ord)
}
