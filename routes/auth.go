package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/auth"
)

func SetupAuthRoutes(r *gin.Engine, db *gorm.DB) {
	authGroup := r.Group("/auth")
	{
		// Anonymous session for guest checkout
		authGroup.POST("/guest", auth.CreateGuestUser(db))
	}
}
