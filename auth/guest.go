// Package auth issues the signed identities buyers carry. Guests get a
// short-lived one so anonymous carts and orders still have an owner.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/models"
)

const guestSessionTTL = 24 * time.Hour

// CreateGuestUser handles POST /auth/guest: mints a guest identity,
// persists it and returns a guest-scoped token.
func CreateGuestUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		guestID := "guest_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

		guest := models.GuestUser{
			ID:        guestID,
			ExpiresAt: time.Now().Add(guestSessionTTL),
		}
		if err := db.Create(&guest).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create guest session"})
			return
		}

		token, err := IssueToken(guestID, "guest", guestSessionTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue guest token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"guest_id":   guestID,
			"token":      token,
			"expires_at": guest.ExpiresAt,
		})
	}
}
