package models

import "time"

// Loyalty tiers derived from lifetime spend.
const (
	LoyaltyTierBronze   = "bronze"
	LoyaltyTierSilver   = "silver"
	LoyaltyTierGold     = "gold"
	LoyaltyTierPlatinum = "platinum"
)

// LoyaltyTierFor returns the tier a customer qualifies for at the given
// lifetime spend.
func LoyaltyTierFor(lifetimeSpend float64) string {
	switch {
	case lifetimeSpend >= 10000:
		return LoyaltyTierPlatinum
	case lifetimeSpend >= 5000:
		return LoyaltyTierGold
	case lifetimeSpend >= 1000:
		return LoyaltyTierSilver
	default:
		return LoyaltyTierBronze
	}
}

type User struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"unique;not null" json:"email"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name"`
	Address       Address   `gorm:"embedded" json:"address"`
	LoyaltyTier   string    `gorm:"type:VARCHAR(20);default:'bronze'" json:"loyalty_tier"`
	LifetimeSpend float64   `json:"lifetime_spend"`
	Orders        []Order   `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"orders"`
	CreatedAt     time.Time `json:"created_at"`
}

// Address model embedded in User
type Address struct {
	Country    string `json:"country"`
	State      string `json:"state"`
	City       string `json:"city"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
}

// GuestUser is an anonymous session identity; guests own carts and
// orders through their session id.
type GuestUser struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}
