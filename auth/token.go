package auth

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IssueToken signs a token carrying the caller identity and role for
// the given lifetime. The claim names match what
// middleware.ValidateToken reads back out.
func IssueToken(subject, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": subject,
		"role":    role,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
