package auth

import (
	"github.com/golang-jwt/jwt/v4"
)

const tokenTypeAccess = "access"

// JWTClaims represents JWT token claims
type JWTClaims struct {
	UserID    string `json:"user_id"`
	LoginName string `json:"login_name"`
	Role      string `json:"role"`
	Type      string `json:"type"` // always "access"
	jwt.RegisteredClaims
}
