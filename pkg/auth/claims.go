package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   int
	Username string
	Role     enums.UserRole
	// JTI doubles as the server-side session id.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   int            `json:"user_id"`
	Username string         `json:"username,omitempty"`
	Role     enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
