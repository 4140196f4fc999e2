package auth

import (
	"time"

	"github.com/angelmondragon/domiciliarios-backend/pkg/auth/session"
	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
)

// LoginRequest captures the CMS credentials sent to the login endpoint. Identifier is the
// CMS username or email.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// UserDTO is the public view of the logged-in user. The CMS token is never exposed.
type UserDTO struct {
	ID       int            `json:"id"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Role     enums.UserRole `json:"role"`
}

// LoginResponse contains the backend access token and the user it was issued to.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserDTO   `json:"user"`
}

// FromSession builds the public user view of a stored session.
func FromSession(sess *session.Session) UserDTO {
	if sess == nil {
		return UserDTO{}
	}
	return UserDTO{
		ID:       sess.UserID,
		Username: sess.Username,
		Email:    sess.Email,
		Role:     sess.Role,
	}
}
