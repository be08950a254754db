package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the caller identity threaded explicitly through every core
// operation. There is no ambient session state.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Admin  bool
}

// CanActOn reports whether the identity may operate on a resource owned
// by ownerID.
func (id Identity) CanActOn(ownerID uuid.UUID) bool {
	return id.Admin || id.UserID == ownerID
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Admin  bool
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Admin  bool      `json:"admin"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the caller identity.
func (c *AccessTokenClaims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Admin: c.Admin}
}
