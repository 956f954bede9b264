package models

import "time"

// User is referenced by the security core and owned by the account CRUD layer.
// Exactly one of PasswordHash or (OAuthProvider, OAuthProviderUserID) is set,
// never both, never neither. Enforced at creation.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // never serialized

	OAuthProvider       *string `json:"-"`
	OAuthProviderUserID *string `json:"-"`

	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"-"`
}

// HasPassword reports whether the account carries a password credential.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsOAuthOnly reports whether the account signs in through an OAuth provider.
func (u *User) IsOAuthOnly() bool {
	return u.OAuthProvider != nil && !u.HasPassword()
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
