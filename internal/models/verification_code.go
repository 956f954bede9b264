package models

import "time"

// Purpose values for verification codes.
const (
	PurposeRegister = "register"
)

// VerificationCode is one row per issued code. Only the salted hash is stored.
// A code is active while it is not used, not invalidated and not expired;
// issuing a new code invalidates the previous active one, so at most one
// code per (email, purpose) is ever active.
type VerificationCode struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Purpose       string     `json:"purpose"`
	CodeHash      string     `json:"-"`
	CodeSalt      string     `json:"-"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Attempts      int        `json:"attempts"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	InvalidatedAt *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}
