package models

import "time"

// RefreshTokenRecord tracks an issued refresh token by its identifier (the
// token's jti claim), not its secret bytes. Revocation sets RevokedAt; rows
// are deleted only by the cleanup reaper, never by request handling.
// ReplacedByTokenID links successive rotations so reuse of a superseded
// token can invalidate the whole chain.
type RefreshTokenRecord struct {
	ID                string     `json:"id"`
	UserID            int64      `json:"user_id"`
	IssuedAt          time.Time  `json:"issued_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	ReplacedByTokenID *string    `json:"replaced_by_token_id,omitempty"`
}

// Usable reports whether the record may still be redeemed at the given time.
func (r *RefreshTokenRecord) Usable(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}
