package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"rulevault/internal/models"
)

type RefreshTokenRepository interface {
	Create(rec *models.RefreshTokenRecord) error
	GetByID(id string) (*models.RefreshTokenRecord, error)
	// Revoke sets revoked_at only if the record is not already revoked.
	// Returns true for the caller that won the conditional update, so two
	// concurrent rotations of the same token resolve to a single winner.
	Revoke(id string, now time.Time) (bool, error)
	SetReplacedBy(id, replacedByID string) error
	// DeleteStale removes revoked rows past revokedCutoff and expired rows
	// past expiredCutoff in one batch. Live records are never touched.
	DeleteStale(revokedCutoff, expiredCutoff time.Time) (int64, error)
}

type refreshTokenRepository struct {
	DB *sql.DB
}

func NewRefreshTokenRepository(db *sql.DB) RefreshTokenRepository {
	return &refreshTokenRepository{DB: db}
}

func (r *refreshTokenRepository) Create(rec *models.RefreshTokenRecord) error {
	const q = `
		INSERT INTO refresh_tokens (id, user_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.DB.Exec(q, rec.ID, rec.UserID, rec.IssuedAt, rec.ExpiresAt); err != nil {
		return fmt.Errorf("refresh_token create: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) GetByID(id string) (*models.RefreshTokenRecord, error) {
	const q = `
		SELECT id, user_id, issued_at, expires_at, revoked_at, replaced_by_token_id
		FROM refresh_tokens
		WHERE id = $1
	`
	var (
		rec        models.RefreshTokenRecord
		revokedAt  sql.NullTime
		replacedBy sql.NullString
	)
	err := r.DB.QueryRow(q, id).Scan(
		&rec.ID, &rec.UserID, &rec.IssuedAt, &rec.ExpiresAt, &revokedAt, &replacedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("refresh_token get: %w", err)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		rec.RevokedAt = &t
	}
	if replacedBy.Valid {
		s := replacedBy.String
		rec.ReplacedByTokenID = &s
	}
	return &rec, nil
}

func (r *refreshTokenRepository) Revoke(id string, now time.Time) (bool, error) {
	const q = `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	res, err := r.DB.Exec(q, id, now)
	if err != nil {
		return false, fmt.Errorf("refresh_token revoke: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("refresh_token revoke: %w", err)
	}
	return n > 0, nil
}

func (r *refreshTokenRepository) SetReplacedBy(id, replacedByID string) error {
	const q = `
		UPDATE refresh_tokens
		SET replaced_by_token_id = $2
		WHERE id = $1
	`
	if _, err := r.DB.Exec(q, id, replacedByID); err != nil {
		return fmt.Errorf("refresh_token set replaced_by: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) DeleteStale(revokedCutoff, expiredCutoff time.Time) (int64, error) {
	const q = `
		DELETE FROM refresh_tokens
		WHERE (revoked_at IS NOT NULL AND revoked_at <= $1)
		   OR expires_at <= $2
	`
	res, err := r.DB.Exec(q, revokedCutoff, expiredCutoff)
	if err != nil {
		return 0, fmt.Errorf("refresh_token delete stale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("refresh_token delete stale: %w", err)
	}
	return n, nil
}
