package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"rulevault/internal/models"
)

type VerificationCodeRepository interface {
	Create(code *models.VerificationCode) error
	// GetLatest returns the newest not-used, not-invalidated code for
	// (email, purpose), or nil if there is none. Expiry is not filtered here:
	// the service distinguishes "expired" from "missing".
	GetLatest(email, purpose string) (*models.VerificationCode, error)
	// IncrementAttempts bumps the counter in SQL (attempts = attempts + 1) so
	// concurrent wrong guesses cannot under-count. Returns the new value.
	IncrementAttempts(id string) (int, error)
	MarkUsed(id string, usedAt time.Time) error
	// InvalidateActive supersedes every active code for (email, purpose).
	InvalidateActive(email, purpose string, now time.Time) error
}

type verificationCodeRepository struct {
	DB *sql.DB
}

func NewVerificationCodeRepository(db *sql.DB) VerificationCodeRepository {
	return &verificationCodeRepository{DB: db}
}

func (r *verificationCodeRepository) Create(code *models.VerificationCode) error {
	const q = `
		INSERT INTO verification_codes
			(id, email, purpose, code_hash, code_salt, expires_at, attempts, created_at)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, 0, $7)
	`
	if _, err := r.DB.Exec(q,
		code.ID, code.Email, code.Purpose, code.CodeHash, code.CodeSalt,
		code.ExpiresAt, code.CreatedAt,
	); err != nil {
		return fmt.Errorf("verification_code create: %w", err)
	}
	return nil
}

func (r *verificationCodeRepository) GetLatest(email, purpose string) (*models.VerificationCode, error) {
	const q = `
		SELECT id, email, purpose, code_hash, code_salt, expires_at, attempts,
		       used_at, invalidated_at, created_at
		FROM verification_codes
		WHERE email = LOWER($1) AND purpose = $2
		  AND used_at IS NULL AND invalidated_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	var (
		v             models.VerificationCode
		usedAt        sql.NullTime
		invalidatedAt sql.NullTime
	)
	err := r.DB.QueryRow(q, email, purpose).Scan(
		&v.ID, &v.Email, &v.Purpose, &v.CodeHash, &v.CodeSalt, &v.ExpiresAt,
		&v.Attempts, &usedAt, &invalidatedAt, &v.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("verification_code latest: %w", err)
	}
	if usedAt.Valid {
		t := usedAt.Time
		v.UsedAt = &t
	}
	if invalidatedAt.Valid {
		t := invalidatedAt.Time
		v.InvalidatedAt = &t
	}
	return &v, nil
}

func (r *verificationCodeRepository) IncrementAttempts(id string) (int, error) {
	const q = `
		UPDATE verification_codes
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`
	var attempts int
	if err := r.DB.QueryRow(q, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("verification_code increment attempts: %w", err)
	}
	return attempts, nil
}

func (r *verificationCodeRepository) MarkUsed(id string, usedAt time.Time) error {
	// used_at is written once; a used row is never mutated again.
	const q = `
		UPDATE verification_codes
		SET used_at = $2
		WHERE id = $1 AND used_at IS NULL
	`
	if _, err := r.DB.Exec(q, id, usedAt); err != nil {
		return fmt.Errorf("verification_code mark used: %w", err)
	}
	return nil
}

func (r *verificationCodeRepository) InvalidateActive(email, purpose string, now time.Time) error {
	const q = `
		UPDATE verification_codes
		SET invalidated_at = $3
		WHERE email = LOWER($1) AND purpose = $2
		  AND used_at IS NULL AND invalidated_at IS NULL
	`
	if _, err := r.DB.Exec(q, email, purpose, now); err != nil {
		return fmt.Errorf("verification_code invalidate: %w", err)
	}
	return nil
}
