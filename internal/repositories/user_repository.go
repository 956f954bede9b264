package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"rulevault/internal/models"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int64) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) Create(user *models.User) error {
	const q = `
		INSERT INTO users (email, password_hash, oauth_provider, oauth_provider_user_id)
		VALUES (LOWER($1), NULLIF($2, ''), $3, $4)
		RETURNING id, created_at
	`
	if err := r.DB.QueryRow(q,
		user.Email,
		user.PasswordHash,
		user.OAuthProvider,
		user.OAuthProviderUserID,
	).Scan(&user.ID, &user.CreatedAt); err != nil {
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(id int64) (*models.User, error) {
	return r.getOne(`WHERE id = $1 AND deleted_at IS NULL`, id)
}

// GetByEmail matches case-insensitively and skips soft-deleted accounts.
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(`WHERE email = LOWER($1) AND deleted_at IS NULL`, email)
}

func (r *userRepository) getOne(where string, arg any) (*models.User, error) {
	q := `
		SELECT id, email, COALESCE(password_hash, ''), oauth_provider, oauth_provider_user_id, created_at, deleted_at
		FROM users
	` + where
	u := &models.User{}
	var (
		provider  sql.NullString
		oauthUID  sql.NullString
		deletedAt sql.NullTime
	)
	err := r.DB.QueryRow(q, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &provider, &oauthUID, &u.CreatedAt, &deletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("user get: %w", err)
	}
	if provider.Valid {
		s := provider.String
		u.OAuthProvider = &s
	}
	if oauthUID.Valid {
		s := oauthUID.String
		u.OAuthProviderUserID = &s
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return u, nil
}
