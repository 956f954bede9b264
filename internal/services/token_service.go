package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rulevault/internal/clockx"
	"rulevault/internal/models"
	"rulevault/internal/repositories"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are carried by both token kinds; TokenType keeps a refresh token
// from being accepted where an access token is expected.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService mints HS256-signed access and refresh tokens. Access tokens
// are stateless; each refresh token's jti is tracked server-side as a
// RefreshTokenRecord so it can be revoked and rotated.
type TokenService struct {
	tokens     repositories.RefreshTokenRepository
	clock      clockx.Clock
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	alerts     AlertNotifier // may be nil
}

func NewTokenService(
	tokens repositories.RefreshTokenRepository,
	clock clockx.Clock,
	secret []byte,
	accessTTL, refreshTTL time.Duration,
	alerts AlertNotifier,
) *TokenService {
	return &TokenService{
		tokens:     tokens,
		clock:      clock,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		alerts:     alerts,
	}
}

// IssuePair mints a fresh access/refresh pair for the user and records the
// refresh token server-side.
func (s *TokenService) IssuePair(userID int64) (*TokenPair, error) {
	now := s.clock.Now()

	rec := &models.RefreshTokenRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.tokens.Create(rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	refresh, err := s.sign(userID, TokenTypeRefresh, rec.ID, now, rec.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	access, err := s.sign(userID, TokenTypeAccess, "", now, now.Add(s.accessTTL))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh rotates the presented refresh token. Reuse of an already-revoked
// token is treated as a compromise signal: every live descendant in its
// rotation chain is revoked before ErrTokenRevoked is returned. Two
// concurrent calls with the same token resolve to a single winner; the loser
// observes ErrTokenRevoked.
func (s *TokenService) Refresh(presented string) (*TokenPair, error) {
	claims, err := s.parse(presented, false)
	if err != nil || claims.TokenType != TokenTypeRefresh || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	rec, err := s.tokens.GetByID(claims.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if rec == nil {
		return nil, ErrTokenInvalid
	}

	now := s.clock.Now()
	if rec.RevokedAt != nil {
		s.handleReuse(rec, now)
		return nil, ErrTokenRevoked
	}
	if !now.Before(rec.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	won, err := s.tokens.Revoke(rec.ID, now)
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !won {
		// A concurrent rotation got here first; same signal as reuse.
		s.handleReuse(rec, now)
		return nil, ErrTokenRevoked
	}

	pair, err := s.IssuePair(rec.UserID)
	if err != nil {
		return nil, err
	}
	newClaims, err := s.parse(pair.RefreshToken, false)
	if err != nil {
		return nil, fmt.Errorf("decode minted token: %w", err)
	}
	if err := s.tokens.SetReplacedBy(rec.ID, newClaims.ID); err != nil {
		return nil, fmt.Errorf("link rotation chain: %w", err)
	}
	return pair, nil
}

// Logout revokes the presented refresh token. It is idempotent and never
// fails: already-revoked, unknown and malformed tokens are all fine.
func (s *TokenService) Logout(presented string) {
	claims, err := s.parse(presented, false)
	if err != nil || claims.ID == "" {
		return
	}
	rec, err := s.tokens.GetByID(claims.ID)
	if err != nil || rec == nil {
		return
	}
	if _, err := s.tokens.Revoke(rec.ID, s.clock.Now()); err != nil {
		log.Printf("[token][logout] revoke failed for %s: %v", rec.ID, err)
	}
}

// VerifyAccessToken validates a presented access token and returns its
// subject user id.
func (s *TokenService) VerifyAccessToken(presented string) (int64, error) {
	claims, err := s.parse(presented, true)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	if claims.TokenType != TokenTypeAccess {
		return 0, ErrTokenInvalid
	}
	return claims.UserID, nil
}

// handleReuse revokes every live token later in the rotation chain.
func (s *TokenService) handleReuse(rec *models.RefreshTokenRecord, now time.Time) {
	revoked := 0
	seen := map[string]bool{rec.ID: true}
	cur := rec
	for cur.ReplacedByTokenID != nil && !seen[*cur.ReplacedByTokenID] {
		seen[*cur.ReplacedByTokenID] = true
		next, err := s.tokens.GetByID(*cur.ReplacedByTokenID)
		if err != nil || next == nil {
			break
		}
		if won, err := s.tokens.Revoke(next.ID, now); err == nil && won {
			revoked++
		}
		cur = next
	}
	log.Printf("[token][reuse] revoked token %s presented for user %d, chain revocations=%d", rec.ID, rec.UserID, revoked)
	if s.alerts != nil {
		s.alerts.TokenReuseDetected(rec.UserID, rec.ID)
	}
}

func (s *TokenService) sign(userID int64, tokenType, jti string, now, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// parse verifies the signature; claim validation (expiry) is skipped for
// refresh tokens because the server-side record drives their lifecycle.
func (s *TokenService) parse(presented string, validateClaims bool) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.clock.Now)}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	parser := jwt.NewParser(opts...)
	token, err := parser.ParseWithClaims(presented, claims, func(t *jwt.Token) (interface{}, error) {
		// accept HMAC only
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
