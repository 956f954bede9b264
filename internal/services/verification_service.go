package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rulevault/internal/clockx"
	"rulevault/internal/models"
	"rulevault/internal/repositories"
	"rulevault/internal/utils"
)

const (
	defaultCodeTTL        = 10 * time.Minute
	defaultMaxAttempts    = 5
	defaultResendCooldown = 60 * time.Second
	codeDigits            = 6
)

// EmailIntent classifies an email before any code is issued, so the client
// can pick the right flow.
type EmailIntent struct {
	Flow     string `json:"flow"` // "register", "login" or "oauth"
	Provider string `json:"provider,omitempty"`
}

const (
	IntentRegister = "register"
	IntentLogin    = "login"
	IntentOAuth    = "oauth"
)

// VerificationService owns VerificationCode rows exclusively; the repository
// is a passive collaborator. All timing decisions come from the injected
// clock.
type VerificationService struct {
	codes repositories.VerificationCodeRepository
	users repositories.UserRepository
	email EmailService
	clock clockx.Clock

	codeTTL        time.Duration
	maxAttempts    int
	resendCooldown time.Duration
}

func NewVerificationService(
	codes repositories.VerificationCodeRepository,
	users repositories.UserRepository,
	email EmailService,
	clock clockx.Clock,
	codeTTL time.Duration,
	maxAttempts int,
	resendCooldown time.Duration,
) *VerificationService {
	if codeTTL <= 0 {
		codeTTL = defaultCodeTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if resendCooldown <= 0 {
		resendCooldown = defaultResendCooldown
	}
	return &VerificationService{
		codes:          codes,
		users:          users,
		email:          email,
		clock:          clock,
		codeTTL:        codeTTL,
		maxAttempts:    maxAttempts,
		resendCooldown: resendCooldown,
	}
}

// StartRegistration invalidates any active code for the email, issues a
// fresh 6-digit code and sends it. If the send fails the code row stays
// persisted, so the resend cooldown still covers it.
func (s *VerificationService) StartRegistration(email string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user != nil {
		if user.IsOAuthOnly() {
			return &OAuthLoginRequiredError{Provider: *user.OAuthProvider}
		}
		// Fail closed: an account in any other state cannot be re-registered.
		return ErrUserAlreadyExists
	}

	now := s.clock.Now()
	if err := s.codes.InvalidateActive(email, models.PurposeRegister, now); err != nil {
		return fmt.Errorf("invalidate previous code: %w", err)
	}

	code, err := utils.NewNumericCode(codeDigits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	salt, err := utils.NewSalt(16)
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	rec := &models.VerificationCode{
		ID:        uuid.NewString(),
		Email:     email,
		Purpose:   models.PurposeRegister,
		CodeHash:  hashCode(salt, code),
		CodeSalt:  salt,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}
	if err := s.codes.Create(rec); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if err := s.email.SendVerificationCode(email, code); err != nil {
		// The row is deliberately not rolled back: a resend reuses the
		// cooldown window instead of silently retrying.
		log.Printf("[verify][start] send failed for %q: %v", email, err)
		return &EmailSendFailedError{Err: err}
	}

	log.Printf("[verify][start] code issued for %q", email)
	return nil
}

// ResendRegistration behaves exactly like StartRegistration once the
// 60-second cooldown on the latest active code has passed.
func (s *VerificationService) ResendRegistration(email string) error {
	email = normalizeEmail(email)

	latest, err := s.codes.GetLatest(email, models.PurposeRegister)
	if err != nil {
		return fmt.Errorf("lookup latest code: %w", err)
	}
	if latest != nil {
		elapsedMs := s.clock.Now().Sub(latest.CreatedAt).Milliseconds()
		cooldownMs := s.resendCooldown.Milliseconds()
		if elapsedMs < cooldownMs {
			remaining := int((cooldownMs - elapsedMs + 999) / 1000)
			return &ResendTooSoonError{SecondsRemaining: remaining}
		}
	}
	return s.StartRegistration(email)
}

// VerifyRegistrationCode checks the supplied code against the latest active
// one. "No code" and "wrong code" both come back as ErrVerificationInvalid
// so the response does not reveal whether a registration is pending.
func (s *VerificationService) VerifyRegistrationCode(email, code string) error {
	email = normalizeEmail(email)

	v, err := s.codes.GetLatest(email, models.PurposeRegister)
	if err != nil {
		return fmt.Errorf("lookup latest code: %w", err)
	}
	if v == nil {
		return ErrVerificationInvalid
	}

	now := s.clock.Now()
	if !now.Before(v.ExpiresAt) {
		return ErrVerificationExpired
	}
	if v.Attempts >= s.maxAttempts {
		return ErrAttemptsExceeded
	}

	if !hmac.Equal([]byte(hashCode(v.CodeSalt, code)), []byte(v.CodeHash)) {
		// Counter moves only on a wrong guess; the increment is SQL-side
		// atomic so concurrent guesses cannot under-count.
		if _, incErr := s.codes.IncrementAttempts(v.ID); incErr != nil {
			return fmt.Errorf("increment attempts: %w", incErr)
		}
		return ErrVerificationInvalid
	}

	if err := s.codes.MarkUsed(v.ID, now); err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	log.Printf("[verify][confirm] OK for %q", email)
	return nil
}

// GetEmailIntent reports which flow the client should run for this email.
func (s *VerificationService) GetEmailIntent(email string) (*EmailIntent, error) {
	user, err := s.users.GetByEmail(normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	switch {
	case user == nil:
		return &EmailIntent{Flow: IntentRegister}, nil
	case user.IsOAuthOnly():
		return &EmailIntent{Flow: IntentOAuth, Provider: *user.OAuthProvider}, nil
	default:
		return &EmailIntent{Flow: IntentLogin}, nil
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashCode(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + ":" + code))
	return hex.EncodeToString(sum[:])
}
