package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulevault/internal/clockx"
	"rulevault/internal/models"
)

var verifyStart = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func newVerificationFixture() (*VerificationService, *fakeCodeRepo, *fakeUserRepo, *fakeEmailService, *clockx.FakeClock) {
	codes := &fakeCodeRepo{}
	users := newFakeUserRepo()
	email := &fakeEmailService{}
	clock := clockx.NewFakeClock(verifyStart)
	svc := NewVerificationService(codes, users, email, clock, 10*time.Minute, 5, 60*time.Second)
	return svc, codes, users, email, clock
}

func TestStartRegistration_IssuesAndSendsCode(t *testing.T) {
	svc, codes, _, email, _ := newVerificationFixture()

	require.NoError(t, svc.StartRegistration("Alice@Example.com"))

	require.Len(t, email.sent, 1)
	assert.Equal(t, "alice@example.com", email.sent[0].email)
	assert.Len(t, email.sent[0].code, 6)

	v, err := codes.GetLatest("alice@example.com", models.PurposeRegister)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 0, v.Attempts)
	assert.Equal(t, verifyStart.Add(10*time.Minute), v.ExpiresAt)
	assert.Equal(t, hashCode(v.CodeSalt, email.sent[0].code), v.CodeHash)
}

func TestStartRegistration_PasswordAccountExists(t *testing.T) {
	svc, _, users, _, _ := newVerificationFixture()
	require.NoError(t, users.Create(&models.User{Email: "alice@example.com", PasswordHash: "$2a$x"}))

	err := svc.StartRegistration("alice@example.com")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestStartRegistration_OAuthOnlyAccount(t *testing.T) {
	svc, _, users, _, _ := newVerificationFixture()
	provider := "google"
	uid := "g-123"
	require.NoError(t, users.Create(&models.User{Email: "alice@example.com", OAuthProvider: &provider, OAuthProviderUserID: &uid}))

	err := svc.StartRegistration("alice@example.com")
	var oauthErr *OAuthLoginRequiredError
	require.ErrorAs(t, err, &oauthErr)
	assert.Equal(t, "google", oauthErr.Provider)
}

func TestStartRegistration_SendFailureKeepsCodeRow(t *testing.T) {
	svc, codes, _, email, _ := newVerificationFixture()
	email.err = errors.New("smtp down")

	err := svc.StartRegistration("alice@example.com")
	var sendErr *EmailSendFailedError
	require.ErrorAs(t, err, &sendErr)

	// The row is not rolled back: the cooldown window covers the resend.
	assert.Equal(t, 1, codes.activeCount("alice@example.com", models.PurposeRegister))
}

func TestStartRegistration_SecondCallLeavesSingleActiveCode(t *testing.T) {
	svc, codes, _, email, clock := newVerificationFixture()

	require.NoError(t, svc.StartRegistration("alice@example.com"))
	firstCode := email.lastCode()

	clock.Advance(2 * time.Minute)
	require.NoError(t, svc.StartRegistration("alice@example.com"))

	assert.Equal(t, 1, codes.activeCount("alice@example.com", models.PurposeRegister))

	// The superseded code no longer verifies; the fresh one does.
	assert.ErrorIs(t, svc.VerifyRegistrationCode("alice@example.com", firstCode), ErrVerificationInvalid)
	assert.NoError(t, svc.VerifyRegistrationCode("alice@example.com", email.lastCode()))
}

func TestResendRegistration_TooSoon(t *testing.T) {
	svc, _, _, _, clock := newVerificationFixture()
	require.NoError(t, svc.StartRegistration("alice@example.com"))

	clock.Advance(10 * time.Second)
	err := svc.ResendRegistration("alice@example.com")

	var soonErr *ResendTooSoonError
	require.ErrorAs(t, err, &soonErr)
	assert.Equal(t, 50, soonErr.SecondsRemaining)
}

func TestResendRegistration_AfterCooldown(t *testing.T) {
	svc, codes, _, email, clock := newVerificationFixture()
	require.NoError(t, svc.StartRegistration("alice@example.com"))

	clock.Advance(60 * time.Second)
	require.NoError(t, svc.ResendRegistration("alice@example.com"))

	assert.Len(t, email.sent, 2)
	assert.Equal(t, 1, codes.activeCount("alice@example.com", models.PurposeRegister))
}

func TestResendRegistration_NoPriorCodeActsLikeStart(t *testing.T) {
	svc, _, _, email, _ := newVerificationFixture()

	require.NoError(t, svc.ResendRegistration("alice@example.com"))
	assert.Len(t, email.sent, 1)
}

func TestVerifyRegistrationCode_NoActiveCode(t *testing.T) {
	svc, _, _, _, _ := newVerificationFixture()

	err := svc.VerifyRegistrationCode("alice@example.com", "123456")
	assert.ErrorIs(t, err, ErrVerificationInvalid)
}

func TestVerifyRegistrationCode_Expired(t *testing.T) {
	svc, _, _, email, clock := newVerificationFixture()
	require.NoError(t, svc.StartRegistration("alice@example.com"))

	clock.Advance(11 * time.Minute)
	err := svc.VerifyRegistrationCode("alice@example.com", email.lastCode())
	assert.ErrorIs(t, err, ErrVerificationExpired)
}

func TestVerifyRegistrationCode_ExpiryBoundary(t *testing.T) {
	svc, _, _, email, clock := newVerificationFixture()
	require.NoError(t, svc.StartRegistration("alice@example.com"))

	// now == expiresAt is already expired
	clock.Advance(10 * time.Minute)
	err := svc.VerifyRegistrationCode("alice@example.com", email.lastCode())
	assert.ErrorIs(t, err, ErrVerificationExpired)
}

func TestVerifyRegistrationCode_WrongCodeIncrementsAttempts(t *testing.T) {
	svc, codes, _, email, _ := newVerificationFixture()
	require.NoError(t, svc.StartRegistration("alice@example.com"))

	wrong := "000000"
	if wrong == email.lastCode() {
		wrong = "000001"
	}
	assert.ErrorIs(t, svc.VerifyRegistrationCode("alice@example.com", wrong), ErrVerificationInvalid)

	v, err := codes.GetLatest("alice@example.com", models.PurposeRegister)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Attempts)
}

func TestVerifyRegistrationCode_AttemptsCeiling(t *testing.T) {
	svc, _, _, email, _ := newVerificationFixture()
	require.NoError(t, svc.StartRegistration("alice@example.com"))

	wrong := "000000"
	if wrong == email.lastCode() {
		wrong = "000001"
	}
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, svc.VerifyRegistrationCode("alice@example.com", wrong), ErrVerificationInvalid)
	}

	// After five wrong guesses even the correct code is refused.
	err := svc.VerifyRegistrationCode("alice@example.com", email.lastCode())
	assert.ErrorIs(t, err, ErrAttemptsExceeded)
}

func TestVerifyRegistrationCode_SuccessConsumesCode(t *testing.T) {
	svc, codes, _, email, _ := newVerificationFixture()
	require.NoError(t, svc.StartRegistration("alice@example.com"))

	require.NoError(t, svc.VerifyRegistrationCode("alice@example.com", email.lastCode()))

	// Used rows are never active again.
	assert.Equal(t, 0, codes.activeCount("alice@example.com", models.PurposeRegister))
	assert.ErrorIs(t, svc.VerifyRegistrationCode("alice@example.com", email.lastCode()), ErrVerificationInvalid)
}

func TestGetEmailIntent(t *testing.T) {
	svc, _, users, _, _ := newVerificationFixture()
	provider := "github"
	uid := "gh-7"
	require.NoError(t, users.Create(&models.User{Email: "pw@example.com", PasswordHash: "$2a$x"}))
	require.NoError(t, users.Create(&models.User{Email: "oauth@example.com", OAuthProvider: &provider, OAuthProviderUserID: &uid}))

	tests := []struct {
		email    string
		flow     string
		provider string
	}{
		{"new@example.com", IntentRegister, ""},
		{"pw@example.com", IntentLogin, ""},
		{"OAuth@Example.com", IntentOAuth, "github"},
	}
	for _, tt := range tests {
		intent, err := svc.GetEmailIntent(tt.email)
		require.NoError(t, err)
		assert.Equal(t, tt.flow, intent.Flow, tt.email)
		assert.Equal(t, tt.provider, intent.Provider, tt.email)
	}
}
