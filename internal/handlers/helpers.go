package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"rulevault/internal/services"
)

func getUserIDFromCtx(c *gin.Context) (int64, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	}
	return 0, false
}

// respondVerificationError maps the recoverable verification conditions to
// HTTP responses with enough detail to render a message or retry hint.
// Anything else is an infrastructure failure and stays generic.
func respondVerificationError(c *gin.Context, err error) {
	var (
		oauthErr *services.OAuthLoginRequiredError
		soonErr  *services.ResendTooSoonError
		sendErr  *services.EmailSendFailedError
	)
	switch {
	case errors.Is(err, services.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "account already exists, please log in"})
	case errors.As(err, &oauthErr):
		c.JSON(http.StatusConflict, gin.H{"error": "account uses OAuth sign-in", "provider": oauthErr.Provider})
	case errors.As(err, &soonErr):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "code was sent recently", "retry_after_seconds": soonErr.SecondsRemaining})
	case errors.As(err, &sendErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send verification email, please retry"})
	case errors.Is(err, services.ErrVerificationInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
	case errors.Is(err, services.ErrVerificationExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "code expired, please resend"})
	case errors.Is(err, services.ErrAttemptsExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, please request a new code"})
	default:
		log.Printf("[auth][verify] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
	}
}

func respondTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
	case errors.Is(err, services.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token revoked"})
	case errors.Is(err, services.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
	default:
		log.Printf("[auth][token] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token operation failed"})
	}
}
