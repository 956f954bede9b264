package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rulevault/internal/models"
	"rulevault/internal/repositories"
	"rulevault/internal/services"
)

type AuthHandler struct {
	verification *services.VerificationService
	tokens       *services.TokenService
	users        repositories.UserRepository
	auth         services.AuthService
}

func NewAuthHandler(
	verification *services.VerificationService,
	tokens *services.TokenService,
	users repositories.UserRepository,
	auth services.AuthService,
) *AuthHandler {
	return &AuthHandler{
		verification: verification,
		tokens:       tokens,
		users:        users,
		auth:         auth,
	}
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// @Summary      Classify an email before choosing a flow
// @Description  Reports whether the email should register, log in with a password, or sign in via OAuth
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      emailRequest  true  "Email to classify"
// @Success      200      {object}  services.EmailIntent
// @Failure      400      {object}  map[string]string
// @Router       /auth/intent [post]
func (h *AuthHandler) EmailIntent(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	intent, err := h.verification.GetEmailIntent(req.Email)
	if err != nil {
		log.Printf("[auth][intent] lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, intent)
}

// @Summary      Start registration
// @Description  Issues a 6-digit verification code and emails it
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      emailRequest  true  "Email to register"
// @Success      200      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Failure      502      {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) StartRegistration(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.verification.StartRegistration(req.Email); err != nil {
		respondVerificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

// @Summary      Resend the registration code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      emailRequest  true  "Email awaiting verification"
// @Success      200      {object}  map[string]string
// @Failure      429      {object}  map[string]string
// @Router       /auth/register/resend [post]
func (h *AuthHandler) ResendRegistration(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.verification.ResendRegistration(req.Email); err != nil {
		respondVerificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}

type completeRegistrationRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Verify the code and create the account
// @Description  On success the account is created and an initial session is issued
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      completeRegistrationRequest  true  "Email, code and chosen password"
// @Success      201      {object}  map[string]interface{}
// @Failure      400      {object}  map[string]string
// @Failure      429      {object}  map[string]string
// @Router       /auth/register/verify [post]
func (h *AuthHandler) CompleteRegistration(c *gin.Context) {
	var req completeRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(strings.TrimSpace(req.Password)) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	if err := h.verification.VerifyRegistrationCode(req.Email, req.Code); err != nil {
		respondVerificationError(c, err)
		return
	}

	hash, err := h.auth.HashPassword(strings.TrimSpace(req.Password))
	if err != nil {
		log.Printf("[auth][register] hash password failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	// Password credential only; the OAuth pair stays null. Exactly one of
	// the two must be set on every account.
	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if err := h.users.Create(user); err != nil {
		log.Printf("[auth][register] create user failed for %q: %v", user.Email, err)
		c.JSON(http.StatusConflict, gin.H{"error": "account already exists, please log in"})
		return
	}

	pair, err := h.tokens.IssuePair(user.ID)
	if err != nil {
		log.Printf("[auth][register] issue tokens failed for userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	log.Printf("[auth][register] success userID=%d", user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user":    user,
		"tokens":  pair,
	})
}

// @Summary      Log in
// @Description  Authenticates with email and password, returns an access/refresh pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200    {object}  map[string]interface{}
// @Failure      401    {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(req.Email)

	user, err := h.users.GetByEmail(email)
	if err != nil {
		log.Printf("[auth][login] lookup failed for %q: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	// Same response for unknown email and wrong password.
	if user == nil || !user.HasPassword() || !h.auth.CheckPassword(user.PasswordHash, strings.TrimSpace(req.Password)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	pair, err := h.tokens.IssuePair(user.ID)
	if err != nil {
		log.Printf("[auth][login] issue tokens failed for userID=%d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	log.Printf("[auth][login] success userID=%d", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
		"tokens":  pair,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// @Summary      Rotate a refresh token
// @Description  Revokes the presented token and returns a fresh pair; reuse of a superseded token revokes its whole chain
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      refreshRequest  true  "Refresh token"
// @Success      200      {object}  services.TokenPair
// @Failure      401      {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pair, err := h.tokens.Refresh(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		respondTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// @Summary      Log out
// @Description  Revokes the refresh token; idempotent, succeeds even for unknown tokens
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      refreshRequest  true  "Refresh token"
// @Success      200      {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.tokens.Logout(strings.TrimSpace(req.RefreshToken))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := getUserIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
