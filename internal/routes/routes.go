package routes

import (
	"github.com/gin-gonic/gin"

	"rulevault/internal/handlers"
)

// SetupRoutes wires the auth surface. Public auth routes sit behind the
// per-IP rate limiter; everything under the protected group requires a
// Bearer access token.
func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	rateLimitMW gin.HandlerFunc,
	authMW gin.HandlerFunc,
) *gin.Engine {

	// ---- public, rate limited
	auth := r.Group("/auth", rateLimitMW)
	{
		auth.POST("/intent", authHandler.EmailIntent)
		auth.POST("/register", authHandler.StartRegistration)
		auth.POST("/register/resend", authHandler.ResendRegistration)
		auth.POST("/register/verify", authHandler.CompleteRegistration)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.POST("/logout", authHandler.Logout)
	}

	// ---- protected
	protected := r.Group("/", authMW)
	{
		protected.GET("/me", authHandler.Me)
	}

	return r
}
