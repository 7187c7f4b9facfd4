package router

import (
	"net/http"
	"time"

	"github.com/cbtprep/cbtprep-backend/internal/config"
	"github.com/cbtprep/cbtprep-backend/internal/handler"
	"github.com/cbtprep/cbtprep-backend/internal/middleware"
	"github.com/cbtprep/cbtprep-backend/internal/response"
	"github.com/cbtprep/cbtprep-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Payment *handler.PaymentHandler
	Subject *handler.SubjectHandler
	Explain *handler.ExplainHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the login route (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)

		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Authenticated API (JWT + Single Device) ────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		api.GET("/subjects", handlers.Subject.List)

		// Exam sessions
		api.POST("/sessions", handlers.Session.Create)
		api.GET("/sessions", handlers.Session.History)
		api.GET("/sessions/active", handlers.Session.Active)
		api.GET("/sessions/:id", handlers.Session.Get)
		api.POST("/sessions/:id/start", handlers.Session.Start)
		api.PUT("/sessions/:id/answer", handlers.Session.SubmitAnswer)
		api.POST("/sessions/:id/complete", handlers.Session.Complete)
		api.GET("/sessions/:id/review", handlers.Session.Review)
		api.POST("/sessions/:id/questions/:question_id/explain", handlers.Explain.Explain)

		// Premium access
		api.POST("/access/code", handlers.Payment.RedeemCode)
		api.POST("/payments/initialize", handlers.Payment.Initialize)
		api.GET("/payments/verify/:reference", handlers.Payment.Verify)
	}

	return router
}
