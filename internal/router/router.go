package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gradebox/quizdesk-backend/internal/config"
	"github.com/gradebox/quizdesk-backend/internal/handler"
	"github.com/gradebox/quizdesk-backend/internal/middleware"
	"github.com/gradebox/quizdesk-backend/internal/response"
	"github.com/gradebox/quizdesk-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Quiz    *handler.QuizHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
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
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve uploaded submission files statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Quiz status and the offline paper flow
		studentAPI.GET("/quizzes/:quiz_id", handlers.Quiz.GetQuizStatus)
		studentAPI.POST("/quizzes/:quiz_id/paper/export", handlers.Quiz.ExportPaper)
		studentAPI.POST("/papers/open", handlers.Quiz.OpenPaper)
		studentAPI.POST("/quizzes/:quiz_id/submit-offline", handlers.Quiz.SubmitOffline)

		// Online attempt lifecycle
		studentAPI.POST("/quizzes/:quiz_id/attempt", handlers.Attempt.BeginAttempt)
		studentAPI.GET("/quizzes/:quiz_id/attempt", handlers.Attempt.GetAttempt)
		studentAPI.POST("/quizzes/:quiz_id/attempt/verify-key", handlers.Attempt.VerifyKey)
		studentAPI.PUT("/quizzes/:quiz_id/attempt/answers/:index", handlers.Attempt.SetAnswer)
		studentAPI.POST("/quizzes/:quiz_id/attempt/answers/:index/lock", handlers.Attempt.LockAnswer)
		studentAPI.POST("/quizzes/:quiz_id/attempt/submit", handlers.Attempt.Submit)
		studentAPI.POST("/quizzes/:quiz_id/attempt/save-offline", handlers.Attempt.SaveOffline)
		studentAPI.POST("/quizzes/:quiz_id/attempt/cancel", handlers.Attempt.CancelAttempt)

		// Offline answers import
		studentAPI.POST("/quizzes/:quiz_id/import", handlers.Attempt.ImportAnswers)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/quizzes/:quiz_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
