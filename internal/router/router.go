package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vigilo/proctor-backend/internal/config"
	"github.com/vigilo/proctor-backend/internal/handler"
	"github.com/vigilo/proctor-backend/internal/middleware"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/response"
	"github.com/vigilo/proctor-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Exam    *handler.ExamHandler
	Session *handler.SessionHandler
	Proctor *handler.ProctorHandler
	Monitor *handler.MonitorHandler
	Report  *handler.ReportHandler
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
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Serve evidence frames statically. Frames are immutable once written,
	// so long-lived caching is safe (1 year).
	framesGroup := router.Group("/frames")
	framesGroup.Use(
		middleware.RequireRole(authService, model.RoleInvigilator, model.RoleAdmin),
		middleware.CacheControl(31536000),
	)
	{
		framesGroup.Static("/", cfg.FrameDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Frame feed admission control, keyed per (user, exam) session.
	// A zero rate turns the limiter into a no-op.
	feedLimiter := middleware.NewRateLimiter(cfg.FeedRatePerMinute, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(middleware.KeyByClientIP), handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Shared Exam Reads (Any Authenticated Role) ─────────────────
	examAPI := router.Group("/api/v1/exams")
	examAPI.Use(middleware.RequireJWT(authService))
	{
		examAPI.GET("", handlers.Exam.List)
		examAPI.GET("/:exam_id", handlers.Exam.Get)
	}

	// ─── 3. Student Group (JWT + Student Role) ─────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireRole(authService, model.RoleStudent))
	{
		studentAPI.POST("/exams/:exam_id/start", handlers.Session.StartExam)
		studentAPI.POST("/exams/:exam_id/submit", handlers.Session.SubmitExam)
		studentAPI.GET("/exams/:exam_id/session", handlers.Session.GetSession)
		studentAPI.GET("/exams/:exam_id/paper", handlers.Exam.GetPaper)
		studentAPI.POST("/exams/:exam_id/feed",
			feedLimiter.Middleware(middleware.KeyBySession),
			handlers.Proctor.Feed,
		)
		studentAPI.POST("/exams/:exam_id/screen", handlers.Proctor.LogScreen)
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireRole(authService, model.RoleStudent))
	{
		ws.GET("/student/exams/:exam_id/detections", handlers.WS.DetectionStream)
	}

	// ─── 5. Invigilator Group (JWT + Invigilator/Admin Role) ───────────
	invigilatorAPI := router.Group("/api/v1/invigilator")
	invigilatorAPI.Use(middleware.RequireRole(authService, model.RoleInvigilator, model.RoleAdmin))
	{
		invigilatorAPI.POST("/exams", handlers.Exam.Create)
		invigilatorAPI.GET("/sessions/active", handlers.Monitor.ActiveSessions)
		invigilatorAPI.GET("/detections/unusual", handlers.Monitor.UnusualDetections)
		invigilatorAPI.GET("/exams/:exam_id/users/:user_id/frames", handlers.Monitor.UnusualFrames)
		invigilatorAPI.GET("/exams/:exam_id/users/:user_id/frames/latest", handlers.Monitor.LatestFrame)
		invigilatorAPI.GET("/exams/:exam_id/users/:user_id/screen-logs", handlers.Monitor.ScreenLogs)
		invigilatorAPI.GET("/exams/:exam_id/live", handlers.Monitor.LiveFeed)
		invigilatorAPI.POST("/exams/:exam_id/report", handlers.Report.Generate)
	}

	// ─── 6. Admin Group (JWT + Admin Role) ─────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireRole(authService, model.RoleAdmin))
	{
		adminAPI.POST("/users", handlers.User.Register)
		adminAPI.GET("/users", handlers.User.List)
		adminAPI.PUT("/users/:id", handlers.User.Update)
		adminAPI.DELETE("/users/:id", handlers.User.Delete)
	}

	return router
}
