package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/provexlabs/provex-backend/internal/config"
	"github.com/provexlabs/provex-backend/internal/handler"
	"github.com/provexlabs/provex-backend/internal/middleware"
	"github.com/provexlabs/provex-backend/internal/response"
	"github.com/provexlabs/provex-backend/internal/service"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Exam       *handler.ExamHandler
	Proctoring *handler.ProctoringHandler
	Monitor    *handler.MonitorHandler
}

// Setup builds the Gin engine with all routes and middleware wired.
func Setup(cfg *config.Config, authService *service.AuthService, h Handlers) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(response.RequestIDMiddleware())
	r.Use(buildCORS(cfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Login and registration take the brunt of credential stuffing, so they
	// get their own tighter limiter.
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", authLimiter.Middleware(), h.Auth.Register)
			auth.POST("/login", authLimiter.Middleware(), h.Auth.Login)
			auth.POST("/logout", middleware.RequireJWT(authService), h.Auth.Logout)
			auth.GET("/me",
				middleware.RequireJWT(authService),
				middleware.CheckSingleDeviceSession(authService),
				h.Auth.Me,
			)
		}

		exams := apiV1.Group("/exams")
		exams.Use(
			middleware.RequireJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
		)
		{
			exams.POST("", h.Exam.CreateSession)
			exams.GET("", h.Exam.ListSessions)
			exams.GET("/:session_id", h.Exam.GetSession)
			exams.POST("/:session_id/answers", h.Exam.SaveAnswer)
			exams.POST("/:session_id/questions/next", h.Exam.NextQuestion)
			exams.POST("/:session_id/submit", h.Exam.Submit)
			exams.GET("/:session_id/result", h.Exam.Result)

			exams.POST("/:session_id/events", h.Proctoring.LogActivity)
			exams.GET("/:session_id/events", h.Proctoring.ListEvents)
			exams.POST("/:session_id/snapshots", h.Proctoring.UploadSnapshot)
		}
	}

	wsV1 := r.Group("/ws/v1")
	wsV1.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		wsV1.GET("/exams/:session_id/monitor", h.Monitor.Stream)
	}

	return r
}

func buildCORS(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false // Credentials cannot pair with wildcard origins
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(corsConfig)
}
