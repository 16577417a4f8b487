package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/portfolio-backend/internal/http/handlers"
	httpMW "github.com/yungbote/portfolio-backend/internal/http/middleware"
	"github.com/yungbote/portfolio-backend/internal/observability"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	// Per-client limit on /api requests; zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Uploads are served read-only from UploadDir under UploadURLPrefix.
	UploadDir       string
	UploadURLPrefix string

	HealthHandler  *httpH.HealthHandler
	ProjectHandler *httpH.ProjectHandler
	UserHandler    *httpH.UserHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Stored images
	if cfg.UploadDir != "" && cfg.UploadURLPrefix != "" {
		r.Group(cfg.UploadURLPrefix, httpMW.ImageContentType()).Static("/", cfg.UploadDir)
	}

	api := r.Group("/api")
	api.Use(httpMW.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	{
		if cfg.ProjectHandler != nil {
			projects := api.Group("/projects")
			projects.GET("", cfg.ProjectHandler.ListProjects)
			projects.POST("", cfg.ProjectHandler.CreateProject)
			projects.GET("/:id", cfg.ProjectHandler.GetProject)
			projects.PUT("/:id", cfg.ProjectHandler.UpdateProject)
			projects.DELETE("/:id", cfg.ProjectHandler.DeleteProject)
			projects.PATCH("/:id/images", cfg.ProjectHandler.AddImages)
			projects.PATCH("/:id/images/:imageId", cfg.ProjectHandler.UpdateImageMetadata)
			projects.DELETE("/:id/images/:imageId", cfg.ProjectHandler.RemoveImage)
		}
		if cfg.UserHandler != nil {
			users := api.Group("/users")
			users.GET("", cfg.UserHandler.ListUsers)
			users.POST("", cfg.UserHandler.CreateUser)
			users.GET("/:id", cfg.UserHandler.GetUser)
			users.PUT("/:id", cfg.UserHandler.UpdateUser)
			users.DELETE("/:id", cfg.UserHandler.DeleteUser)
		}
	}

	return r
}
