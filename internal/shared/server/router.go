package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pradeep0711/FIle-Uploader/internal/records"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/config"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/metrics"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/server/middleware"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/server/respond"
	"github.com/pradeep0711/FIle-Uploader/internal/uploads"
)

const rateLimitGroupUpload = "UPLOAD"

// RouterDeps holds the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config         config.Config
	UploadHandler  *uploads.Handler
	RecordsHandler *records.Handler
	// LocalFilesDir is served under /files when the local object store is in use.
	LocalFilesDir  string
	RateLimiter    *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.Metrics(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API server running")
	})
	r.GET("/metrics", metrics.Handler())
	if dir := strings.TrimSpace(deps.LocalFilesDir); dir != "" {
		r.Static("/files", dir)
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.UploadHandler != nil {
		limited := api.Group("", middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateLimitGroupUpload,
			Limiter:      deps.RateLimiter,
			Rules: map[string]middleware.RateLimitRule{
				rateLimitGroupUpload: {
					Rate:  deps.Config.RateLimitRPS,
					Burst: deps.Config.RateLimitBurst,
				},
			},
		}))
		deps.UploadHandler.RegisterRoutes(limited)
	}
	if deps.RecordsHandler != nil {
		deps.RecordsHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Not found")
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":3000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
