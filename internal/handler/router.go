package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"exnotify/payloadhub/internal/config"
	"exnotify/payloadhub/internal/handler/middleware"
	jwtpkg "exnotify/payloadhub/pkg/jwt"
)

// RouterDeps carries what SetupRouter wires. JWTManager and AdminHandler are
// optional; without both the admin routes are not mounted.
type RouterDeps struct {
	Config         *config.Config
	Logger         *zap.Logger
	Registry       *prometheus.Registry
	JWTManager     *jwtpkg.Manager
	PayloadHandler *PayloadHandler
	AdminHandler   *AdminHandler
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	if deps.Registry != nil {
		r.Use(middleware.NewMetrics(deps.Registry).Middleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public payload routes used by notifiers and the analysis page
	api := r.Group("/api")
	{
		api.POST("/compress", deps.PayloadHandler.Compress)
		api.GET("/decompress", deps.PayloadHandler.Decompress)
	}

	// Admin routes (JWT + subject allow list)
	if deps.AdminHandler != nil && deps.JWTManager != nil {
		admin := r.Group("/api/v1/admin")
		admin.Use(middleware.JWTAuth(deps.JWTManager))
		admin.Use(middleware.AdminAuth(cfg.Admin.Subjects))
		{
			admin.GET("/payloads", deps.AdminHandler.ListPayloads)
			admin.GET("/payloads/:key", deps.AdminHandler.GetPayload)
			admin.DELETE("/payloads/:key", deps.AdminHandler.DeletePayload)
			admin.POST("/payloads/purge", deps.AdminHandler.PurgeExpired)
		}
	}

	return r
}
