package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/muandane/special-stack/teamlogos/internal/config"
	"github.com/muandane/special-stack/teamlogos/internal/handlers"
	"github.com/muandane/special-stack/teamlogos/internal/middleware"
)

type Router struct {
	engine *gin.Engine
	logger *slog.Logger
	admin  config.AdminConfig
	images config.ImageConfig
}

func NewRouter(logger *slog.Logger, admin config.AdminConfig, images config.ImageConfig) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	return &Router{
		engine: engine,
		logger: logger,
		admin:  admin,
		images: images,
	}
}

// Handlers groups the endpoints mounted by Setup. Images may be nil when
// object storage is not configured.
type Handlers struct {
	Logos  *handlers.LogoHandler
	Images *handlers.ImageHandler
	Stats  *handlers.StatsHandler
}

func (r *Router) Setup(h Handlers) http.Handler {
	metricsMiddleware := middleware.NewMetricsMiddleware()

	r.engine.GET("/health", h.Logos.Health)
	r.engine.GET("/metrics", gin.WrapH(metricsMiddleware))

	logos := r.engine.Group("/logos")
	logos.GET("/stats", h.Logos.Stats)
	logos.POST("/preload", h.Logos.Preload)
	logos.DELETE("/cache", h.Logos.ClearCache)
	logos.POST("/cache/sweep", h.Logos.Sweep)
	logos.GET("/:teamId", h.Logos.GetLogo)

	if h.Images != nil {
		r.engine.GET("/images/*key", h.Images.Get)
		r.engine.HEAD("/images/*key", h.Images.Head)
	}
	if h.Stats != nil {
		r.engine.GET("/stats", h.Stats.Get)
	}

	adminPolicy := middleware.AdminPolicy{
		AllowedIPs: r.admin.AllowedIPs,
		Protected:  isAdminRequest,
	}

	imageValidation := middleware.ImageValidation{
		Prefix:            "/images/",
		AllowedExtensions: r.images.Extensions,
	}

	return middleware.Chain(
		r.engine,
		middleware.WithImageValidation(imageValidation),
		middleware.WithAdminAccessControl(adminPolicy, r.logger, r.admin.AccessControl),
		metricsMiddleware.WithMetrics,
		middleware.WithLogging(r.logger),
	)
}

// isAdminRequest matches the routes that mutate or sweep the logo cache.
func isAdminRequest(r *http.Request) bool {
	if !strings.HasPrefix(r.URL.Path, "/logos/") {
		return false
	}
	switch {
	case r.Method == http.MethodDelete && r.URL.Path == "/logos/cache":
		return true
	case r.Method == http.MethodPost && r.URL.Path == "/logos/cache/sweep":
		return true
	case r.Method == http.MethodPost && r.URL.Path == "/logos/preload":
		return true
	}
	return false
}
