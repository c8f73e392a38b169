package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/layer-3/swapgate/service"
)

// RouteConfig wires the router's dependencies. Gateway and Gatherer are optional.
type RouteConfig struct {
	Auth     *service.AuthService
	Gateway  http.Handler
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouteConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	handlers := NewAuthHandlers(cfg.Auth)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/nonce", handlers.Nonce)
	router.POST("/login", handlers.Login)
	router.POST("/refresh", handlers.Refresh)
	router.POST("/logout", handlers.Logout)

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(cfg.Auth))
	{
		api.GET("/me", handlers.Me)
	}

	if cfg.Gateway != nil {
		router.GET("/ws", gin.WrapH(cfg.Gateway))
	}
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
