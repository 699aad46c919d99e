package app

import (
	"net/http"

	"NoticeEmitter/internal/delivery/handlers"
	"NoticeEmitter/internal/delivery/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

// setupHTTPServer настраивает HTTP сервер.
func (a *Application) setupHTTPServer() {
	a.server = ginext.New(gin.ReleaseMode)
	a.server.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
	}))
	a.server.Use(middleware.RequestIDMiddleware())
	a.server.Use(middleware.LoggingMiddleware())
	a.server.Use(middleware.Recovery())

	a.server.GET("/health", func(c *gin.Context) {
		status := a.pingAll(c.Request.Context())
		code := http.StatusOK
		for _, s := range status {
			if s != "ok" {
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"result": status})
	})
	a.server.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	h := handlers.NewHandlersSet(a.notices, a.settings, a.lastRun)
	api := a.server.RouterGroup.Group("api")
	if a.config.Auth.JWTSecret != "" {
		api.Use(middleware.JWTAuth(a.config.Auth.JWTSecret))
	} else {
		zlog.Logger.Warn().Msg("auth.jwtsecret is empty, API is not protected")
	}

	api.POST("/notices", h.SendNoticesHandler)
	api.GET("/notices/batches", h.ListBatchesHandler)
	api.GET("/notices/last-run", h.LastRunHandler)
	api.POST("/notice-types", h.CreateNoticeTypeHandler)
	api.GET("/notice-types/:label", h.GetNoticeTypeHandler)
	api.PATCH("/notice-types/:label", h.UpdateNoticeTypeHandler)
	api.PUT("/notice-settings", h.UpdateSettingHandler)
}
