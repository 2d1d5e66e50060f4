package http

import (
	"github.com/gin-gonic/gin"
	"github.com/karimjaber/finsync-service/internal/config"
	"github.com/karimjaber/finsync-service/internal/service"
	"go.uber.org/zap"
)

func NewRouter(wh *service.WebhookService, sync *service.SyncService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, wh, sync)
	return r
}
