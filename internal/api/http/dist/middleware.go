package dist

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"

	"github.com/yzharold/RCAS/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID propagates or assigns a request id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header(headerRequestID, requestID)

		c.Next()
	}
}

// AccessLog writes one line per request at info level through a logger
// filtered at level.
func AccessLog(ctx context.Context, level zapcore.Level) gin.HandlerFunc {
	log := logger.FromContext(ctx).Desugar().WithOptions(logger.WithLevel(level)).Sugar()

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Infow("Request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// NewRouter builds the engine used by the distribution server.
func NewRouter(ctx context.Context, h *Handler, accessLevel zapcore.Level) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), AccessLog(ctx, accessLevel), gin.Recovery())
	h.RegisterRoutes(router)

	return router
}
