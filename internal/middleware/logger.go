package middleware

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"letmeask/internal/logging"
)

// RequestLogger 為每個請求建立帶有 request_id 的記錄器，並記錄狀態碼與耗時
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(c *gin.Context) {
		id := counter.Add(1)
		logger := base.With(
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		ctx := logging.ContextWithLogger(c.Request.Context(), logger)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		attrs := []any{"status", c.Writer.Status(), "duration", time.Since(start)}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		if c.Writer.Status() >= 500 {
			logger.ErrorContext(ctx, "request completed", attrs...)
			return
		}
		logger.InfoContext(ctx, "request completed", attrs...)
	}
}
