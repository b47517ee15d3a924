package log

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GinLogger logs each request once it completes. Reads that succeed are
// logged at debug so list polling stays quiet; writes, failures and
// event streams are logged at info or above.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		streaming := strings.HasSuffix(c.Request.URL.Path, "/stream")
		if streaming {
			httpLogger := GetLogger("Http")
			httpLogger.Debug().Str("path", c.Request.URL.Path).Msg("stream opened")
		}

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = Error()
		case status >= 400:
			event = Warn()
		case c.Request.Method == "GET" && !streaming:
			event = Debug()
		default:
			event = Info()
		}

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start))

		if id := c.Param("id"); id != "" {
			event.Str("sessionId", id)
		}
		if taskID := c.Param("taskId"); taskID != "" {
			event.Str("taskId", taskID)
		}
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			event.Str("error", msg)
		}
		event.Msg("request")
	}
}
