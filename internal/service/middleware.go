package service

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gitlab.com/dirk.krummacker/contact-intake/internal/config"
	"gitlab.com/dirk.krummacker/contact-intake/internal/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID takes the request id from the X-Request-ID header or generates one, stores it in the
// gin context and echoes it in the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLog returns the logger annotated with the id of the current request.
func requestLog(c *gin.Context, log *logger.Logger) *logger.Logger {
	return log.With(requestIDKey, c.GetString(requestIDKey))
}

// requestLogger logs method, path, status and duration of every request.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			requestIDKey, c.GetString(requestIDKey))
	}
}

// corsMiddleware allows cross-origin calls from the browser front end. An origin of "*" allows
// every origin.
func corsMiddleware(cfg config.CORS) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: []string{"Content-Disposition", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.Origins) == 0 || slices.Contains(cfg.Origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.Origins
	}
	return cors.New(c)
}
