// Package middleware carries the gin middleware shared by faultline HTTP
// surfaces. Panic and error reporting middleware lives in pkg/capture; this
// package is request plumbing only.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"faultline/internal/logger"
	"faultline/internal/sanitize"
)

// LoggerMiddleware logs one line per request. Query strings go through the
// same credential redaction as captured events, so secrets never reach the
// request log either.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		clientIP := c.ClientIP()
		method := c.Request.Method
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = sanitize.RedactURL(path + "?" + raw)
		}

		logFields := []interface{}{
			"status", statusCode,
			"latency", latency,
			"client_ip", clientIP,
			"method", method,
			"path", path,
		}

		if requestID := c.GetString("request_id"); requestID != "" {
			logFields = append(logFields, "request_id", requestID)
		}

		if errorMessage != "" {
			logFields = append(logFields, "error", errorMessage)
		}

		if statusCode >= 500 {
			log.Errorw("HTTP Request", logFields...)
		} else {
			log.Infow("HTTP Request", logFields...)
		}
	}
}

// RequestIDMiddleware assigns each request a stable id, honoring one the
// caller already sent.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
