package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"communityhub/pkg/logger"
	"communityhub/pkg/utils"
)

const RequestIDHeader = "X-Request-ID"

// RequestRecorder feeds the security metrics window
type RequestRecorder interface {
	RecordRequest(source string)
	RecordResponse(statusCode int)
}

// HTTPObserver receives per-request measurements
type HTTPObserver interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// RequestIDMiddleware propagates or assigns a request id
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = utils.GenerateRequestID()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// SecurityMetricsMiddleware records every request by client IP and its final
// status code in the security window
func SecurityMetricsMiddleware(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		recorder.RecordRequest(c.ClientIP())
		c.Next()
		recorder.RecordResponse(c.Writer.Status())
	}
}

// RequestLoggingMiddleware logs each request once it completes and reports it
// to observer when one is given
func RequestLoggingMiddleware(log *zap.Logger, observer HTTPObserver) gin.HandlerFunc {
	cl := logger.NewContextLogger(log)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if observer != nil {
			observer.ObserveHTTPRequest(c.Request.Method, route, status, duration)
		}
		cl.LogRequest(c.Request.Context(), c.Request.Method, c.Request.URL.Path, c.ClientIP(), status, duration.Milliseconds())
	}
}
