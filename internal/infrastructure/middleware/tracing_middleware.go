package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"communityhub/pkg/logger"
	"communityhub/pkg/tracing"
)

// TracingMiddleware opens a server span per request and puts its trace id in
// the request context for the loggers. Requests for the untraced paths, such
// as health checks and the metrics scrape, get no span.
func TracingMiddleware(untraced ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(untraced))
	for _, p := range untraced {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, route)
		defer span.End()

		attrs := []attribute.KeyValue{
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.remote_addr", c.ClientIP()),
		}
		if id := logger.RequestID(ctx); id != "" {
			attrs = append(attrs, tracing.RequestIDKey.String(id))
		}
		upgrade := websocket.IsWebSocketUpgrade(c.Request)
		if upgrade {
			attrs = append(attrs, tracing.ChatEventKey.String("upgrade"))
		}
		span.SetAttributes(attrs...)

		if sc := span.SpanContext(); sc.HasTraceID() {
			ctx = logger.WithTraceID(ctx, sc.TraceID().String())
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			tracing.DurationKey.Int64(time.Since(start).Milliseconds()),
		)
		// a hijacked chat connection has no response body to size
		if !upgrade {
			span.SetAttributes(attribute.Int64("http.response_size", int64(c.Writer.Size())))
		}
		for _, e := range c.Errors {
			span.RecordError(e.Err)
		}

		switch {
		case status >= http.StatusInternalServerError:
			msg := c.Errors.String()
			if msg == "" {
				msg = http.StatusText(status)
			}
			span.SetStatus(codes.Error, msg)
		case status < http.StatusBadRequest:
			span.SetStatus(codes.Ok, "")
		}
	}
}
