package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"communityhub/pkg/logger"
	"communityhub/pkg/tracing"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		tp.Shutdown(context.Background())
	})
	return recorder
}

func spanAttrs(span tracesdk.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func tracedRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware(), TracingMiddleware("/health"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/items/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND"})
			return
		}
		c.Error(stderrors.New("upstream unavailable"))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "UNAVAILABLE"})
	})
	router.GET("/api/traced", func(c *gin.Context) {
		c.String(http.StatusOK, logger.TraceID(c.Request.Context()))
	})
	return router
}

func TestTracingMiddleware_ServerErrorSpan(t *testing.T) {
	recorder := withSpanRecorder(t)
	router := tracedRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/items/42", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "http.GET", span.Name())

	attrs := spanAttrs(span)
	assert.Equal(t, "/api/items/:id", attrs["http.route"].AsString())
	assert.Equal(t, "req-7", attrs[tracing.RequestIDKey].AsString())
	assert.Equal(t, int64(http.StatusServiceUnavailable), attrs["http.status_code"].AsInt64())
	_, isUpgrade := attrs[tracing.ChatEventKey]
	assert.False(t, isUpgrade)

	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Status().Description, "upstream unavailable")
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "exception", span.Events()[0].Name)
}

func TestTracingMiddleware_ClientErrorLeavesStatusUnset(t *testing.T) {
	recorder := withSpanRecorder(t)
	router := tracedRouter()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/missing", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTracingMiddleware_SkipsUntracedPaths(t *testing.T) {
	recorder := withSpanRecorder(t)
	router := tracedRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, recorder.Ended())
}

func TestTracingMiddleware_TraceIDReachesHandlers(t *testing.T) {
	recorder := withSpanRecorder(t)
	router := tracedRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/traced", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), w.Body.String())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}
