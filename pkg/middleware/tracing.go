package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/drivemini/pkg/tracing"
)

// TracingMiddleware 接续上游的 traceparent 并为每个请求创建 server span，
// 同时把 trace id 写回 X-Trace-Id 响应头.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request

		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}

		parent := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		ctx, span := tracing.StartSpan(parent, req.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(req.Method),
				semconv.HTTPRoute(route),
				semconv.URLPath(req.URL.Path),
				semconv.ServerAddress(req.Host),
				semconv.UserAgentOriginal(req.UserAgent()),
				semconv.ClientAddress(c.ClientIP()),
			),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header("X-Trace-Id", sc.TraceID().String())
		}

		c.Request = req.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))

		switch {
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, "status "+strconv.Itoa(status))
		case len(c.Errors) > 0:
			span.SetStatus(codes.Error, c.Errors.String())
		}
	}
}
