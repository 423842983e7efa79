package controller

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/pkg/ctxlogger"
	"github.com/go-chi/chi/v5/middleware"
)

const requestIdHeader = "X-Request-Id"

// requestIdMw reuses an inbound X-Request-Id when present and echoes it back.
func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := strings.TrimSpace(r.Header.Get(requestIdHeader))
		if requestId == "" || len(requestId) > 64 {
			requestId = c.generateTimeBasedId()
		}
		w.Header().Set(requestIdHeader, requestId)

		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", requestId))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/healthz") {
			next.ServeHTTP(w, r)
			return
		}

		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		c.logger.InfoContext(r.Context(), "response",
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
