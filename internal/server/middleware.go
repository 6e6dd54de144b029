package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/authgate/internal/auth"
	"github.com/omarluq/authgate/internal/config"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one listed runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestIDMiddleware attaches base, tagged with the request ID, to the
// request context and echoes X-Request-ID.
func RequestIDMiddleware(base zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := base.WithContext(r.Context())
			ctx = AddRequestID(ctx, r.Header.Get("X-Request-ID"))
			w.Header().Set("X-Request-ID", GetRequestID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs each request's completion with status and duration.
// When the runtime config enables it, login form fields are logged at debug
// level with PII redacted.
func LoggingMiddleware(runtime config.RuntimeConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := zerolog.Ctx(r.Context()).With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			if runtime != nil && runtime.Get().Logging.LogFormFields && isForm(r) {
				if err := r.ParseForm(); err == nil {
					logger.Debug().
						Str("form", RedactFields(PIIFields, Redaction, r.PostForm.Encode(), "&")).
						Msg("request form")
				}
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			event := logger.Info()
			switch {
			case wrapped.statusCode >= 500:
				event = logger.Error()
			case wrapped.statusCode >= 400:
				event = logger.Warn()
			}
			event.
				Int("status", wrapped.statusCode).
				Str("duration", formatDuration(duration)).
				Msg(statusSymbol(wrapped.statusCode) + " " + http.StatusText(wrapped.statusCode))
		})
	}
}

func isForm(r *http.Request) bool {
	return r.Method == http.MethodPost &&
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

// AuthMiddleware lets a request through only when strategy allows it. A
// missing credential gets 401, a credential that resolves to nobody 403.
// The resolved identity is stored with auth.WithIdentity.
func AuthMiddleware(strategy auth.Strategy) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			outcome, identity := auth.Decide(ctx, strategy, auth.FromHTTP(r))

			switch outcome {
			case auth.Unauthorized:
				zerolog.Ctx(ctx).Warn().Str("auth_type", string(strategy.Type())).Msg("authentication failed: no credentials")
				WriteError(w, http.StatusUnauthorized, ErrTypeAuthentication, "Unauthorized")
				return
			case auth.Forbidden:
				zerolog.Ctx(ctx).Warn().Str("auth_type", string(strategy.Type())).Msg("authentication failed: unknown credentials")
				WriteError(w, http.StatusForbidden, ErrTypePermission, "Forbidden")
				return
			}

			if id, ok := identity.Get(); ok {
				zerolog.Ctx(ctx).Debug().Str("user_id", id.ID).Msg("authentication succeeded")
				ctx = withUserLogger(auth.WithIdentity(ctx, id), id)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withUserLogger(ctx context.Context, id auth.Identity) context.Context {
	logger := zerolog.Ctx(ctx).With().Str("user_id", id.ID).Logger()
	return logger.WithContext(ctx)
}

func statusSymbol(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "✗"
	case statusCode >= 400:
		return "⚠"
	default:
		return "✓"
	}
}

// formatDuration picks µs, ms or s so fast requests stay readable.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Microsecond)
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return d.Truncate(time.Second).String()
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
