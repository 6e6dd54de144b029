package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/auth"
	"github.com/omarluq/authgate/internal/config"
	"github.com/omarluq/authgate/internal/health"
	"github.com/omarluq/authgate/internal/ratelimit"
	"github.com/omarluq/authgate/internal/session"
)

// Users finds accounts for the login endpoint.
type Users interface {
	FindByEmail(ctx context.Context, email string) mo.Option[auth.Identity]
	FindByCredentials(ctx context.Context, email, password string) mo.Option[auth.Identity]
}

// HealthReporter returns the latest backend health.
type HealthReporter interface {
	Status() health.Status
}

// Options wires a Handler. Strategy and Users are required.
type Options struct {
	Strategy auth.Strategy
	Users    Users
	Runtime  config.RuntimeConfig

	// Sessions, when set, is reported by /api/v1/stats.
	Sessions session.Counter

	// Limiter throttles the login endpoint per client address.
	Limiter *ratelimit.KeyedLimiter

	// Health, when set, is reported by /health.
	Health HealthReporter

	Logger zerolog.Logger

	CookieName string

	// SessionTTL sets the cookie Max-Age. Zero makes it a browser-session cookie.
	SessionTTL time.Duration
}

// Handler serves the authgate HTTP API.
type Handler struct {
	opts Options
	mux  *http.ServeMux
}

// NewHandler builds the route table:
//   - GET /api/v1/status, /api/v1/stats, /api/v1/unauthorized, /api/v1/forbidden
//   - POST /api/v1/auth_session/login, DELETE /api/v1/auth_session/logout
//   - GET /api/v1/users/me
//   - GET /health (outside the auth gate)
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Strategy == nil {
		return nil, errors.New("server: strategy is required")
	}
	if opts.Users == nil {
		return nil, errors.New("server: user directory is required")
	}
	if opts.CookieName == "" {
		opts.CookieName = auth.DefaultCookieName
	}

	h := &Handler{opts: opts, mux: http.NewServeMux()}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/status", h.status)
	api.HandleFunc("GET /api/v1/status/{$}", h.status)
	api.HandleFunc("GET /api/v1/stats", h.stats)
	api.HandleFunc("GET /api/v1/stats/{$}", h.stats)
	api.HandleFunc("GET /api/v1/unauthorized", h.unauthorized)
	api.HandleFunc("GET /api/v1/unauthorized/{$}", h.unauthorized)
	api.HandleFunc("GET /api/v1/forbidden", h.forbidden)
	api.HandleFunc("GET /api/v1/forbidden/{$}", h.forbidden)
	api.HandleFunc("POST /api/v1/auth_session/login", h.login)
	api.HandleFunc("POST /api/v1/auth_session/login/{$}", h.login)
	api.HandleFunc("DELETE /api/v1/auth_session/logout", h.logout)
	api.HandleFunc("DELETE /api/v1/auth_session/logout/{$}", h.logout)
	api.HandleFunc("GET /api/v1/users/me", h.me)
	api.HandleFunc("GET /api/v1/users/me/{$}", h.me)
	api.HandleFunc("/", h.notFound)

	h.mux.Handle("/", Chain(api,
		RequestIDMiddleware(opts.Logger),
		LoggingMiddleware(opts.Runtime),
		AuthMiddleware(opts.Strategy),
	))
	h.mux.HandleFunc("GET /health", h.health)

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	stats := map[string]any{"auth_type": h.opts.Strategy.Type()}
	if h.opts.Sessions != nil {
		stats["sessions"] = h.opts.Sessions.Len()
	}
	if h.opts.Limiter != nil {
		stats["login_rate"] = h.opts.Limiter.GetUsage()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) unauthorized(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusUnauthorized, ErrTypeAuthentication, "Unauthorized")
}

func (h *Handler) forbidden(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusForbidden, ErrTypePermission, "Forbidden")
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, ErrTypeNotFound, "Not found")
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	if h.opts.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status := h.opts.Health.Status()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context()).Get()
	if !ok {
		h.notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if h.opts.Limiter != nil && !h.opts.Limiter.Allow(clientKey(r)) {
		logger.Warn().Str("client", clientKey(r)).Msg("login rate limited")
		WriteRateLimitError(w, h.opts.Limiter.RetryAfter())
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		WriteError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "email missing")
		return
	}
	password := r.FormValue("password")
	if password == "" {
		WriteError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "password missing")
		return
	}

	if h.opts.Users.FindByEmail(ctx, email).IsAbsent() {
		WriteError(w, http.StatusNotFound, ErrTypeNotFound, "no user found for this email")
		return
	}
	identity, ok := h.opts.Users.FindByCredentials(ctx, email, password).Get()
	if !ok {
		logger.Warn().Msg("login failed: wrong password")
		WriteError(w, http.StatusUnauthorized, ErrTypeAuthentication, "wrong password")
		return
	}

	token, err := h.opts.Strategy.CreateSession(ctx, identity.ID)
	switch {
	case errors.Is(err, auth.ErrUnsupported):
		WriteError(w, http.StatusNotImplemented, ErrTypeNotSupported,
			"the configured authentication type does not support sessions")
		return
	case err != nil:
		logger.Error().Err(err).Str("user_id", identity.ID).Msg("session creation failed")
		WriteError(w, http.StatusInternalServerError, ErrTypeAPI, "could not create session")
		return
	}

	http.SetCookie(w, h.sessionCookie(token))
	logger.Info().Str("user_id", identity.ID).Str("session", session.Redact(token)).Msg("session created")
	writeJSON(w, http.StatusOK, identity)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ended, err := h.opts.Strategy.EndSession(ctx, auth.FromHTTP(r))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("session destroy failed")
		WriteError(w, http.StatusInternalServerError, ErrTypeAPI, "could not end session")
		return
	}
	if !ended {
		h.notFound(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) sessionCookie(token string) *http.Cookie {
	c := &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.opts.SessionTTL > 0 {
		c.MaxAge = int(h.opts.SessionTTL.Seconds())
	}
	return c
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
