package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"musicshare/core/apperr"
	"musicshare/core/auth"
	"musicshare/logger"

	"github.com/google/uuid"
)

// TokenCookie is the cookie the session token travels in.
const TokenCookie = "access_token"

type contextKey int

const (
	identityKey contextKey = iota
	claimsKey
	requestIDKey
)

// identityFrom returns the caller set by AuthMiddleware.
func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// tokenFrom reads the session token from the cookie, falling back to an
// Authorization: Bearer header.
func tokenFrom(r *http.Request) string {
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return strings.TrimPrefix(c.Value, "Bearer ")
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware validates the session token and loads the caller, so rights
// are always read from the store rather than from the token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFrom(r)
		if raw == "" {
			writeError(w, r, fmt.Errorf("%w: not authenticated", apperr.ErrUnauthorized))
			return
		}

		claims, err := h.tokens.Validate(r.Context(), raw)
		if err != nil {
			writeError(w, r, err)
			return
		}

		user, err := h.users.GetByID(r.Context(), claims.UserID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		if err != nil || user.Username != claims.Subject {
			// 令牌有效但用户已不存在
			writeError(w, r, auth.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, auth.IdentityOf(user))
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// corsMiddleware 添加 CORS 头
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware tags each request with an id and logs its outcome.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, reqID)))

		logger.Info("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("duration", time.Since(start)),
			logger.String("requestID", reqID))
	})
}
