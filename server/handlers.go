package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"musicshare/core/account"
	"musicshare/core/apperr"
	"musicshare/core/auth"
	"musicshare/core/catalog"
	"musicshare/logger"
	"musicshare/repository"
	"musicshare/storage"

	"github.com/gorilla/mux"
)

// maxBodyBytes caps JSON and form bodies; media uploads have their own limit.
const maxBodyBytes = 1 << 20

// APIHandler holds the services the HTTP handlers delegate to.
type APIHandler struct {
	accounts *account.Service
	catalog  *catalog.Service
	tokens   *auth.TokenService
	users    repository.UserRepository
	media    storage.MediaStore // nil when no object store is configured
	secure   bool
	limiter  *RateLimiter
	metrics  *Metrics
}

// HandlerOption customises an APIHandler.
type HandlerOption func(*APIHandler)

// WithMediaStore enables the upload and media download routes.
func WithMediaStore(m storage.MediaStore) HandlerOption {
	return func(h *APIHandler) { h.media = m }
}

// WithSecureCookies marks the session cookie Secure, for deployments behind TLS.
func WithSecureCookies(secure bool) HandlerOption {
	return func(h *APIHandler) { h.secure = secure }
}

// WithLoginLimiter rate limits /token and /register per client address.
func WithLoginLimiter(l *RateLimiter) HandlerOption {
	return func(h *APIHandler) { h.limiter = l }
}

// WithMetrics records request metrics and serves them on GET /metrics.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *APIHandler) { h.metrics = m }
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	accounts *account.Service,
	catalogSvc *catalog.Service,
	tokens *auth.TokenService,
	users repository.UserRepository,
	opts ...HandlerOption,
) *APIHandler {
	h := &APIHandler{
		accounts: accounts,
		catalog:  catalogSvc,
		tokens:   tokens,
		users:    users,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrInvalidFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": "..."}. Unclassified errors are logged
// and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		logger.Error("Request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("requestID", requestIDFrom(r.Context())),
			logger.ErrorField(err))
		msg = "internal server error"
	case http.StatusUnauthorized:
		// 不泄露令牌解析细节
		msg = auth.ErrInvalidToken.Error()
		if errors.Is(err, account.ErrInvalidCredentials) {
			msg = account.ErrInvalidCredentials.Error()
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", apperr.ErrInvalidFormat)
	}
	return nil
}

// pageFrom reads ?skip=&limit=; malformed values fall back to the defaults.
func pageFrom(r *http.Request) repository.Page {
	q := r.URL.Query()
	var p repository.Page
	if v, err := strconv.Atoi(q.Get("skip")); err == nil {
		p.Skip = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = v
	}
	return p.Normalize()
}

// aliasVar returns a validated alias path variable.
func aliasVar(r *http.Request, name string) (string, error) {
	alias := mux.Vars(r)[name]
	if err := catalog.ValidateAlias(alias); err != nil {
		return "", err
	}
	return alias, nil
}
