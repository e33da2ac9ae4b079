package server

import (
	"fmt"
	"mime"
	"net/http"
	"time"

	"musicshare/core/apperr"
	"musicshare/core/auth"
	"musicshare/logger"
	"musicshare/model"
)

// credentials is the login and registration body. Both form-encoded and JSON
// bodies are accepted.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AccountResponse is returned by GET /account.
type AccountResponse struct {
	Username  string            `json:"username"`
	Bio       string            `json:"bio"`
	Rights    model.Rights      `json:"rights"`
	Playlists []*model.Playlist `json:"playlists"`
}

func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		if err := decodeJSON(w, r, &c); err != nil {
			return c, err
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return c, fmt.Errorf("%w: invalid form body", apperr.ErrInvalidFormat)
		}
		c.Username = r.PostForm.Get("username")
		c.Password = r.PostForm.Get("password")
	}
	if c.Username == "" || c.Password == "" {
		return c, fmt.Errorf("%w: username and password are required", apperr.ErrInvalidFormat)
	}
	return c, nil
}

func (h *APIHandler) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoginHandler exchanges a username and password for a session token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		logger.Warn("[Login] 登录失败", logger.String("username", creds.Username))
		writeError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(r.Context(), auth.Subject{UserID: user.ID, Username: user.Username})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("[Login] 登录成功", logger.String("username", user.Username))
	h.setTokenCookie(w, token, expiresAt)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// RegisterHandler creates an ordinary user and redirects to the login page.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.accounts.CreateUser(r.Context(), creds.Username, creds.Password); err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

// AuthPageHandler describes how to log in; registration redirects here.
func (h *APIHandler) AuthPageHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"login":    "POST /token with username and password",
		"register": "POST /register with username and password",
	})
}

// LogoutHandler revokes the caller's token, when revocation is enabled, and
// clears the session cookie.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Revoke(r.Context(), claimsFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": h.tokens.RevocationEnabled()})
}

// AccountHandler returns the caller's profile and playlists.
func (h *APIHandler) AccountHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	user, playlists, err := h.accounts.Account(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{
		Username:  user.Username,
		Bio:       user.Bio,
		Rights:    user.Rights,
		Playlists: playlists,
	})
}
