package handler

import (
	"net/http"
	"strings"

	"netpanel/internal/auth"
	"netpanel/internal/metrics"
)

// AuthHandler issues bearer tokens
type AuthHandler struct {
	mgr     *auth.Manager
	metrics *metrics.Registry
}

// NewAuthHandler creates a new auth handler. m may be nil.
func NewAuthHandler(mgr *auth.Manager, m *metrics.Registry) *AuthHandler {
	return &AuthHandler{mgr: mgr, metrics: m}
}

// TokenResponse is the body returned by POST /token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// UserResponse is the body returned by GET /user
type UserResponse struct {
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token exchanges a username and password for a bearer token. Both form
// and JSON bodies are accepted.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if h.mgr == nil {
		writeError(w, "Authentication disabled", "no users are configured", http.StatusNotFound)
		return
	}

	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			writeServiceError(w, "Invalid request body", err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	user, err := h.mgr.Authenticate(req.Username, req.Password)
	if err != nil {
		h.metrics.RecordAuthFailure()
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, "Incorrect username or password", "", http.StatusUnauthorized)
		return
	}

	token, err := h.mgr.IssueToken(user)
	if err != nil {
		writeServiceError(w, "Failed to issue token", err)
		return
	}

	writeJSON(w, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.mgr.TokenTTL().Seconds()),
	}, http.StatusOK)
}

// User returns the user of the request token
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, "Authentication disabled", "no users are configured", http.StatusNotFound)
		return
	}
	permissions := user.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	writeJSON(w, UserResponse{Username: user.Username, Permissions: permissions}, http.StatusOK)
}
