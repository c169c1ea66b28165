package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crucial707/book-catalog/internal/auth"
	"github.com/crucial707/book-catalog/internal/metrics"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Creds  *auth.Credentials
	Tokens *auth.TokenService
}

// credentialsInput accepts the secret as "password" or "secret"; password wins when both are sent.
type credentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Secret   string `json:"secret"`
}

func (in credentialsInput) secret() string {
	if in.Password != "" {
		return in.Password
	}
	return in.Secret
}

func (in credentialsInput) missing() map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Username) == "" {
		fields["username"] = "required"
	}
	if strings.TrimSpace(in.secret()) == "" {
		fields["password"] = "required"
	}
	return fields
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ==========================
// Register
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input credentialsInput
	if err := (auth.HTTPRequest{R: r}).Decode(&input); err != nil {
		decodeFailed(w, err)
		return
	}
	if fields := input.missing(); len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	user, err := h.Creds.Register(r.Context(), input.Username, input.secret())
	switch {
	case errors.Is(err, auth.ErrDuplicateIdentity):
		JSONError(w, "username already registered", http.StatusConflict)
		return
	case errors.Is(err, auth.ErrInvalidInput):
		JSONError(w, "invalid username or password", http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("register: create user", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// ==========================
// Login (JSON or form-encoded username/password)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input credentialsInput
	if err := (auth.HTTPRequest{R: r}).Decode(&input); err != nil {
		decodeFailed(w, err)
		return
	}
	if fields := input.missing(); len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	user, err := h.Creds.Authenticate(r.Context(), input.Username, input.secret())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordLogin(false)
			JSONError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		slog.Error("login: authenticate", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		slog.Error("login: issue token", "err", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	metrics.RecordLogin(true)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(h.Tokens.TTL().Seconds()),
	})
}
