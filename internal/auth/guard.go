package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/crucial707/book-catalog/internal/models"
	"github.com/crucial707/book-catalog/internal/repo"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID   int64
	Username string
}

// RequestContext is the part of an inbound request the guard and login need.
type RequestContext interface {
	Header(name string) string
	Decode(v any) error
}

// HTTPRequest adapts *http.Request to RequestContext.
type HTTPRequest struct {
	R *http.Request
}

func (h HTTPRequest) Header(name string) string {
	return h.R.Header.Get(name)
}

// Decode reads a JSON body, or a form-encoded body mapped onto v's json field names.
func (h HTTPRequest) Decode(v any) error {
	ct, _, _ := mime.ParseMediaType(h.R.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := h.R.ParseForm(); err != nil {
			return err
		}
		flat := make(map[string]string, len(h.R.PostForm))
		for k := range h.R.PostForm {
			flat[k] = h.R.PostForm.Get(k)
		}
		b, err := json.Marshal(flat)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, v)
	}
	return json.NewDecoder(h.R.Body).Decode(v)
}

// UserLookup resolves a token subject to a live user.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Guard turns a bearer token into an Identity.
type Guard struct {
	tokens *TokenService
	users  UserLookup
}

func NewGuard(tokens *TokenService, users UserLookup) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authorize verifies bearer and checks that its user still exists. Store failures
// other than a missing user are returned wrapped, not as ErrUnauthorized.
func (g *Guard) Authorize(ctx context.Context, bearer string) (Identity, error) {
	if bearer == "" {
		return Identity{}, ErrUnauthorized
	}
	id, err := g.tokens.Verify(bearer)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	user, err := g.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			slog.Debug("token subject no longer exists", "user_id", id)
			return Identity{}, ErrUnauthorized
		}
		return Identity{}, fmt.Errorf("authorize: %w", err)
	}
	return Identity{UserID: user.ID, Username: user.Username}, nil
}

// AuthorizeRequest reads the Authorization header from rc and calls Authorize.
func (g *Guard) AuthorizeRequest(ctx context.Context, rc RequestContext) (Identity, error) {
	token, ok := BearerToken(rc.Header("Authorization"))
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	return g.Authorize(ctx, token)
}

// Middleware rejects requests without a valid bearer token and stores the Identity
// in the request context for handlers.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := g.AuthorizeRequest(r.Context(), HTTPRequest{R: r})
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				writeError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			slog.Error("authorize request", "err", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

// IdentityFrom returns the Identity stored by Middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(Identity)
	return ident, ok
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
