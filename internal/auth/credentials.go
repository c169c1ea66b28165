package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/book-catalog/internal/models"
	"github.com/crucial707/book-catalog/internal/repo"
)

// UserStore is the persistence the credential store needs. repo.UserRepo and
// memory.UserStore both satisfy it.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// Credentials registers users and checks their secrets.
type Credentials struct {
	store UserStore
	cost  int

	dummyOnce sync.Once
	dummyHash string
}

// CredentialsOption configures Credentials.
type CredentialsOption func(*Credentials)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) CredentialsOption {
	return func(c *Credentials) { c.cost = cost }
}

func NewCredentials(store UserStore, opts ...CredentialsOption) *Credentials {
	c := &Credentials{store: store, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates a user with a hashed secret. Uniqueness is enforced by the store,
// so two concurrent registrations of one name yield one user and one ErrDuplicateIdentity.
func (c *Credentials) Register(ctx context.Context, username, secret string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || secret == "" {
		return nil, ErrInvalidInput
	}

	hash, err := HashSecret(secret, c.cost)
	if err != nil {
		return nil, err
	}

	user, err := c.store.Create(ctx, username, hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	return user, nil
}

// FindByUsername returns the user or an error wrapping repo.ErrNotFound.
func (c *Credentials) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.store.GetByUsername(ctx, strings.TrimSpace(username))
}

func (c *Credentials) VerifySecret(user *models.User, secret string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return compareSecret(user.PasswordHash, secret)
}

// Authenticate returns the user when username and secret match. An unknown user and a
// wrong secret both return ErrInvalidCredentials and both cost one bcrypt comparison.
func (c *Credentials) Authenticate(ctx context.Context, username, secret string) (*models.User, error) {
	user, err := c.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			compareSecret(c.dummy(), secret)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !c.VerifySecret(user, secret) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (c *Credentials) dummy() string {
	c.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("dummy-secret-for-timing"), c.cost)
		if err == nil {
			c.dummyHash = string(h)
		}
	})
	return c.dummyHash
}
