package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAPIURL = "http://localhost:8080"
	tokenFileName = ".book_catalog_token"
)

// ErrNotLoggedIn is returned by LoadToken when no token has been saved.
var ErrNotLoggedIn = errors.New("not logged in: run `bookcat users login` first")

// APIURL returns the base URL for the book catalog API.
// It can be overridden with the BOOK_CATALOG_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("BOOK_CATALOG_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return defaultAPIURL
}

// TokenPath is ~/.book_catalog_token unless BOOK_CATALOG_TOKEN_FILE is set.
func TokenPath() string {
	if v := os.Getenv("BOOK_CATALOG_TOKEN_FILE"); v != "" {
		return v
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, tokenFileName)
}

func SaveToken(token string) error {
	return os.WriteFile(TokenPath(), []byte(token), 0o600)
}

func LoadToken() (string, error) {
	data, err := os.ReadFile(TokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotLoggedIn
		}
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

// RemoveToken deletes the saved token. It reports false when there was none.
func RemoveToken() (bool, error) {
	err := os.Remove(TokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
