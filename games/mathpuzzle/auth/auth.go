// Package auth stores player credentials.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MaxUsername = 32
	MaxPassword = 64
)

var (
	ErrUserExists         = errors.New("Username already exists")
	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrMissingFields      = errors.New("Username and password required")
	ErrInvalidUsername    = errors.New("Username may not contain '|', ':' or whitespace")
	ErrTooLong            = errors.New("Username or password too long")
	ErrUnknownBackend     = errors.New("unknown credential store")
)

// Store verifies and records credentials.
type Store interface {
	// Authenticate returns ErrInvalidCredentials on mismatch or unknown user.
	Authenticate(username, password string) error
	// Register returns ErrUserExists if the name is taken.
	Register(username, password string) error
	Close() error
}

// Validate checks the shape of a username and password pair.
func Validate(username, password string) error {
	switch {
	case username == "" || password == "":
		return ErrMissingFields
	case utf8.RuneCountInString(username) > MaxUsername, utf8.RuneCountInString(password) > MaxPassword:
		return ErrTooLong
	case strings.ContainsAny(username, "|:"), strings.IndexFunc(username, unicode.IsSpace) >= 0:
		return ErrInvalidUsername
	case strings.ContainsAny(password, "|\r\n"):
		return ErrInvalidCredentials
	}
	return nil
}

// Open returns the backend named by kind: file, sqlite or memory.
func Open(kind, path string) (Store, error) {
	switch kind {
	case "file":
		return NewFileStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

func hash(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func compare(stored, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}
