package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func exercise(t *testing.T, s Store) {
	t.Helper()

	if err := s.Register("alice", "wonderland"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register("alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate Register = %v, want ErrUserExists", err)
	}
	if err := s.Authenticate("alice", "wonderland"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := s.Authenticate("alice", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v", err)
	}
	if err := s.Authenticate("bob", "wonderland"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, s)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "wonderland") {
		t.Fatal("password stored in clear text")
	}
	if !strings.HasPrefix(string(raw), "alice:") {
		t.Fatalf("unexpected file contents %q", raw)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.Authenticate("alice", "wonderland"); err != nil {
		t.Fatalf("Authenticate after reopen: %v", err)
	}
}

func TestFileStoreUpgradesPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	if err := os.WriteFile(path, []byte("alice:secret\nbob:builder\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate(wrong) = %v", err)
	}
	if err := s.Authenticate("alice", "secret"); err != nil {
		t.Fatalf("Authenticate(plaintext) = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "alice:$2") || lines[1] != "bob:builder" {
		t.Fatalf("unexpected file contents %q", raw)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	for user, pass := range map[string]string{"alice": "secret", "bob": "builder"} {
		if err := reopened.Authenticate(user, pass); err != nil {
			t.Fatalf("Authenticate(%s) after reopen: %v", user, err)
		}
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer s.Close()

	exercise(t, s)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		user, pass string
		want       error
	}{
		{"alice", "pw", nil},
		{"", "pw", ErrMissingFields},
		{"alice", "", ErrMissingFields},
		{"a:b", "pw", ErrInvalidUsername},
		{"a b", "pw", ErrInvalidUsername},
		{strings.Repeat("x", MaxUsername+1), "pw", ErrTooLong},
	}
	for _, tt := range tests {
		if got := Validate(tt.user, tt.pass); !errors.Is(got, tt.want) {
			t.Fatalf("Validate(%q, %q) = %v, want %v", tt.user, tt.pass, got, tt.want)
		}
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("ldap", ""); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("Open = %v", err)
	}
}
