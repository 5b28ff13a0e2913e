package auth

import (
	"bufio"
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// FileStore keeps one user:secret line per account in a flat file. New
// accounts store a bcrypt hash. Older files holding plaintext passwords
// still authenticate, and each such entry is rehashed on its first
// successful login.
type FileStore struct {
	mu    sync.Mutex
	path  string
	order []string
	users map[string]string
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, users: make(map[string]string)}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("open credential file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		user, secret, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok || user == "" {
			continue
		}
		if _, dup := s.users[user]; !dup {
			s.users[user] = secret
			s.order = append(s.order, user)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	return s, nil
}

func hashed(secret string) bool {
	_, err := bcrypt.Cost([]byte(secret))
	return err == nil
}

func (s *FileStore) Authenticate(username, password string) error {
	s.mu.Lock()
	stored, ok := s.users[username]
	s.mu.Unlock()

	if !ok {
		return ErrInvalidCredentials
	}
	if hashed(stored) {
		return compare(stored, password)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return ErrInvalidCredentials
	}

	// A failed upgrade leaves the plaintext entry usable.
	_ = s.upgrade(username, stored, password)

	return nil
}

// upgrade replaces the plaintext secret of username with a bcrypt hash
// and rewrites the file.
func (s *FileStore) upgrade(username, plain, password string) error {
	h, err := hash(password, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[username] != plain {
		return nil
	}

	s.users[username] = h
	if err := s.rewriteLocked(); err != nil {
		s.users[username] = plain
		return err
	}

	return nil
}

func (s *FileStore) rewriteLocked() error {
	var buf bytes.Buffer
	for _, user := range s.order {
		fmt.Fprintf(&buf, "%s:%s\n", user, s.users[user])
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("rewrite credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("rewrite credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rewrite credential file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rewrite credential file: %w", err)
	}

	return nil
}

func (s *FileStore) Register(username, password string) error {
	if err := Validate(username, password); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}

	h, err := hash(password, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open credential file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s:%s\n", username, h); err != nil {
		return fmt.Errorf("append credential: %w", err)
	}

	s.users[username] = h
	s.order = append(s.order, username)

	return nil
}

func (s *FileStore) Close() error { return nil }
