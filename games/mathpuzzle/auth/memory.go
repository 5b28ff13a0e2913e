package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MemoryStore keeps accounts for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]string)}
}

func (s *MemoryStore) Authenticate(username, password string) error {
	s.mu.RLock()
	stored, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		return ErrInvalidCredentials
	}
	return compare(stored, password)
}

func (s *MemoryStore) Register(username, password string) error {
	if err := Validate(username, password); err != nil {
		return err
	}

	h, err := hash(password, bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}
	s.users[username] = h

	return nil
}

func (s *MemoryStore) Close() error { return nil }
