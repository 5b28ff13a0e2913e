package auth

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore keeps accounts in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Authenticate(username, password string) error {
	var stored string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE username = ?`, username).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrInvalidCredentials
	case err != nil:
		return fmt.Errorf("lookup user: %w", err)
	}
	return compare(stored, password)
}

func (s *SQLiteStore) Register(username, password string) error {
	if err := Validate(username, password); err != nil {
		return err
	}

	h, err := hash(password, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`INSERT INTO users (username, password_hash) VALUES (?, ?) ON CONFLICT(username) DO NOTHING`, username, h)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserExists
	}

	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
