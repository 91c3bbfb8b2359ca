package store

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ramavio/paperchat/internal/domain"
)

var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned on a failed login check.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserStore handles accounts and auth tokens. The surrounding web plumbing
// treats it as a credential-check collaborator.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store using the given database.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// hashPassword produces a salted sha256 digest in "salt$hex" form.
func hashPassword(password string) string {
	salt := make([]byte, 16)
	rand.Read(salt)
	sum := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(sum[:])
}

// checkPassword verifies a password against a stored "salt$hex" digest.
func checkPassword(stored, password string) bool {
	salt, digest, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(append(saltBytes, []byte(password)...))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(digest)) == 1
}

// Register creates a new account and returns it.
func (s *UserStore) Register(username, password string) (*domain.User, error) {
	now := time.Now()
	res, err := s.db.sql.Exec(
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		username, hashPassword(password), now.Format(time.DateTime),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}
	return &domain.User{ID: id, Username: username, CreatedAt: now}, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *UserStore) Authenticate(username, password string) (*domain.User, error) {
	var u domain.User
	var createdAt string
	err := s.db.sql.QueryRow(
		`SELECT id, username, password, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Password, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !checkPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}

	u.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return &u, nil
}

// Get returns a user by id, or nil if not found.
func (s *UserStore) Get(id int64) *domain.User {
	var u domain.User
	var createdAt string
	err := s.db.sql.QueryRow(
		`SELECT id, username, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &createdAt)
	if err != nil {
		return nil
	}
	u.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return &u
}

// CreateToken mints an opaque session token for a user.
func (s *UserStore) CreateToken(userID int64) (string, error) {
	token := uuid.New().String()
	_, err := s.db.sql.Exec(
		`INSERT INTO auth_tokens (token, user_id, created_at) VALUES (?, ?, ?)`,
		token, userID, time.Now().Format(time.DateTime),
	)
	if err != nil {
		return "", fmt.Errorf("creating token: %w", err)
	}
	return token, nil
}

// UserByToken resolves a session token to its user, or nil.
func (s *UserStore) UserByToken(token string) *domain.User {
	var userID int64
	err := s.db.sql.QueryRow(
		`SELECT user_id FROM auth_tokens WHERE token = ?`, token,
	).Scan(&userID)
	if err != nil {
		return nil
	}
	return s.Get(userID)
}

// DeleteToken invalidates a session token (logout).
func (s *UserStore) DeleteToken(token string) {
	_, _ = s.db.sql.Exec(`DELETE FROM auth_tokens WHERE token = ?`, token)
}
