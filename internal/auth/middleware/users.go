package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-iq/internal/db"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrBadCredentials = errors.New("invalid credentials")
	ErrUserExists     = errors.New("user already exists")
	ErrWeakInput      = errors.New("username and a password of at least 8 characters are required")
)

type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// UserStore is the identity collaborator: opaque id, display name, role.
type UserStore struct {
	db   *sql.DB
	cost int
}

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db, cost: 12} }

// WithCost returns a copy using a different bcrypt cost (tests use MinCost).
func (s *UserStore) WithCost(cost int) *UserStore {
	return &UserStore{db: s.db, cost: cost}
}

func normalizeUsername(u string) string { return strings.ToLower(strings.TrimSpace(u)) }

func (s *UserStore) Create(ctx context.Context, username, password, displayName, role string) (User, error) {
	username = normalizeUsername(username)
	if username == "" || len(password) < 8 {
		return User{}, ErrWeakInput
	}
	if role != RoleUser && role != RoleAdmin {
		return User{}, fmt.Errorf("invalid role: %s", role)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, err
	}
	u := User{ID: uuid.NewString(), Username: username, DisplayName: displayName, Role: role}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Username, u.DisplayName, string(hash), u.Role, time.Now().Unix()); err != nil {
		// the unique index on username decides between concurrent registrations
		if db.IsUniqueViolation(err) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, password_hash FROM users WHERE username=$1`,
		normalizeUsername(username)).Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrBadCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

// Role returns the stored role for a user id.
func (s *UserStore) Role(ctx context.Context, id string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&role)
	return role, err
}
