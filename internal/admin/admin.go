package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alumni/internal/store"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("incorrect username or password")

// Admin is the account allowed to use the protected endpoints.
type Admin struct {
	ID           string
	Email        string
	PasswordHash string
}

// Repository persists admin accounts.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo over a connection or transaction.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

// FindByEmail returns the admin registered with email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	var a Admin
	err := r.db.QueryRowContext(ctx, `SELECT id, email, password FROM admin WHERE lower(email) = lower($1)`, email).
		Scan(&a.ID, &a.Email, &a.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a.
func (r *Repository) Create(ctx context.Context, a Admin) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO admin (id, email, password) VALUES ($1, $2, $3)`,
		a.ID, a.Email, a.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// Service authenticates and provisions admin accounts.
type Service struct {
	repo   *Repository
	logger zerolog.Logger
}

// NewService creates an admin service.
func NewService(db store.DBTX, logger zerolog.Logger) *Service {
	return &Service{repo: NewRepository(db), logger: logger.With().Str("component", "admin").Logger()}
}

// Authenticate checks the credentials and returns the admin.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Admin, error) {
	a, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrInvalidCredentials
	}
	ok, err := CheckPassword(a.PasswordHash, password)
	if err != nil {
		s.logger.Warn().Err(err).Str("admin_id", a.ID).Msg("password check failed")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// Create provisions an admin with a bcrypt-hashed password. The returned id
// is the value to configure as ADMIN_UUID.
func (s *Service) Create(ctx context.Context, email, password string) (Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Admin{}, errors.New("email and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Admin{}, err
	}
	a := Admin{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, a); err != nil {
		return Admin{}, err
	}
	return a, nil
}
