package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"sqlgate/internal/domain"
)

// UserService manages user accounts and login.
type UserService struct {
	users     domain.UserRepository
	audit     domain.AuditRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewUserService creates a new UserService. Issued tokens are HS256-signed
// with the given secret and expire after ttl.
func NewUserService(users domain.UserRepository, audit domain.AuditRepository, jwtSecret string, ttl time.Duration) *UserService {
	return &UserService{
		users:     users,
		audit:     audit,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// Create registers a user with a bcrypt-hashed password.
func (s *UserService) Create(ctx context.Context, u *domain.User, password string) (*domain.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.create(ctx, u, password)
}

// Bootstrap creates a user without an authenticated caller. Used by the CLI
// to create the first admin account.
func (s *UserService) Bootstrap(ctx context.Context, u *domain.User, password string) (*domain.User, error) {
	return s.create(ctx, u, password)
}

func (s *UserService) create(ctx context.Context, u *domain.User, password string) (*domain.User, error) {
	if u.Username == "" {
		return nil, domain.ErrValidation("username is required")
	}
	if len(password) < 8 {
		return nil, domain.ErrValidation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = string(hash)
	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "CREATE_USER",
		Resource:  created.Username,
		Outcome:   domain.OutcomeAllowed,
	})
	return created, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// Update modifies a user's profile fields. The password hash is preserved.
func (s *UserService) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = existing.PasswordHash
	return s.users.Update(ctx, u)
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

// Login verifies credentials and issues a signed token. Failed attempts are
// audited but return an identical error either way, so a caller cannot probe
// which usernames exist.
func (s *UserService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		_ = s.audit.Insert(ctx, &domain.AuditEntry{
			Principal: username,
			Action:    "LOGIN",
			Outcome:   domain.OutcomeDenied,
		})
		return "", nil, domain.ErrAccessDenied("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		_ = s.audit.Insert(ctx, &domain.AuditEntry{
			Principal: username,
			Action:    "LOGIN",
			Outcome:   domain.OutcomeDenied,
		})
		return "", nil, domain.ErrAccessDenied("invalid credentials")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.Username,
		"admin": user.IsAdmin,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: username,
		Action:    "LOGIN",
		Outcome:   domain.OutcomeAllowed,
	})
	return signed, user, nil
}
