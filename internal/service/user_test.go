package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sqlgate/internal/domain"
	"sqlgate/internal/testutil"
)

const testSecret = "test-secret-0123456789"

func TestUserService_Create(t *testing.T) {
	repo := &testutil.MockUserRepo{
		CreateFn: func(_ context.Context, u *domain.User) (*domain.User, error) {
			u.ID = "u-9"
			return u, nil
		},
	}
	svc := NewUserService(repo, &testutil.MockAuditRepo{}, testSecret, time.Hour)

	created, err := svc.Create(adminCtx(), &domain.User{Username: "bo"}, "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u-9", created.ID)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("hunter2hunter2")))
}

func TestUserService_Create_ShortPassword(t *testing.T) {
	svc := NewUserService(&testutil.MockUserRepo{}, &testutil.MockAuditRepo{}, testSecret, time.Hour)

	_, err := svc.Create(adminCtx(), &domain.User{Username: "bo"}, "short")
	var invalid *domain.ValidationError
	assert.ErrorAs(t, err, &invalid)
}

func TestUserService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &testutil.MockUserRepo{
		GetByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			if username != "ana" {
				return nil, domain.ErrNotFound("user %s not found", username)
			}
			return &domain.User{ID: "u-1", Username: "ana", PasswordHash: string(hash), IsAdmin: true}, nil
		},
	}
	audit := &testutil.MockAuditRepo{}
	svc := NewUserService(repo, audit, testSecret, time.Hour)

	token, user, err := svc.Login(context.Background(), "ana", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, domain.OutcomeAllowed, audit.LastEntry().Outcome)

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "u-1", claims["sub"])
	assert.Equal(t, true, claims["admin"])
}

func TestUserService_Login_BadCredentialsIndistinguishable(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &testutil.MockUserRepo{
		GetByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			if username != "ana" {
				return nil, domain.ErrNotFound("user %s not found", username)
			}
			return &domain.User{ID: "u-1", Username: "ana", PasswordHash: string(hash)}, nil
		},
	}
	audit := &testutil.MockAuditRepo{}
	svc := NewUserService(repo, audit, testSecret, time.Hour)

	_, _, wrongPass := svc.Login(context.Background(), "ana", "wrong")
	_, _, noUser := svc.Login(context.Background(), "ghost", "wrong")
	require.Error(t, wrongPass)
	require.Error(t, noUser)
	assert.Equal(t, wrongPass.Error(), noUser.Error())
	assert.Len(t, audit.Entries, 2)
	assert.Equal(t, domain.OutcomeDenied, audit.Entries[0].Outcome)
}

func TestUserService_Update_PreservesHash(t *testing.T) {
	repo := &testutil.MockUserRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "ana", PasswordHash: "keep-me"}, nil
		},
		UpdateFn: func(_ context.Context, u *domain.User) (*domain.User, error) {
			return u, nil
		},
	}
	svc := NewUserService(repo, &testutil.MockAuditRepo{}, testSecret, time.Hour)

	updated, err := svc.Update(adminCtx(), &domain.User{ID: "u-1", Username: "ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "keep-me", updated.PasswordHash)
}
