package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/users"
	pkgAuth "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/auth"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/auth/session"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/config"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "unit-test-secret",
	Issuer:            "ghazali-test",
	ExpirationMinutes: 15,
}

type stubUserRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (r *stubUserRepo) add(user *models.User) {
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
}

func (r *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if _, exists := r.byEmail[dto.Email]; exists {
		return nil, gorm.ErrDuplicatedKey
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	r.add(user)
	return user, nil
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := r.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := r.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if user, ok := r.byID[id]; ok {
		user.LastLoginAt = &at
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r *stubUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	if user, ok := r.byID[id]; ok {
		user.PasswordHash = hash
		return nil
	}
	return gorm.ErrRecordNotFound
}

type stubSession struct {
	tokens  map[string]string
	rotated int
}

func newStubSession() *stubSession {
	return &stubSession{tokens: map[string]string{}}
}

func (s *stubSession) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + uuid.NewString()
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSession) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newAccessID := session.NewAccessID()
	token := "refresh-" + uuid.NewString()
	s.tokens[newAccessID] = token
	s.rotated++
	return newAccessID, token, nil
}

func (s *stubSession) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	return nil
}

func newAuthService(t *testing.T, repo userRepository, sessions sessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedCustomer(t *testing.T, repo *stubUserRepo, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Ayesha",
		LastName:     "Khan",
		Role:         pkgAuth.RoleCustomer,
		IsActive:     true,
	}
	repo.add(user)
	return user
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("createsCustomerAndIssuesTokens", func(t *testing.T) {
		repo := newStubUserRepo()
		svc := newAuthService(t, repo, newStubSession())

		resp, err := svc.Register(ctx, RegisterRequest{
			FirstName: "Ayesha",
			LastName:  "Khan",
			Email:     "  Ayesha@Example.com ",
			Password:  "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if resp.AccessToken == "" || resp.RefreshToken == "" {
			t.Fatal("expected token pair")
		}
		if resp.User.Email != "ayesha@example.com" {
			t.Fatalf("email not normalized: %q", resp.User.Email)
		}
		if resp.User.Role != pkgAuth.RoleCustomer {
			t.Fatalf("expected customer role, got %q", resp.User.Role)
		}

		claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
		if err != nil {
			t.Fatalf("parse token: %v", err)
		}
		if claims.UserID != resp.User.ID || claims.IsAdmin() {
			t.Fatalf("unexpected claims: %+v", claims)
		}
	})

	t.Run("duplicateEmailConflicts", func(t *testing.T) {
		repo := newStubUserRepo()
		seedCustomer(t, repo, "ayesha@example.com", "s3cret-pass")
		svc := newAuthService(t, repo, newStubSession())

		_, err := svc.Register(ctx, RegisterRequest{
			FirstName: "Ayesha",
			LastName:  "Khan",
			Email:     "ayesha@example.com",
			Password:  "s3cret-pass",
		})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("shortPasswordRejected", func(t *testing.T) {
		svc := newAuthService(t, newStubUserRepo(), newStubSession())
		_, err := svc.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "short"})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := newStubUserRepo()
		user := seedCustomer(t, repo, "ayesha@example.com", "s3cret-pass")
		svc := newAuthService(t, repo, newStubSession())

		resp, err := svc.Login(ctx, LoginRequest{Email: "Ayesha@Example.com", Password: "s3cret-pass"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if resp.User.ID != user.ID {
			t.Fatal("wrong user returned")
		}
		if user.LastLoginAt == nil {
			t.Fatal("expected last login to be stamped")
		}
	})

	t.Run("wrongPassword", func(t *testing.T) {
		repo := newStubUserRepo()
		seedCustomer(t, repo, "ayesha@example.com", "s3cret-pass")
		svc := newAuthService(t, repo, newStubSession())

		_, err := svc.Login(ctx, LoginRequest{Email: "ayesha@example.com", Password: "wrong-pass"})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("inactiveAccountRejected", func(t *testing.T) {
		repo := newStubUserRepo()
		user := seedCustomer(t, repo, "ayesha@example.com", "s3cret-pass")
		user.IsActive = false
		svc := newAuthService(t, repo, newStubSession())

		_, err := svc.Login(ctx, LoginRequest{Email: "ayesha@example.com", Password: "s3cret-pass"})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("unknownEmailLooksLikeBadCredentials", func(t *testing.T) {
		svc := newAuthService(t, newStubUserRepo(), newStubSession())
		_, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever"})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotatesSession", func(t *testing.T) {
		repo := newStubUserRepo()
		seedCustomer(t, repo, "ayesha@example.com", "s3cret-pass")
		sessions := newStubSession()
		svc := newAuthService(t, repo, sessions)

		login, err := svc.Login(ctx, LoginRequest{Email: "ayesha@example.com", Password: "s3cret-pass"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}

		refreshed, err := svc.Refresh(ctx, RefreshRequest{
			AccessToken:  login.AccessToken,
			RefreshToken: login.RefreshToken,
		})
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if refreshed.RefreshToken == login.RefreshToken {
			t.Fatal("refresh token was not rotated")
		}
		if sessions.rotated != 1 {
			t.Fatalf("expected 1 rotation, got %d", sessions.rotated)
		}

		// The old pair is burned.
		_, err = svc.Refresh(ctx, RefreshRequest{
			AccessToken:  login.AccessToken,
			RefreshToken: login.RefreshToken,
		})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized on replay, got %v", err)
		}
	})

	t.Run("mismatchedRefreshToken", func(t *testing.T) {
		repo := newStubUserRepo()
		seedCustomer(t, repo, "ayesha@example.com", "s3cret-pass")
		svc := newAuthService(t, repo, newStubSession())

		login, err := svc.Login(ctx, LoginRequest{Email: "ayesha@example.com", Password: "s3cret-pass"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}

		_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: "forged"})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := newStubUserRepo()
		user := seedCustomer(t, repo, "ayesha@example.com", "s3cret-pass")
		svc := newAuthService(t, repo, newStubSession())

		err := svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{
			CurrentPassword: "s3cret-pass",
			NewPassword:     "even-m0re-secret",
		})
		if err != nil {
			t.Fatalf("change password: %v", err)
		}

		if _, err := svc.Login(ctx, LoginRequest{Email: "ayesha@example.com", Password: "even-m0re-secret"}); err != nil {
			t.Fatalf("login with new password: %v", err)
		}
	})

	t.Run("wrongCurrentPassword", func(t *testing.T) {
		repo := newStubUserRepo()
		user := seedCustomer(t, repo, "ayesha@example.com", "s3cret-pass")
		svc := newAuthService(t, repo, newStubSession())

		err := svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{
			CurrentPassword: "wrong",
			NewPassword:     "even-m0re-secret",
		})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}
