package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/rezerveme/internal/model"
	"github.com/hitoshi/rezerveme/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn  func(ctx context.Context, email string) (*model.User, error)
	createFn       func(ctx context.Context, user *model.User) error
	markVerifiedFn func(ctx context.Context, token string) (bool, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) MarkVerified(ctx context.Context, token string) (bool, error) {
	if m.markVerifiedFn != nil {
		return m.markVerifiedFn(ctx, token)
	}
	return false, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.AuthSession) error
	findByIDFn       func(ctx context.Context, id string) (*model.AuthSession, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.AuthSession) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.AuthSession, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

// テスト用に低コストでハッシュを生成する。
func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

// --- テスト ---

func TestSignUp_CreatesUnverifiedUserWithToken(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400, BcryptCost: bcrypt.MinCost})

	user, err := svc.SignUp(context.Background(), "a@x.com", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("user was not persisted")
	}
	if user.Verified {
		t.Error("new user should not be verified")
	}
	if user.VerificationToken == "" {
		t.Error("verification token should be issued")
	}
	if user.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", user.Email, "a@x.com")
	}
	if user.PasswordHash == "secret123" {
		t.Error("password must not be stored in plain text")
	}
}

func TestSignUp_RejectsDuplicateEmail(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing", Email: email}, nil
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, err := svc.SignUp(context.Background(), "a@x.com", "secret123")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestSignIn_IssuesSessionForVerifiedUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Email:        email,
				PasswordHash: hashPassword(t, "secret123"),
				Verified:     true,
			}, nil
		},
	}
	var saved *model.AuthSession
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, session *model.AuthSession) error {
			saved = session
			return nil
		},
	}
	svc := NewService(userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 3600, BcryptCost: bcrypt.MinCost})

	session, user, err := svc.SignIn(context.Background(), "a@x.com", "secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.ID == "" {
		t.Error("session ID should be generated")
	}
	if session.UserID != "user-1" {
		t.Errorf("session.UserID = %q, want %q", session.UserID, "user-1")
	}
	if user.Email != "a@x.com" {
		t.Errorf("user.Email = %q, want %q", user.Email, "a@x.com")
	}
	if saved == nil {
		t.Fatal("session was not persisted")
	}
	if !saved.ExpiresAt.After(time.Now()) {
		t.Error("session should expire in the future")
	}
}

func TestSignIn_RejectsWrongPassword(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Email:        email,
				PasswordHash: hashPassword(t, "secret123"),
				Verified:     true,
			}, nil
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, _, err := svc.SignIn(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignIn_RejectsUnknownUser(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, _, err := svc.SignIn(context.Background(), "nobody@x.com", "secret123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignIn_RejectsUnverifiedUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Email:        email,
				PasswordHash: hashPassword(t, "secret123"),
				Verified:     false,
			}, nil
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, _, err := svc.SignIn(context.Background(), "a@x.com", "secret123")
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Errorf("err = %v, want ErrEmailNotVerified", err)
	}
}

func TestSignOut_DeletesSession(t *testing.T) {
	var deleted string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := NewService(&mockUserRepo{}, sessionRepo, ServiceConfig{})

	if err := svc.SignOut(context.Background(), "session-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "session-1" {
		t.Errorf("deleted = %q, want %q", deleted, "session-1")
	}
}

func TestSignOut_RequiresSessionID(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{})

	if err := svc.SignOut(context.Background(), ""); err == nil {
		t.Error("expected error for empty session ID")
	}
}

func TestGetCurrentUser_ReturnsNilForUnknownSession(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{})

	user, session, err := svc.GetCurrentUser(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil || session != nil {
		t.Error("expected nil user and session for unknown session ID")
	}
}

func TestGetCurrentUser_ResolvesUserFromSession(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.AuthSession, error) {
			return &model.AuthSession{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "a@x.com", Verified: true}, nil
		},
	}
	svc := NewService(userRepo, sessionRepo, ServiceConfig{})

	user, session, err := svc.GetCurrentUser(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.Email != "a@x.com" {
		t.Errorf("user = %+v, want email a@x.com", user)
	}
	if session == nil || session.ID != "session-1" {
		t.Errorf("session = %+v, want ID session-1", session)
	}
}

func TestVerify_EmptyTokenIsRejected(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, ServiceConfig{})

	ok, err := svc.Verify(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("empty token must not verify any user")
	}
}
