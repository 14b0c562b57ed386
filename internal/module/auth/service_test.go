package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/gamelib/internal/domain"
)

// --- fakes ---

// fakeIssuer implements Issuer and records the user id it was asked for.
type fakeIssuer struct {
	token     string
	err       error
	issuedTo  uint
	revokeErr error
	revoked   []string
}

func (f *fakeIssuer) Revoke(token string) error {
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

func (f *fakeIssuer) Issue(userID uint) (string, time.Time, error) {
	f.issuedTo = userID
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.token, time.Unix(1700000000, 0), nil
}

// fakeUserRepo implements domain.UserRepository for testing.
type fakeUserRepo struct {
	user      *domain.User
	getErr    error
	createErr error
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	u.ID = 1
	return nil
}
func (f *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.user, nil
}
func (f *fakeUserRepo) GetByID(context.Context, uint) (*domain.User, error) { return nil, nil }

// --- helpers ---

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

// --- Login tests ---

func TestLogin_Success(t *testing.T) {
	pw := "secret1234"
	user := &domain.User{Name: "Alice", Email: "alice@example.com", PasswordHash: hashPassword(t, pw)}
	user.ID = 42

	svc := NewService(&fakeIssuer{token: "jwt-token-abc"}, &fakeUserRepo{user: user})

	resp, err := svc.Login(context.Background(), "alice@example.com", pw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token != "jwt-token-abc" {
		t.Errorf("token = %q; want %q", resp.Token, "jwt-token-abc")
	}
	if resp.ExpiresAt == 0 {
		t.Error("ExpiresAt should be non-zero")
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc := NewService(&fakeIssuer{}, &fakeUserRepo{getErr: domain.ErrNotFound})

	_, err := svc.Login(context.Background(), "nobody@example.com", "password")
	if !domain.IsUnauthorized(err) {
		t.Errorf("expected unauthorized error, got: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := &domain.User{Name: "Alice", Email: "alice@example.com", PasswordHash: hashPassword(t, "correct")}
	user.ID = 1

	svc := NewService(&fakeIssuer{}, &fakeUserRepo{user: user})

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	if !domain.IsUnauthorized(err) {
		t.Errorf("expected unauthorized error, got: %v", err)
	}
}

func TestLogin_IssuesTokenForUser(t *testing.T) {
	pw := "secret1234"
	user := &domain.User{Name: "Bob", Email: "bob@example.com", PasswordHash: hashPassword(t, pw)}
	user.ID = 99

	issuer := &fakeIssuer{token: "tok"}
	svc := NewService(issuer, &fakeUserRepo{user: user})

	resp, err := svc.Login(context.Background(), "bob@example.com", pw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issuer.issuedTo != 99 {
		t.Errorf("token issued for user %d; want 99", issuer.issuedTo)
	}
	if resp.UserID != "99" {
		t.Errorf("UserID = %q; want %q", resp.UserID, "99")
	}
	if resp.ExpiresAt != 1700000000 {
		t.Errorf("ExpiresAt = %d; want 1700000000", resp.ExpiresAt)
	}
}

func TestLogin_IssueErrorIsInternal(t *testing.T) {
	pw := "secret1234"
	user := &domain.User{Name: "Alice", Email: "alice@example.com", PasswordHash: hashPassword(t, pw)}
	user.ID = 1

	svc := NewService(&fakeIssuer{err: errors.New("sign failed")}, &fakeUserRepo{user: user})

	_, err := svc.Login(context.Background(), "alice@example.com", pw)
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *domain.AppError, got %T (%v)", err, err)
	}
	if appErr.Code != domain.CodeInternal {
		t.Errorf("expected CodeInternal, got %v", appErr.Code)
	}
}

// --- Register tests ---

func TestRegister_Success(t *testing.T) {
	svc := NewService(&fakeIssuer{}, &fakeUserRepo{})

	user, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Name != "Alice" {
		t.Errorf("name = %q; want %q", user.Name, "Alice")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q; want %q", user.Email, "alice@example.com")
	}
	if user.PasswordHash == "" {
		t.Error("PasswordHash should be set")
	}
	// Verify the hash is valid bcrypt
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewService(&fakeIssuer{}, &fakeUserRepo{createErr: domain.ErrAlreadyExists})

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password123")
	if !domain.IsAlreadyExists(err) {
		t.Errorf("expected already-exists error, got: %v", err)
	}
}

func TestSignUp_ReturnsToken(t *testing.T) {
	issuer := &fakeIssuer{token: "fresh"}
	svc := NewService(issuer, &fakeUserRepo{})

	resp, err := svc.SignUp(context.Background(), " Alice ", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token != "fresh" || resp.UserID != "1" {
		t.Errorf("resp = %+v; want token fresh for user 1", resp)
	}
}

func TestSignUp_ValidationFailureIssuesNothing(t *testing.T) {
	issuer := &fakeIssuer{token: "fresh"}
	svc := NewService(issuer, &fakeUserRepo{})

	_, err := svc.SignUp(context.Background(), "Alice", "not-an-email", "password123")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if issuer.issuedTo != 0 {
		t.Errorf("no token should be issued, got one for user %d", issuer.issuedTo)
	}
}

// --- validateRegisterInput tests ---

func TestValidateRegisterInput(t *testing.T) {
	tests := []struct {
		name     string
		inName   string
		email    string
		password string
		wantErr  bool
	}{
		{"valid input", "Alice", "alice@example.com", "password123", false},
		{"empty name", "", "alice@example.com", "password123", true},
		{"whitespace-only name", "  ", "alice@example.com", "password123", true},
		{"empty email", "Alice", "", "password123", true},
		{"invalid email format", "Alice", "notanemail", "password123", true},
		{"malformed email", "Alice", "a@", "password123", true},
		{"password too short", "Alice", "alice@example.com", "short", true},
		{"password exactly 8 chars", "Alice", "alice@example.com", "exactly8", false},
		{"password exceeds 72 chars", "Alice", "alice@example.com", strings.Repeat("A", 73), true},
		{"password exactly 72 chars", "Alice", "alice@example.com", strings.Repeat("A", 72), false},
		{"name exceeds 100 characters", strings.Repeat("A", 101), "alice@example.com", "password123", true},
		{"name exactly 100 characters", strings.Repeat("A", 100), "alice@example.com", "password123", false},
		{"display-name format rejected", "Alice", "Alice <alice@example.com>", "password123", true},
		{"angle-bracket format rejected", "Alice", "<alice@example.com>", "password123", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRegisterInput(tt.inName, tt.email, tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got err=%v", tt.wantErr, err)
			}
		})
	}
}

// --- Logout tests ---

func TestLogout(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		revokeErr error
		wantErr   bool
		wantCalls int
	}{
		{"revokes token", "tok", nil, false, 1},
		{"empty token", "", nil, true, 0},
		{"revocation rejected", "forged", errors.New("jwt: invalid token"), true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := &fakeIssuer{revokeErr: tt.revokeErr}
			svc := NewService(issuer, &fakeUserRepo{})

			err := svc.Logout(context.Background(), tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Logout() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && domain.HTTPStatusCode(err) != 401 {
				t.Errorf("status = %d, want 401", domain.HTTPStatusCode(err))
			}
			if len(issuer.revoked) != tt.wantCalls {
				t.Errorf("Revoke called %d times, want %d", len(issuer.revoked), tt.wantCalls)
			}
		})
	}
}
