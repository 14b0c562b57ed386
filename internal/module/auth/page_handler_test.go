package auth

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/domain"
)

const testPageTemplates = `{{define "auth/login.html"}}login|{{.Error}}|{{.Email}}|{{.Next}}{{end}}` +
	`{{define "auth/register.html"}}register|{{.Error}}|{{.Name}}{{end}}`

func setupPageRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").Parse(testPageTemplates)))
	ph := NewPageHandler(svc, CookieConfig{Name: "gamelib_token"}, nil)
	NewModule(NewHandler(svc), ph).RegisterRoutes(r.Group("/api/v1"), r.Group("/"))
	return r
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "gamelib_token" {
			return c
		}
	}
	return nil
}

func TestLoginPage_Renders(t *testing.T) {
	r := setupPageRouter(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?next=/collection", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "login|||/collection" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestLogin_SetsCookieAndRedirects(t *testing.T) {
	r := setupPageRouter(&mockService{loginResp: &TokenResponse{Token: "tok", ExpiresAt: 1900000000, UserID: "4"}})

	w := postForm(r, "/login", url.Values{"email": {"a@example.com"}, "password": {"secret1234"}, "next": {"/collection"}})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/collection" {
		t.Errorf("Location = %q, want /collection", loc)
	}
	c := tokenCookie(w)
	if c == nil || c.Value != "tok" || !c.HttpOnly {
		t.Fatalf("unexpected token cookie %+v", c)
	}
}

func TestLogin_FailureRerendersForm(t *testing.T) {
	r := setupPageRouter(&mockService{loginErr: domain.ErrUnauthorized})

	w := postForm(r, "/login", url.Values{"email": {"a@example.com"}, "password": {"wrong"}})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "login|invalid credentials|a@example.com") {
		t.Errorf("body = %q", w.Body.String())
	}
	if tokenCookie(w) != nil {
		t.Error("no cookie expected on failure")
	}
}

func TestRegister_SignsIn(t *testing.T) {
	r := setupPageRouter(&mockService{loginResp: &TokenResponse{Token: "new", ExpiresAt: 1900000000, UserID: "9"}})

	w := postForm(r, "/register", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"secret1234"}})

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/search" {
		t.Fatalf("expected redirect to /search, got %d %q", w.Code, w.Header().Get("Location"))
	}
	if c := tokenCookie(w); c == nil || c.Value != "new" {
		t.Errorf("unexpected token cookie %+v", c)
	}
}

func TestRegister_FailureRerendersForm(t *testing.T) {
	r := setupPageRouter(&mockService{registerErr: domain.NewAppError(domain.CodeAlreadyExists, "email is already registered", nil)})

	w := postForm(r, "/register", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"secret1234"}})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if w.Body.String() != "register|email is already registered|Ada" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	r := setupPageRouter(&mockService{})

	w := postForm(r, "/logout", url.Values{})

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", w.Code, w.Header().Get("Location"))
	}
	c := tokenCookie(w)
	if c == nil || c.MaxAge >= 0 {
		t.Errorf("expected expiring cookie, got %+v", c)
	}
}

func TestLogout_RevokesCookieToken(t *testing.T) {
	svc := &mockService{}
	r := setupPageRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "gamelib_token", Value: "tok-abc"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if len(svc.revoked) != 1 || svc.revoked[0] != "tok-abc" {
		t.Errorf("revoked = %q, want [tok-abc]", svc.revoked)
	}
}

func TestLogout_WithoutCookieRevokesNothing(t *testing.T) {
	svc := &mockService{}
	r := setupPageRouter(svc)

	postForm(r, "/logout", url.Values{})

	if len(svc.revoked) != 0 {
		t.Errorf("revoked = %q, want none", svc.revoked)
	}
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/search"},
		{"/collection?page=2", "/collection?page=2"},
		{"https://evil.example/", "/search"},
		{"//evil.example/", "/search"},
		{"relative", "/search"},
	}
	for _, tt := range tests {
		if got := safeNext(tt.next); got != tt.want {
			t.Errorf("safeNext(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}
