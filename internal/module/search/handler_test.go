package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gamelib/internal/domain"
	"github.com/simp-lee/gamelib/internal/middleware"
	"github.com/simp-lee/gamelib/internal/module/auth"
	"github.com/simp-lee/gamelib/internal/workflow"
)

const testSID = "0b8f7c8e-2d0f-4b43-9a2e-6a1d8f3c9b10"

// fakeCatalog serves total fabricated games for any term.
type fakeCatalog struct {
	total int
	err   error
}

func (f *fakeCatalog) Search(_ context.Context, term string, page int) (*domain.SearchPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(term) == "" {
		return nil, domain.NewAppError(domain.CodeValidation, "search term is required", nil)
	}
	var items []domain.SearchResultItem
	for i := (page - 1) * domain.SearchPageSize; i < f.total && i < page*domain.SearchPageSize; i++ {
		items = append(items, domain.SearchResultItem{
			ID:        i + 1,
			Name:      fmt.Sprintf("%s %d", term, i+1),
			Platforms: []domain.Platform{{ID: 4, Name: "PC"}},
		})
	}
	return &domain.SearchPage{Results: items, TotalCount: f.total}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	userIDs []string
	entries []domain.PendingEntry
	err     error
}

func (f *fakeStore) Add(_ context.Context, userID string, entry domain.PendingEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if userID == "" {
		return domain.NewAppError(domain.CodeUnauthorized, "user must be signed in to add games", nil)
	}
	f.userIDs = append(f.userIDs, userID)
	f.entries = append(f.entries, entry)
	return nil
}

type testEnv struct {
	router  *gin.Engine
	catalog *fakeCatalog
	store   *fakeStore
	reg     *Registry
}

// newTestEnv wires the module behind the session middleware. userID 0 keeps
// requests anonymous.
func newTestEnv(userID uint) *testEnv {
	gin.SetMode(gin.TestMode)
	env := &testEnv{catalog: &fakeCatalog{total: 45}, store: &fakeStore{}}
	env.reg = NewRegistry(func(s *auth.Session) *workflow.Workflow {
		return workflow.New(env.catalog, env.store, s, nil)
	}, time.Minute, nil)

	r := gin.New()
	r.SetHTMLTemplate(testTemplates())
	r.Use(middleware.Session("gamelib_sid"))
	if userID != 0 {
		r.Use(func(c *gin.Context) {
			middleware.SetCurrentUser(c, &domain.User{BaseModel: domain.BaseModel{ID: userID}})
		})
	}
	NewModule(NewWorkflowHandler(env.reg), NewGamesHandler(env.catalog), NewSearchPageHandler(env.reg)).
		RegisterRoutes(r.Group("/api/v1"), r.Group("/"))
	env.router = r
	return env
}

type viewEnvelope struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    workflow.View `json:"data"`
}

func (e *testEnv) call(t *testing.T, method, path, body string) (int, viewEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(middleware.SessionHeader, testSID)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env viewEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: unmarshal %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func TestWorkflowAPI_SearchAndPaginate(t *testing.T) {
	env := newTestEnv(7)

	code, resp := env.call(t, http.MethodPost, "/api/v1/workflow/search", `{"term":"zelda"}`)
	if code != http.StatusOK {
		t.Fatalf("search: %d %s", code, resp.Message)
	}
	p := resp.Data.Pagination
	if p.PageCount != 3 || p.CurrentPage != 1 || p.TotalResults != 45 || !p.Visible {
		t.Errorf("pagination = %+v", p)
	}
	if resp.Data.UserID != "7" || resp.Data.Term != "zelda" {
		t.Errorf("view = %+v", resp.Data)
	}

	code, resp = env.call(t, http.MethodPost, "/api/v1/workflow/page", `{"page":3}`)
	if code != http.StatusOK {
		t.Fatalf("page: %d %s", code, resp.Message)
	}
	if resp.Data.Pagination.CurrentPage != 3 || len(resp.Data.Results) != 5 || resp.Data.Results[0].ID != 41 {
		t.Errorf("page 3 view = %+v", resp.Data.Pagination)
	}

	code, resp = env.call(t, http.MethodPost, "/api/v1/workflow/page", `{"page":4}`)
	if code != http.StatusBadRequest || resp.Message != "page is out of range" {
		t.Errorf("out of range: %d %q", code, resp.Message)
	}
	if !resp.Data.Alert.Visible || resp.Data.Alert.Severity != workflow.SeverityError {
		t.Errorf("expected error alert in view, got %+v", resp.Data.Alert)
	}
}

func TestWorkflowAPI_SearchFailureSurfacesAlert(t *testing.T) {
	env := newTestEnv(7)
	env.catalog.err = domain.NewAppError(domain.CodeUnavailable, "game search is unavailable", errors.New("timeout"))

	code, resp := env.call(t, http.MethodPost, "/api/v1/workflow/search", `{"term":"zelda"}`)
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
	if resp.Data.Alert.Message != "game search is unavailable" || !resp.Data.Alert.Visible {
		t.Errorf("alert = %+v", resp.Data.Alert)
	}
}

func TestWorkflowAPI_SelectChooseConfirm(t *testing.T) {
	env := newTestEnv(7)
	env.call(t, http.MethodPost, "/api/v1/workflow/search", `{"term":"zelda"}`)

	code, resp := env.call(t, http.MethodPost, "/api/v1/workflow/select", `{"id":2}`)
	if code != http.StatusOK || !resp.Data.Modal.Open || resp.Data.Modal.Selected.ID != 2 {
		t.Fatalf("select: %d %+v", code, resp.Data.Modal)
	}
	if len(resp.Data.Modal.Statuses) != 6 || len(resp.Data.Modal.Platforms) != 1 {
		t.Errorf("modal options = %+v", resp.Data.Modal)
	}

	code, resp = env.call(t, http.MethodPut, "/api/v1/workflow/choice", `{"platform":"PC","status":"playing"}`)
	if code != http.StatusOK || resp.Data.Modal.Platform != "PC" || resp.Data.Modal.Status != "playing" {
		t.Fatalf("choice: %d %+v", code, resp.Data.Modal)
	}

	code, resp = env.call(t, http.MethodPost, "/api/v1/workflow/confirm", "")
	if code != http.StatusOK {
		t.Fatalf("confirm: %d %s", code, resp.Message)
	}
	if resp.Data.Alert.Message != workflow.SuccessMessage || resp.Data.Modal.Open || resp.Data.Modal.Selected != nil {
		t.Errorf("view after confirm = %+v", resp.Data)
	}
	if len(env.store.entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(env.store.entries))
	}
	if e := env.store.entries[0]; e.ID != 2 || e.Platform != "PC" || e.Status != "playing" || e.Notes != "" || env.store.userIDs[0] != "7" {
		t.Errorf("stored %+v for %q", e, env.store.userIDs[0])
	}

	code, resp = env.call(t, http.MethodPost, "/api/v1/workflow/alert/dismiss", "")
	if code != http.StatusOK || resp.Data.Alert.Visible || resp.Data.Alert.Message != workflow.SuccessMessage {
		t.Errorf("dismiss: %d %+v", code, resp.Data.Alert)
	}
}

func TestWorkflowAPI_ConfirmWithoutSelection(t *testing.T) {
	env := newTestEnv(7)

	code, resp := env.call(t, http.MethodPost, "/api/v1/workflow/confirm", "")
	if code != http.StatusBadRequest || resp.Message != "no game selected" {
		t.Fatalf("got %d %q", code, resp.Message)
	}
	if len(env.store.entries) != 0 {
		t.Error("store must not be called without a selection")
	}
}

func TestWorkflowAPI_AnonymousConfirmFails(t *testing.T) {
	env := newTestEnv(0)
	env.call(t, http.MethodPost, "/api/v1/workflow/search", `{"term":"zelda"}`)
	env.call(t, http.MethodPost, "/api/v1/workflow/select", `{"id":1}`)

	code, resp := env.call(t, http.MethodPost, "/api/v1/workflow/confirm", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if resp.Data.Alert.Message != "user must be signed in to add games" {
		t.Errorf("alert = %+v", resp.Data.Alert)
	}
}

func TestWorkflowAPI_CloseKeepsSelection(t *testing.T) {
	env := newTestEnv(7)
	env.call(t, http.MethodPost, "/api/v1/workflow/search", `{"term":"zelda"}`)
	env.call(t, http.MethodPost, "/api/v1/workflow/select", `{"id":1}`)

	_, resp := env.call(t, http.MethodPost, "/api/v1/workflow/close", "")
	if resp.Data.Modal.Open || resp.Data.Modal.Selected == nil {
		t.Errorf("modal = %+v", resp.Data.Modal)
	}
}

func TestWorkflowAPI_Validation(t *testing.T) {
	env := newTestEnv(7)
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/v1/workflow/page", `{"page":0}`},
		{http.MethodPost, "/api/v1/workflow/select", `{}`},
		{http.MethodPost, "/api/v1/workflow/search", `{"term":"zelda","page":-1}`},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: expected 400, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestWorkflowAPI_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(7)
	env.call(t, http.MethodPost, "/api/v1/workflow/search", `{"term":"zelda"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflow", nil)
	req.Header.Set(middleware.SessionHeader, "5f3c7c0e-9d1b-4c55-8f7d-2b6f0a4e1c22")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp viewEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.Term != "" || len(resp.Data.Results) != 0 || resp.Data.Pagination.Visible {
		t.Errorf("second session sees foreign state: %+v", resp.Data)
	}
	if env.reg.Len() != 2 {
		t.Errorf("Len = %d, want 2", env.reg.Len())
	}
}

func TestWorkflowAPI_SetTerm(t *testing.T) {
	env := newTestEnv(7)

	code, resp := env.call(t, http.MethodPut, "/api/v1/workflow/term", `{"term":"metroid"}`)
	if code != http.StatusOK || resp.Data.Term != "metroid" {
		t.Errorf("got %d %+v", code, resp.Data)
	}
}

func TestGamesAPI(t *testing.T) {
	env := newTestEnv(0)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"ok", "/api/v1/games?q=zelda&page=2", http.StatusOK},
		{"missing term", "/api/v1/games", http.StatusBadRequest},
		{"bad page", "/api/v1/games?q=zelda&page=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Data struct {
					Results    []domain.SearchResultItem `json:"results"`
					TotalCount int                       `json:"total_count"`
					PageCount  int                       `json:"page_count"`
				} `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Data.TotalCount != 45 || resp.Data.PageCount != 3 || len(resp.Data.Results) != 20 || resp.Data.Results[0].ID != 21 {
				t.Errorf("data = %+v", resp.Data)
			}
		})
	}
}
