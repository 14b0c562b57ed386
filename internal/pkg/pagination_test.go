package pkg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"
	dbtest "gorm.io/gorm/utils/tests"

	"github.com/simp-lee/gamelib/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var collectionFields = []string{"name", "status", "platform", "created_at"}

func newTestContext(queryParams url.Values) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/collection?"+queryParams.Encode(), nil)
	return c
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(dbtest.DummyDialector{}, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return db
}

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		name         string
		query        url.Values
		wantPage     int
		wantPageSize int
		wantSort     string
		wantFilter   map[string]string
	}{
		{"defaults", url.Values{}, 1, 20, "created_at:desc", map[string]string{}},
		{
			"custom values",
			url.Values{"page": {"3"}, "page_size": {"50"}, "sort": {"name:asc"}, "status": {"playing"}, "name__like": {"zelda"}},
			3, 50, "name:asc",
			map[string]string{"status": "playing", "name__like": "zelda"},
		},
		{"page below minimum", url.Values{"page": {"0"}}, 1, 20, "created_at:desc", map[string]string{}},
		{"negative page", url.Values{"page": {"-5"}}, 1, 20, "created_at:desc", map[string]string{}},
		{"page_size below minimum", url.Values{"page_size": {"0"}}, 1, 20, "created_at:desc", map[string]string{}},
		{"negative page_size", url.Values{"page_size": {"-5"}}, 1, 20, "created_at:desc", map[string]string{}},
		{"page_size above maximum", url.Values{"page_size": {"200"}}, 1, 100, "created_at:desc", map[string]string{}},
		{"invalid page_size", url.Values{"page_size": {"abc"}}, 1, 20, "created_at:desc", map[string]string{}},
		{"empty filter values ignored", url.Values{"status": {""}, "platform": {"PC"}}, 1, 20, "created_at:desc", map[string]string{"platform": "PC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := ParsePageRequest(newTestContext(tt.query))
			if pr.Page != tt.wantPage || pr.PageSize != tt.wantPageSize || pr.Sort != tt.wantSort {
				t.Errorf("got page=%d size=%d sort=%q; want %d %d %q",
					pr.Page, pr.PageSize, pr.Sort, tt.wantPage, tt.wantPageSize, tt.wantSort)
			}
			if len(pr.Filter) != len(tt.wantFilter) {
				t.Fatalf("Filter = %v, want %v", pr.Filter, tt.wantFilter)
			}
			for k, v := range tt.wantFilter {
				if pr.Filter[k] != v {
					t.Errorf("Filter[%s] = %q, want %q", k, pr.Filter[k], v)
				}
			}
		})
	}
}

func TestMapPageError(t *testing.T) {
	dbErr := domain.NewAppError(domain.CodeInternal, "database error", errors.New("disk I/O"))

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantSame error
	}{
		{"mapped callback error", fmt.Errorf("sliceCallback failed: %w", dbErr), domain.CodeInternal, dbErr},
		{"page zero", pagination.ErrInvalidPageNumber, domain.CodeValidation, nil},
		{"bad page size", fmt.Errorf("%w: items per page must be greater than 0", pagination.ErrInvalidConfig), domain.CodeValidation, nil},
		{"cancelled", context.Canceled, 0, context.Canceled},
		{"unknown", errors.New("boom"), domain.CodeInternal, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPageError(tt.err)
			if tt.wantSame != nil && got != tt.wantSame {
				t.Errorf("MapPageError() = %v, want %v", got, tt.wantSame)
			}
			if tt.wantCode == 0 {
				return
			}
			var appErr *domain.AppError
			if !errors.As(got, &appErr) || appErr.Code != tt.wantCode {
				t.Errorf("MapPageError() = %v, want code %d", got, tt.wantCode)
			}
		})
	}
	if MapPageError(nil) != nil {
		t.Error("MapPageError(nil) should be nil")
	}
}

func TestValidFieldName(t *testing.T) {
	valid := []string{"id", "name", "created_at", "background_image", "_private"}
	invalid := []string{"", "1field", "name;DROP", "field name", "a.b", "a-b"}

	for _, f := range valid {
		if !validFieldName.MatchString(f) {
			t.Errorf("expected %q to be valid", f)
		}
	}
	for _, f := range invalid {
		if validFieldName.MatchString(f) {
			t.Errorf("expected %q to be invalid", f)
		}
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name    string
		sort    string
		applied bool
	}{
		{"valid field asc", "name:asc", true},
		{"valid field desc", "created_at:desc", true},
		{"upper-case direction", "status:DESC", true},
		{"field not in allowed list", "user_id:asc", false},
		{"malformed no colon", "name", false},
		{"empty direction", "name:", false},
		{"invalid direction", "name:up", false},
		{"sql injection in field", "name;DROP TABLE collection_entries--:asc", false},
		{"sql injection attempt", "1=1;--:asc", false},
		{"empty field", ":asc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sort(domain.PageRequest{Sort: tt.sort}, collectionFields)(newTestDB(t))
			_, hasOrder := result.Statement.Clauses["ORDER BY"]
			if hasOrder != tt.applied {
				t.Errorf("Order clause applied=%v, want %v", hasOrder, tt.applied)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  map[string]string
		applied bool
	}{
		{"exact match", map[string]string{"status": "playing"}, true},
		{"like match", map[string]string{"name__like": "zelda"}, true},
		{"multiple fields", map[string]string{"status": "owned", "name__like": "mario"}, true},
		{"mixed valid and invalid", map[string]string{"status": "owned", "user_id": "7"}, true},
		{"field not in allowed", map[string]string{"user_id": "7"}, false},
		{"like field not in allowed", map[string]string{"user_id__like": "7"}, false},
		{"sql injection in key", map[string]string{"name;DROP TABLE--": "val"}, false},
		{"sql injection with spaces", map[string]string{"name OR 1=1": "val"}, false},
		{"empty filter map", map[string]string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Filter(domain.PageRequest{Filter: tt.filter}, collectionFields)(newTestDB(t))
			_, hasWhere := result.Statement.Clauses["WHERE"]
			if hasWhere != tt.applied {
				t.Errorf("Where clause applied=%v, want %v", hasWhere, tt.applied)
			}
		})
	}
}
