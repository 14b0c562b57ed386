package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRequestIDRouter(cfg RequestIDConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDWithConfig(cfg))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})
	r.GET("/ctx", func(c *gin.Context) {
		c.String(http.StatusOK, findAttrValue(logger.FromContext(c.Request.Context()), "request_id"))
	})
	return r
}

func findAttrValue(attrs []slog.Attr, key string) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value.String()
		}
	}
	return ""
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := w.Body.String()
	id, err := uuid.Parse(body)
	if err != nil {
		t.Fatalf("request id %q is not a UUID: %v", body, err)
	}
	if id.Version() != 7 {
		t.Errorf("expected UUID version 7, got %d", id.Version())
	}
	if got := w.Header().Get(RequestIDHeader); got != body {
		t.Errorf("response header = %q; want %q", got, body)
	}
}

func TestRequestID_UpstreamHeader(t *testing.T) {
	tests := []struct {
		name     string
		trust    bool
		upstream string
		reused   bool
	}{
		{"untrusted is replaced", false, "upstream-id-123", false},
		{"trusted is reused", true, "upstream-id-123", true},
		{"boundary 64 chars reused", true, strings.Repeat("a", 64), true},
		{"too long replaced", true, strings.Repeat("a", 65), false},
		{"bad charset replaced", true, "bad id<script>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRequestIDRouter(RequestIDConfig{TrustUpstream: tt.trust})
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(RequestIDHeader, tt.upstream)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Body.String() == tt.upstream; got != tt.reused {
				t.Errorf("reused = %v, want %v (id %q)", got, tt.reused, w.Body.String())
			}
		})
	}
}

func TestRequestID_StoredInGoContext(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{TrustUpstream: true})

	req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
	req.Header.Set(RequestIDHeader, "ctx-test-456")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Body.String(); got != "ctx-test-456" {
		t.Errorf("context request_id = %q, want ctx-test-456", got)
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	r := setupRequestIDRouter(RequestIDConfig{})
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		id := w.Body.String()
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetRequestID(c); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
}
