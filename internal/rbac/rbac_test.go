package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerDefaults(t *testing.T) {
	c := NewChecker(nil)
	if !c.Has("user", AttemptSubmit) {
		t.Fatalf("user should submit attempts")
	}
	if c.Has("user", EventsRead) {
		t.Fatalf("user should not read the event log")
	}
	if !c.Has("admin", EventsRead) {
		t.Fatalf("admin wildcard should match")
	}
	if c.Has("ghost", TestView) {
		t.Fatalf("unknown role must have no permissions")
	}
}

func TestPrefixWildcard(t *testing.T) {
	c := NewChecker(map[string][]Permission{"grader": {"attempt:*"}})
	if !c.Any("grader", TestView, AttemptViewOwn) {
		t.Fatalf("prefix wildcard should match attempt:view-own")
	}
	if c.Has("grader", TestView) {
		t.Fatalf("prefix wildcard leaked to test:view")
	}
}

func TestRequireMiddleware(t *testing.T) {
	h := Require(DashboardView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("no role: got %d, want 403", rec.Code)
	}

	req = req.WithContext(WithRole(req.Context(), "user"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("user role: got %d, want 204", rec.Code)
	}
}
