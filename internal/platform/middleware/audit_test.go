package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientdetails/internal/platform/auth"
)

// mockRecorder collects audit entries for assertions.
type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(_ context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newTestContext(method, path string, opts ...func(*http.Request)) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func withAuth(userID string, roles []string) func(*http.Request) {
	return func(req *http.Request) {
		ctx := req.Context()
		ctx = context.WithValue(ctx, auth.UserIDKey, userID)
		ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
		*req = *req.WithContext(ctx)
	}
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_PageView(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}

	c, _ := newTestContext(http.MethodGet, "/users/12", withAuth("dr-house", []string{"physician"}))
	c.SetParamNames("id")
	c.SetParamValues("12")
	c.Set("request_id", "req-1")

	if err := Audit(logger, rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	entry := rec.last()
	if entry.ActorID != "dr-house" {
		t.Errorf("expected actor dr-house, got %q", entry.ActorID)
	}
	if entry.SubjectID != "12" {
		t.Errorf("expected subject 12, got %q", entry.SubjectID)
	}
	if entry.Action != "view" {
		t.Errorf("expected view, got %q", entry.Action)
	}
	if entry.RequestID != "req-1" {
		t.Errorf("expected req-1, got %q", entry.RequestID)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", entry.StatusCode)
	}
}

func TestAudit_Preview(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodPost, "/api/v1/preview", withAuth("nurse-1", []string{"nurse"}))

	_ = Audit(zerolog.Nop(), rec)(okHandler)(c)

	if got := rec.last().Action; got != "preview" {
		t.Errorf("expected preview, got %q", got)
	}
	if got := rec.last().SubjectID; got != "" {
		t.Errorf("expected no subject, got %q", got)
	}
}

func TestAudit_SkipsNonAuditablePaths(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodGet, "/health")

	_ = Audit(zerolog.Nop(), rec)(okHandler)(c)

	if rec.count() != 0 {
		t.Errorf("expected no entries for /health, got %d", rec.count())
	}
}

func TestAudit_RecorderError_DoesNotBreakRequest(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	c, _ := newTestContext(http.MethodGet, "/api/v1/users")

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("expected request to succeed, got %v", err)
	}
}

func TestAudit_PropagatesHandlerError(t *testing.T) {
	rec := &mockRecorder{}
	c, _ := newTestContext(http.MethodGet, "/api/v1/users/99")

	handler := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	err := Audit(zerolog.Nop(), rec)(handler)(c)
	if err == nil {
		t.Fatal("expected handler error")
	}
	if rec.count() != 1 {
		t.Error("expected failed access to be audited")
	}
}

func TestAudit_NoRecorder_LogOnly(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/users/1")
	if err := Audit(zerolog.Nop())(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditAction(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/users/1", "view"},
		{http.MethodGet, "/api/v1/users/1/details", "view"},
		{http.MethodGet, "/api/v1/users", "list"},
		{http.MethodPost, "/api/v1/preview", "preview"},
	}
	for _, tt := range tests {
		if got := auditAction(tt.method, tt.path); got != tt.want {
			t.Errorf("auditAction(%s, %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestAuditRecorderFunc(t *testing.T) {
	var got AuditEntry
	f := AuditRecorderFunc(func(_ context.Context, e AuditEntry) error {
		got = e
		return nil
	})
	_ = f.RecordAccess(context.Background(), AuditEntry{ActorID: "x"})
	if got.ActorID != "x" {
		t.Errorf("expected x, got %q", got.ActorID)
	}
}
