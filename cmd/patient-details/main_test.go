package main

import (
	"bytes"
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientdetails/internal/config"
	"github.com/ehr/patientdetails/internal/details"
	"github.com/ehr/patientdetails/internal/domain/account"
	"github.com/ehr/patientdetails/internal/platform/cache"
	"github.com/ehr/patientdetails/internal/platform/db"
	"github.com/ehr/patientdetails/internal/platform/middleware"
)

type mapUserRepo struct {
	users map[int64]*account.User
	gets  int
}

func (r *mapUserRepo) GetByID(_ context.Context, id int64) (*account.User, error) {
	r.gets++
	u, ok := r.users[id]
	if !ok {
		return nil, account.ErrUserNotFound
	}
	return u, nil
}

func (r *mapUserRepo) List(_ context.Context, limit, offset int) ([]*account.User, int, error) {
	var out []*account.User
	for _, u := range r.users {
		out = append(out, u)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func seededRepo() *mapUserRepo {
	phone := "+33 6 00 00 00 00"
	birth := "1985-11-02"
	return &mapUserRepo{users: map[int64]*account.User{
		7: {
			ID:        7,
			RoleID:    5,
			FullName:  "Claire Martin",
			Email:     "claire.martin@example.fr",
			Telephone: &phone,
			Status:    account.StatusToValidate,
			CreatedAt: "2024-02-01T10:00:00Z",
			UpdatedAt: "2024-02-02T10:00:00Z",
			Role:      &account.Role{ID: 5, Name: "Patient", Code: "patient"},
			Patient: &account.Patient{
				ID:       1,
				UserID:   7,
				BirthDay: &birth,
				Gender:   account.GenderFemale,
			},
		},
	}}
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8000",
		Env:            "development",
		CacheTTL:       time.Minute,
		CORSOrigins:    []string{"http://localhost:3000"},
		BodyLimit:      "64K",
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, repo *mapUserRepo) *echo.Echo {
	t.Helper()
	e, err := newServer(cfg, zerolog.Nop(), serverDeps{users: repo, store: cache.NewMemoryStore()})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e
}

func serve(e *echo.Echo, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t, testConfig(), seededRepo())

	rec := serve(e, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestServer_DetailsPageCached(t *testing.T) {
	repo := seededRepo()
	e := newTestServer(t, testConfig(), repo)

	first := serve(e, http.MethodGet, "/users/7", "", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	if first.Header().Get(details.CacheHeader) != "MISS" {
		t.Errorf("expected MISS, got %q", first.Header().Get(details.CacheHeader))
	}
	for _, want := range []string{"Claire Martin", "À valider", "Femme", "02 novembre 1985"} {
		if !strings.Contains(first.Body.String(), want) {
			t.Errorf("expected page to contain %q", want)
		}
	}

	second := serve(e, http.MethodGet, "/users/7", "", nil)
	if second.Header().Get(details.CacheHeader) != "HIT" {
		t.Errorf("expected HIT, got %q", second.Header().Get(details.CacheHeader))
	}
	if repo.gets != 1 {
		t.Errorf("expected one repository read, got %d", repo.gets)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("expected cached page to match rendered page")
	}
}

func TestServer_Routes(t *testing.T) {
	e := newTestServer(t, testConfig(), seededRepo())

	tests := []struct {
		method, target, body string
		want                 int
		contains             string
	}{
		{http.MethodGet, "/users/8", "", http.StatusNotFound, ""},
		{http.MethodGet, "/users/abc", "", http.StatusBadRequest, ""},
		{http.MethodGet, "/api/v1/users/7", "", http.StatusOK, `"full_name":"Claire Martin"`},
		{http.MethodGet, "/api/v1/users/7/details", "", http.StatusOK, `"initials":"CM"`},
		{http.MethodGet, "/api/v1/users?limit=1", "", http.StatusOK, `"total":1`},
		{http.MethodPost, "/api/v1/preview", `{"full_name":"Paul Durand","email":"paul@example.fr","status":"blocked","role":{"name":"Patient"}}`, http.StatusOK, "Bloqué"},
		{http.MethodPost, "/api/v1/preview", `{"full_name":"Paul Durand","email":"paul@example.fr","status":"blocked"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(e, tt.method, tt.target, tt.body, nil)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q, got %s", tt.contains, rec.Body.String())
			}
		})
	}
}

func TestServer_RecordsAccess(t *testing.T) {
	var entries []middleware.AuditEntry
	recorder := middleware.AuditRecorderFunc(func(_ context.Context, entry middleware.AuditEntry) error {
		entries = append(entries, entry)
		return nil
	})
	e, err := newServer(testConfig(), zerolog.Nop(), serverDeps{users: seededRepo(), recorder: recorder})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	serve(e, http.MethodGet, "/users/7", "", nil)
	serve(e, http.MethodGet, "/health", "", nil)

	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].SubjectID != "7" || entries[0].Action != "view" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestServer_JWTModeRequiresToken(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "staging"
	cfg.AuthSigningKey = "test-secret"
	e := newTestServer(t, cfg, seededRepo())

	if rec := serve(e, http.MethodGet, "/users/7", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected public health check, got %d", rec.Code)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	e := newTestServer(t, testConfig(), seededRepo())

	rec := serve(e, http.MethodGet, "/users/7", "", nil)
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected Content-Security-Policy header")
	}
	if got := rec.Header().Get("Cache-Control"); got != "private, no-store" {
		t.Errorf("expected private, no-store, got %q", got)
	}
}

func TestRenderUser(t *testing.T) {
	in := strings.NewReader(`{
		"id": 3,
		"full_name": "Louis Pasteur",
		"email": "louis@example.fr",
		"status": "validated",
		"created_at": "2023-08-01T12:00:00Z",
		"role": {"name": "Patient"},
		"patient": {"gender": "male", "blood_group": "A-", "height": 172, "allergies": "Aucune connue"}
	}`)
	var out bytes.Buffer
	if err := renderUser(in, &out); err != nil {
		t.Fatalf("renderUser: %v", err)
	}
	for _, want := range []string{"Louis Pasteur", "Validé", "Homme", "A-", "172 cm", "Aucune connue", "01 août 2023"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestRenderUser_Invalid(t *testing.T) {
	if err := renderUser(strings.NewReader(`{`), &bytes.Buffer{}); err == nil {
		t.Error("expected decode error")
	}
	err := renderUser(strings.NewReader(`{"full_name":"X","email":"x@example.fr","status":"new"}`), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "Role") {
		t.Errorf("expected missing role error, got %v", err)
	}
}

func TestRenderCmd_WritesFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "user.json")
	output := filepath.Join(dir, "page.html")
	doc := `{"full_name":"Irène Joliot","email":"irene@example.fr","status":"rejected","role":{"name":"Patient"}}`
	if err := os.WriteFile(input, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := renderCmd()
	cmd.SetArgs([]string{"--input", input, "--output", output})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("render command: %v", err)
	}

	page, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(page), "Rejeté") {
		t.Error("expected rejected badge in output file")
	}
}

func TestMigrationFiles(t *testing.T) {
	if _, err := fs.ReadFile(migrationFiles(""), "001_accounts.sql"); err != nil {
		t.Errorf("expected embedded migrations: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "010_extra.sql"), []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.ReadFile(migrationFiles(dir), "010_extra.sql"); err != nil {
		t.Errorf("expected directory override: %v", err)
	}
}

func TestPrintStatus(t *testing.T) {
	applied := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	printStatus(&out, []db.MigrationStatus{
		{Version: 1, Name: "001_accounts.sql", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "002_seed_roles.sql"},
	})

	got := out.String()
	if !strings.Contains(got, "2024-05-01 08:00:00") {
		t.Error("expected applied timestamp")
	}
	if !strings.Contains(got, "pending") {
		t.Error("expected pending migration")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	prod := newLogger("production", &buf)
	prod.Info().Msg("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	dev := newLogger("development", &buf)
	dev.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}
