package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"work-journal/internal/model"
	"work-journal/internal/repository"
	"work-journal/internal/service"
	"work-journal/internal/session"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	server *Server
	repo   *repository.EntryRepository
	guard  *session.Guard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewEntryRepository(repository.NewTestDB(t))
	guard, err := session.NewGuard(session.Config{
		Secret:        []byte("test-secret-0123456789"),
		TTL:           30 * 24 * time.Hour,
		AdminEmail:    "owner@example.com",
		AdminPassword: "pa55word",
	})
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	srv, err := NewServer(service.NewJournalService(repo), guard, repo)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return &testEnv{server: srv, repo: repo, guard: guard}
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/login", url.Values{"email": {"owner@example.com"}, "password": {"pa55word"}}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == e.guard.CookieName() && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func (e *testEnv) seed(t *testing.T, date string, tag model.Tag, text string) uint {
	t.Helper()
	d, _ := time.Parse(model.DateLayout, date)
	entry := model.Entry{Date: d, Type: tag, Text: text}
	if err := e.repo.Create(context.Background(), &entry); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return entry.ID
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	all, err := e.repo.FindAll(context.Background())
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	return len(all)
}

func entryValues(date, category, text string) url.Values {
	return url.Values{"date": {date}, "category": {category}, "text": {text}}
}

func TestIndexUnauthenticatedShowsOnlyLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "2024-01-10", model.TagWork, "private-note")

	rec := env.do(t, http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `href="/login"`) {
		t.Error("missing login affordance")
	}
	if strings.Contains(body, "private-note") || strings.Contains(body, "Create an entry") {
		t.Error("unauthenticated page leaked journal content")
	}
}

func TestMutationsRequireSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.seed(t, "2024-01-10", model.TagWork, "keep")

	requests := []struct {
		method, path string
		form         url.Values
	}{
		{http.MethodPost, "/", entryValues("2024-01-11", "work", "new")},
		{http.MethodGet, "/entries/1/edit", nil},
		{http.MethodPost, "/entries/1/edit", url.Values{"_action": {"delete"}}},
	}
	for _, r := range requests {
		rec := env.do(t, r.method, r.path, r.form, nil)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Errorf("%s %s: status %d location %q", r.method, r.path, rec.Code, rec.Header().Get("Location"))
		}
	}

	forged := &http.Cookie{Name: env.guard.CookieName(), Value: "forged.token.value"}
	rec := env.do(t, http.MethodPost, "/", entryValues("2024-01-11", "work", "new"), forged)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("forged cookie accepted: %d", rec.Code)
	}

	if got := env.count(t); got != 1 {
		t.Fatalf("store changed: %d entries", got)
	}
	if _, err := env.repo.FindByID(context.Background(), id); err != nil {
		t.Fatalf("seeded entry missing: %v", err)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/login", url.Values{"email": {"test@test.com"}, "password": {"anything"}}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials status = %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("bad credentials set a cookie")
	}

	cookie := env.login(t)
	if !cookie.HttpOnly || cookie.MaxAge != 30*24*60*60 {
		t.Fatalf("unexpected cookie %+v", cookie)
	}

	rec = env.do(t, http.MethodGet, "/login", nil, cookie)
	if !strings.Contains(rec.Body.String(), "Go to dashboard") {
		t.Fatal("logged-in login page should link to the dashboard")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rec := env.do(t, http.MethodPost, "/logout", nil, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == env.guard.CookieName() && c.MaxAge < 0 && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("logout did not clear the session cookie")
	}
}

func TestCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	for _, v := range []url.Values{
		entryValues("2024-01-10", "work", "A"),
		entryValues("2024-01-11", "learning", "B"),
		entryValues("2024-01-16", "Interesting things", "C <b>"),
	} {
		rec := env.do(t, http.MethodPost, "/", v, cookie)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Fatalf("create status %d location %q", rec.Code, rec.Header().Get("Location"))
		}
	}

	rec := env.do(t, http.MethodGet, "/", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()

	first := strings.Index(body, "Week of January 7th")
	second := strings.Index(body, "Week of January 14th")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("weeks missing or out of order:\n%s", body)
	}
	if !strings.Contains(body, "C &lt;b&gt;") {
		t.Error("entry text not escaped")
	}
	if !strings.Contains(body, `name="idempotency_key"`) {
		t.Error("create form lacks idempotency token")
	}
	if strings.Index(body[first:], "Learning") > strings.Index(body[first:], "Work") {
		t.Error("learning should be listed before work")
	}
}

func TestCreateValidationError(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rec := env.do(t, http.MethodPost, "/", entryValues("2024-01-10", "chores", "text"), cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `id="form-error">category`) {
		t.Fatalf("error field not reported:\n%s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/", entryValues("not-a-date", "work", "text"), cookie)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), `id="form-error">date`) {
		t.Fatalf("bad date: status %d", rec.Code)
	}

	if got := env.count(t); got != 0 {
		t.Fatalf("invalid submissions were stored: %d", got)
	}
}

func TestCreateDeduplicatesRetries(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	v := entryValues("2024-01-10", "work", "once")
	v.Set("idempotency_key", "0b5d8f8e-1c37-4a5e-b4a4-3f1f2f6f9e10")
	for i := 0; i < 3; i++ {
		if rec := env.do(t, http.MethodPost, "/", v, cookie); rec.Code != http.StatusSeeOther {
			t.Fatalf("attempt %d status = %d", i, rec.Code)
		}
	}
	if got := env.count(t); got != 1 {
		t.Fatalf("got %d entries, want 1", got)
	}
}

func TestEditUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	id := env.seed(t, "2024-01-10", model.TagWork, "draft")
	path := "/entries/" + strconv.FormatUint(uint64(id), 10) + "/edit"

	rec := env.do(t, http.MethodGet, path, nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit page status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="2024-01-10"`) || !strings.Contains(body, `value="work" checked`) || !strings.Contains(body, "draft") {
		t.Fatalf("edit form not prefilled:\n%s", body)
	}

	rec = env.do(t, http.MethodPost, path, entryValues("2024-01-12", "learning", ""), cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid update status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, path, entryValues("2024-01-12", "learning", "final"), cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("update status = %d", rec.Code)
	}
	got, err := env.repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Text != "final" || got.Type != model.TagLearning || got.DateString() != "2024-01-12" {
		t.Fatalf("update not applied: %+v", got)
	}

	rec = env.do(t, http.MethodPost, path, url.Values{"_action": {"delete"}}, cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if got := env.count(t); got != 0 {
		t.Fatalf("entry not deleted")
	}
}

func TestEditUnknownEntry(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.seed(t, "2024-01-10", model.TagWork, "keep")

	for _, r := range []struct {
		method string
		path   string
		form   url.Values
	}{
		{http.MethodGet, "/entries/9999/edit", nil},
		{http.MethodGet, "/entries/abc/edit", nil},
		{http.MethodPost, "/entries/9999/edit", url.Values{"_action": {"delete"}}},
		{http.MethodPost, "/entries/9999/edit", entryValues("2024-01-10", "work", "x")},
	} {
		rec := env.do(t, r.method, r.path, r.form, cookie)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d", r.method, r.path, rec.Code)
		}
	}
	if got := env.count(t); got != 1 {
		t.Fatalf("store changed: %d entries", got)
	}
}

func TestSessionCookieSlides(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rec := env.do(t, http.MethodGet, "/", nil, cookie)
	var refreshed bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == env.guard.CookieName() && c.Value != "" {
			refreshed = true
		}
	}
	if !refreshed {
		t.Fatal("authorized request did not refresh the session cookie")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
}
