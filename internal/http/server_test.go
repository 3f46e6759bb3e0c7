package http

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"expensedash/internal/auth"
	"expensedash/internal/cache"
	"expensedash/internal/core"
	"expensedash/internal/services"
	"expensedash/internal/session"
	"expensedash/internal/storage"
)

type testEnv struct {
	srv      *httptest.Server
	repo     *storage.SQLiteRepository
	sessions *session.Store
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	creds := auth.NewCredentialStore(repo, auth.Config{Cost: bcrypt.MinCost})
	_, err = creds.Seed(context.Background(), []auth.Account{
		{Username: "admin", Password: "admin123"},
		{Username: "alice", Password: "alice123"},
		{Username: "bob", Password: "bob123"},
	})
	require.NoError(t, err)

	sessions := session.NewStore(cache.NewIdleCache[session.State](100, time.Hour))
	s := NewServer(":0", Deps{
		Credentials:        creds,
		Tokens:             auth.NewTokenIssuer("test-secret", time.Hour),
		Expenses:           services.NewExpenseService(repo, nil, nil, nil),
		Sessions:           sessions,
		DB:                 repo,
		SessionTTL:         time.Hour,
		RateLimitPerMinute: rateLimit,
	})

	srv := httptest.NewServer(s.Handler)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, repo: repo, sessions: sessions}
}

// browser keeps cookies and never follows redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (e *testEnv) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: e.srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base+path, form)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) login(username, password string) {
	b.t.Helper()
	resp, _ := b.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(b.t, "/expenses/new", resp.Header.Get("Location"))
}

func (b *browser) addExpense(date, category, amount, desc string) {
	b.t.Helper()
	resp, _ := b.post("/expenses", url.Values{
		"date": {date}, "category": {category}, "amount": {amount}, "description": {desc},
	})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)

	for _, path := range []string{"/", "/expenses/new", "/summary", "/manage", "/export/expenses.xlsx"} {
		resp, _ := b.get(path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}

	resp, body := b.get("/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="username"`)
	assert.NotContains(t, body, "Logout")
}

func TestLoginFailureShowsWarning(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)

	resp, body := b.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, msgAuthFailed)

	resp, _ = b.get("/summary")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLoginRotatesSessionToken(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)

	b.get("/login")
	u, _ := url.Parse(env.srv.URL)
	before := b.client.Jar.Cookies(u)
	require.Len(t, before, 1)
	assert.Equal(t, sessionCookieName, before[0].Name)

	b.login("alice", "alice123")
	after := b.client.Jar.Cookies(u)
	require.Len(t, after, 1)
	assert.NotEqual(t, before[0].Value, after[0].Value)

	_, ok := env.sessions.Load(before[0].Value)
	assert.False(t, ok, "pre-login session destroyed")
	st, ok := env.sessions.Load(after[0].Value)
	require.True(t, ok)
	assert.True(t, st.LoggedIn)
	assert.Equal(t, "alice", st.Username)
	assert.False(t, st.IsAdmin)
}

func TestSessionCookieAttributes(t *testing.T) {
	env := newTestEnv(t, 0)
	resp, err := http.Get(env.srv.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()

	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			found = c
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, found.SameSite)
	assert.Equal(t, "/", found.Path)
}

func TestSignUpFlow(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)

	resp, body := b.post("/signup", url.Values{"username": {"carol"}, "password": {"pw1"}, "confirm": {"pw2"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, msgPasswordMismatch)

	resp, body = b.post("/signup", url.Values{"username": {"alice"}, "password": {"x"}, "confirm": {"x"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, msgDuplicateUser)

	resp, _ = b.post("/signup", url.Values{"username": {"carol"}, "password": {"pw1"}, "confirm": {"pw1"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, body = b.get("/login")
	assert.Contains(t, body, msgAccountCreated)

	b.login("carol", "pw1")
}

func TestAddExpenseAndSummary(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)
	b.login("alice", "alice123")

	_, body := b.get("/expenses/new")
	assert.Contains(t, body, "Welcome alice")
	assert.Contains(t, body, core.Today().String())

	_, body = b.get("/summary")
	assert.Contains(t, body, "No expenses recorded yet.")

	b.addExpense("2024-01-05", "Food", "10.5", "Lunch")
	_, body = b.get("/expenses/new")
	assert.Contains(t, body, msgExpenseAdded)
	_, body = b.get("/expenses/new")
	assert.NotContains(t, body, msgExpenseAdded, "flash is shown once")

	b.addExpense("2024-02-01", "Bills", "20", "")

	resp, body := b.get("/summary")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "30.50")
	assert.Contains(t, body, "Lunch")
	assert.Contains(t, body, "2024-02")
	assert.Contains(t, body, "/charts/pie.png")
}

func TestAddExpenseRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)
	b.login("alice", "alice123")

	resp, body := b.post("/expenses", url.Values{
		"date": {"2024-01-05"}, "category": {"Food"}, "amount": {"-3"}, "description": {"keep me"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, msgInvalidAmount)
	assert.Contains(t, body, "keep me")

	resp, body = b.post("/expenses", url.Values{"date": {"2024-01-05"}, "category": {"Pets"}, "amount": {"1"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, msgInvalidCat)

	rows, err := env.repo.ListExpenses(context.Background(), core.Caller{Username: "alice"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestManageEditAndDelete(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)
	b.login("alice", "alice123")
	b.addExpense("2024-01-05", "Food", "10", "Lunch")

	rows, err := env.repo.ListExpenses(context.Background(), core.Caller{Username: "alice"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id := rows[0].ID
	base := "/manage/" + itoa(id)

	_, body := b.get("/manage")
	assert.Contains(t, body, `action="`+base+`/edit"`)
	assert.NotContains(t, body, `action="`+base+`"`)

	resp, _ := b.post(base+"/edit", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = b.get("/manage")
	assert.Contains(t, body, `action="`+base+`"`, "row renders as an edit form")

	resp, _ = b.post(base, url.Values{"date": {"2024-03-01"}, "category": {"Transport"}, "amount": {"7.25"}, "description": {"Bus"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = b.get("/manage")
	assert.Contains(t, body, "Updated record with ID: "+itoa(id))
	assert.Contains(t, body, "Bus")
	assert.NotContains(t, body, `action="`+base+`"`, "edit mode cleared")

	resp, _ = b.post(base+"/delete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = b.get("/manage")
	assert.Contains(t, body, "Deleted record with ID: "+itoa(id))
	assert.Contains(t, body, "No expenses recorded to manage.")
}

func TestCancelEdit(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)
	b.login("alice", "alice123")
	b.addExpense("2024-01-05", "Food", "10", "Lunch")

	rows, err := env.repo.ListExpenses(context.Background(), core.Caller{Username: "alice"})
	require.NoError(t, err)
	base := "/manage/" + itoa(rows[0].ID)

	b.post(base+"/edit", nil)
	b.post(base+"/cancel", nil)
	_, body := b.get("/manage")
	assert.NotContains(t, body, `action="`+base+`"`)
}

func TestUsersCannotTouchForeignRows(t *testing.T) {
	env := newTestEnv(t, 0)
	alice := env.browser(t)
	alice.login("alice", "alice123")
	alice.addExpense("2024-01-05", "Food", "10", "alice-only")

	rows, err := env.repo.ListExpenses(context.Background(), core.Caller{Username: "alice"})
	require.NoError(t, err)
	base := "/manage/" + itoa(rows[0].ID)

	bob := env.browser(t)
	bob.login("bob", "bob123")
	_, body := bob.get("/manage")
	assert.NotContains(t, body, "alice-only")

	bob.post(base+"/delete", nil)
	_, body = bob.get("/manage")
	assert.Contains(t, body, msgExpenseMissing)

	bob.post(base, url.Values{"date": {"2024-01-05"}, "category": {"Food"}, "amount": {"999"}})
	got, found, err := env.repo.GetExpense(context.Background(), core.Caller{Username: "alice"}, rows[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice-only", got.Description)

	admin := env.browser(t)
	admin.login("admin", "admin123")
	_, body = admin.get("/manage")
	assert.Contains(t, body, "alice-only")
	assert.Contains(t, body, "<th>User</th>")
}

func TestExportHeaders(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)
	b.login("alice", "alice123")

	resp, body := b.get("/export/expenses.xlsx")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="expenses_alice.xlsx"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(body, "PK"), "xlsx is a zip archive")

	resp, body = b.get("/export/report.pdf")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_alice.pdf"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(body, "%PDF"))
}

func TestCharts(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)
	b.login("alice", "alice123")

	resp, _ := b.get("/charts/pie.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no data")

	b.addExpense("2024-01-05", "Food", "10", "")
	for _, kind := range []string{"pie", "bar", "monthly"} {
		resp, body := b.get("/charts/" + kind + ".png")
		assert.Equal(t, http.StatusOK, resp.StatusCode, kind)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"), kind)
		assert.True(t, strings.HasPrefix(body, "\x89PNG"), kind)
	}

	resp, _ = b.get("/charts/radar.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)
	b.login("alice", "alice123")

	resp, _ := b.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = b.get("/summary")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)

	resp, body := b.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, _ = b.get("/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, env.repo.Close())
	resp, _ = b.get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNotFoundAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, 0)
	b := env.browser(t)

	resp, body := b.get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "does not exist")
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, _ = b.get("/static/style.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, 2)
	b := env.browser(t)

	for i := 0; i < 2; i++ {
		resp, _ := b.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ := b.post("/login", url.Values{"username": {"alice"}, "password": {"alice123"}})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
