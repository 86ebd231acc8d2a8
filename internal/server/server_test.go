package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Divelog/internal/auth"
	"Divelog/internal/store"
	"Divelog/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var testNow = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

type testEnv struct {
	t      *testing.T
	server *Server
	store  store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.NewFileStore(store.Paths{
		Divers: filepath.Join(dir, "Duikers ANWW.xlsx"),
		Sites:  filepath.Join(dir, "Duikplaatsen Zeeland.xlsx"),
		Log:    filepath.Join(dir, "Duiklogboek.xlsx"),
		Users:  filepath.Join(dir, "users.csv"),
	}, logger)
	require.NoError(t, err)

	srv, err := New(st, Options{
		SessionSecret: "test-secret-test-secret-test-secret",
		DefaultFee:    decimal.NewFromInt(5),
	}, logger)
	require.NoError(t, err)
	srv.now = func() time.Time { return testNow }

	env := &testEnv{t: t, server: srv, store: st}
	env.addUser("beheer", "Bea Heer", models.RoleAdmin, "admin-pw")
	env.addUser("lid", "Lid Duiker", models.RoleUser, "lid-pw")
	return env
}

func (e *testEnv) addUser(username, name, role, password string) {
	e.t.Helper()
	salt, hash, err := auth.Credentials(password)
	require.NoError(e.t, err)
	require.NoError(e.t, e.store.CreateUser(context.Background(), models.User{
		Username: username, Name: name, Role: role, Salt: salt, PasswordHash: hash, CreatedAt: testNow,
	}))
}

func (e *testEnv) seedLists(divers, sites []string) {
	e.t.Helper()
	ctx := context.Background()
	for _, d := range divers {
		_, err := e.store.AddDiver(ctx, d)
		require.NoError(e.t, err)
	}
	for _, s := range sites {
		_, err := e.store.AddSite(ctx, s)
		require.NoError(e.t, err)
	}
}

func (e *testEnv) seedDive(date time.Time, site, diver string) {
	e.t.Helper()
	require.NoError(e.t, e.store.AppendLogEntry(context.Background(), models.LogEntry{
		Date: date, Site: site, Diver: diver, EnteredBy: "lid", Timestamp: testNow,
	}))
}

// client keeps the session cookie between requests like a browser would.
type client struct {
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) client() *client {
	return &client{env: e, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.env.server.Handler().ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// follow fetches the Location of a redirect.
func (c *client) follow(rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	c.env.t.Helper()
	require.Equal(c.env.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return c.get(rec.Header().Get("Location"))
}

func (e *testEnv) login(username, password string) *client {
	e.t.Helper()
	c := e.client()
	rec := c.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(e.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return c
}

func day(d int) time.Time {
	return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
}
