package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t5krishn/tinyapp/internal/db/memorystorage"
	"github.com/t5krishn/tinyapp/internal/logger"
	"github.com/t5krishn/tinyapp/internal/user"
)

type stubGenerator struct {
	tokens []string
	next   int
}

func (g *stubGenerator) Generate() string {
	token := g.tokens[g.next%len(g.tokens)]
	g.next++
	return token
}

func newTestAuth(t *testing.T) (*Auth, *memorystorage.MemoryStorage) {
	t.Helper()

	require.NoError(t, logger.Init("debug"))

	db, err := memorystorage.New()
	require.NoError(t, err)

	return New(
		db,
		&stubGenerator{tokens: []string{"vis001", "vis002"}},
		"tinyapp_session",
		[]byte("test-signing-key"),
	), db
}

func sessionCookie(t *testing.T, response *http.Response, name string) *http.Cookie {
	t.Helper()

	for _, cookie := range response.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("no %q cookie in response", name)
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	theAuth, db := newTestAuth(t)

	require.NoError(t, db.CreateUser(
		httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		&user.User{ID: "usr001", Email: "a@x.com"},
	))

	recorder := httptest.NewRecorder()
	require.NoError(t, theAuth.IssueSession(recorder, "usr001", "vis999"))
	cookie := sessionCookie(t, recorder.Result(), "tinyapp_session")

	var gotUserID, gotVisitorID string
	handler := theAuth.Sessions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotVisitorID = VisitorIDFromContext(r.Context())
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "usr001", gotUserID)
	assert.Equal(t, "vis999", gotVisitorID)
}

func TestSessionsDowngradesVanishedUser(t *testing.T) {
	theAuth, _ := newTestAuth(t)

	recorder := httptest.NewRecorder()
	require.NoError(t, theAuth.IssueSession(recorder, "ghost1", ""))
	cookie := sessionCookie(t, recorder.Result(), "tinyapp_session")

	var gotUserID string
	handler := theAuth.Sessions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Empty(t, gotUserID)
}

func TestSessionsIgnoresForgedToken(t *testing.T) {
	theAuth, _ := newTestAuth(t)

	var gotUserID string
	handler := theAuth.Sessions(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "not.a.token")
	handler.ServeHTTP(httptest.NewRecorder(), request)

	assert.Empty(t, gotUserID)
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	theAuth, _ := newTestAuth(t)

	handler := theAuth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for anonymous requests")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestEnsureVisitorMintsOnce(t *testing.T) {
	theAuth, _ := newTestAuth(t)

	var gotVisitorID string
	handler := theAuth.Sessions(theAuth.EnsureVisitor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVisitorID = VisitorIDFromContext(r.Context())
	})))

	// First request has no visitor identity: one is minted and persisted.
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "vis001", gotVisitorID)
	cookie := sessionCookie(t, recorder.Result(), "tinyapp_session")

	// Second request carries the minted identity: no new mint.
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "vis001", gotVisitorID)
}
