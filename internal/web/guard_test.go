package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallysom2/egua-cli/internal/authapi"
)

const guardToken = "valid-token"

// newGuardRouter builds a minimal app behind the guard: every route
// responds 200 "page" unless the guard redirects first.
func newGuardRouter(t *testing.T, backendURL string) (*gin.Engine, *SessionCookie) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cookies, err := NewSessionCookie("test-secret")
	require.NoError(t, err)

	auth := authapi.New(backendURL, "anon-key", zerolog.Nop())
	guard := NewGuard(auth, cookies, zerolog.Nop())

	router := gin.New()
	router.Use(guard.Middleware())
	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusOK, "page")
	})
	return router, cookies
}

// identityBackend accepts exactly guardToken.
func identityBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer "+guardToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "user-123", "email": "ana@egua.dev"})
	}))
}

func get(router *gin.Engine, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGuardRedirectsAnonymousFromProtected(t *testing.T) {
	backend := identityBackend(t)
	defer backend.Close()
	router, _ := newGuardRouter(t, backend.URL)

	w := get(router, "/dashboard", "")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard", w.Header().Get("Location"))
}

func TestGuardAllowsAuthenticatedOnProtected(t *testing.T) {
	backend := identityBackend(t)
	defer backend.Close()
	router, cookies := newGuardRouter(t, backend.URL)

	value, err := cookies.Mint(guardToken)
	require.NoError(t, err)

	w := get(router, "/turmas", value)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuardRedirectsAuthenticatedFromPublicOnly(t *testing.T) {
	backend := identityBackend(t)
	defer backend.Close()
	router, cookies := newGuardRouter(t, backend.URL)

	value, err := cookies.Mint(guardToken)
	require.NoError(t, err)

	for _, path := range []string{"/login", "/cadastro", "/"} {
		w := get(router, path, value)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"), path)
	}
}

func TestGuardRevalidatesInsteadOfTrustingCookie(t *testing.T) {
	backend := identityBackend(t)
	defer backend.Close()
	router, cookies := newGuardRouter(t, backend.URL)

	// A well-formed cookie wrapping a token the backend rejects must
	// not grant access.
	value, err := cookies.Mint("revoked-token")
	require.NoError(t, err)

	w := get(router, "/dashboard", value)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard", w.Header().Get("Location"))
}

func TestGuardFailsOpenWhenBackendUnreachable(t *testing.T) {
	backend := identityBackend(t)
	backend.Close() // unreachable from the start
	router, cookies := newGuardRouter(t, backend.URL)

	value, err := cookies.Mint(guardToken)
	require.NoError(t, err)

	w := get(router, "/dashboard", value)
	assert.Equal(t, http.StatusOK, w.Code, "guard must fail open, not closed")
}

func TestGuardSkipsAllowList(t *testing.T) {
	// No backend at all: allow-listed paths must never trigger an
	// identity check.
	router, _ := newGuardRouter(t, "http://unused.invalid")

	for _, path := range []string{"/auth/callback", "/static/app.css", "/favicon.ico", "/healthz"} {
		w := get(router, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestGuardPassesThroughNeutralPaths(t *testing.T) {
	router, _ := newGuardRouter(t, "http://unused.invalid")

	w := get(router, "/sobre", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
