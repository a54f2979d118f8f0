package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCreds is a mutable credential provider standing in for the
// session store.
type fakeCreds struct {
	mu    sync.Mutex
	token string
}

func (f *fakeCreds) Token() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.token != ""
}

func (f *fakeCreds) set(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// fakeInvalidator records 401-policy invocations and clears the
// credential like the real session store does.
type fakeInvalidator struct {
	creds *fakeCreds
	calls atomic.Int32
}

func (f *fakeInvalidator) InvalidateSession(ctx context.Context) {
	f.calls.Add(1)
	if f.creds != nil {
		f.creds.set("")
	}
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *fakeCreds, *fakeInvalidator, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	creds := &fakeCreds{}
	invalidator := &fakeInvalidator{creds: creds}
	g := New(server.URL, creds, invalidator, zerolog.Nop())
	return g, creds, invalidator, server
}

func TestCredentialFreshness(t *testing.T) {
	var headers []string
	g, creds, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	// Sign in, call, sign out, call again. The second call must carry
	// no Authorization header at all.
	creds.set("tok-1")
	require.NoError(t, g.Get(context.Background(), "/turmas/minhas", nil))
	creds.set("")
	require.NoError(t, g.Get(context.Background(), "/turmas/minhas", nil))

	require.Len(t, headers, 2)
	assert.Equal(t, "Bearer tok-1", headers[0])
	assert.Empty(t, headers[1])
}

func TestContentTypeAlwaysJSON(t *testing.T) {
	var contentType string
	g, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, g.Post(context.Background(), "/conteudos", map[string]string{"titulo": "Laços"}, nil))
	assert.Equal(t, "application/json", contentType)
}

func TestUnauthorizedPolicy(t *testing.T) {
	g, creds, invalidator, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	creds.set("stale-token")

	err := g.Get(context.Background(), "/turmas/minhas", nil)

	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), invalidator.calls.Load())
	_, ok := creds.Token()
	assert.False(t, ok, "credential must be gone after forced sign-out")
}

func TestUnauthorizedPolicyAppliesToAllVerbs(t *testing.T) {
	g, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	ctx := context.Background()
	calls := []func() error{
		func() error { return g.Get(ctx, "/x", nil) },
		func() error { return g.Post(ctx, "/x", nil, nil) },
		func() error { return g.Put(ctx, "/x", nil, nil) },
		func() error { return g.Patch(ctx, "/x", nil, nil) },
		func() error { return g.Delete(ctx, "/x", nil) },
	}
	for _, call := range calls {
		require.ErrorIs(t, call(), ErrSessionExpired)
	}
}

func TestNoContentResolvesEmpty(t *testing.T) {
	g, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out map[string]any
	require.NoError(t, g.Delete(context.Background(), "/conteudos/1", &out))
	assert.Nil(t, out)
}

func TestErrorWithServerMessage(t *testing.T) {
	g, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Título é obrigatório"}`))
	})

	err := g.Post(context.Background(), "/conteudos", map[string]string{}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Título é obrigatório", apiErr.Message)
}

func TestErrorGenericFallback(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"json body without message", "application/json", `{"detail":"nope"}`},
		{"non-json body", "text/html", "<html>boom</html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			})

			err := g.Get(context.Background(), "/exercicios", nil)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "Erro 500: Internal Server Error", apiErr.Message)
		})
	}
}

func TestDecodesJSONBody(t *testing.T) {
	g, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"id":"c1","titulo":"Variáveis"}`))
	})

	var out struct {
		ID     string `json:"id"`
		Titulo string `json:"titulo"`
	}
	require.NoError(t, g.Get(context.Background(), "/conteudos/c1", &out))
	assert.Equal(t, "c1", out.ID)
	assert.Equal(t, "Variáveis", out.Titulo)
}

func TestReturnsRawTextBody(t *testing.T) {
	g, _, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	})

	var out string
	require.NoError(t, g.Get(context.Background(), "/health", &out))
	assert.Equal(t, "pong", out)
}

func TestConcurrentUnauthorizedCalls(t *testing.T) {
	g, creds, invalidator, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	creds.set("stale")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.Get(context.Background(), "/turmas/minhas", nil)
		}(i)
	}
	wg.Wait()

	// Every caller sees the session-expired error; the invalidator is
	// invoked per response but must behave idempotently downstream
	// (covered by the session store's own test).
	for _, err := range errs {
		require.ErrorIs(t, err, ErrSessionExpired)
	}
	assert.GreaterOrEqual(t, invalidator.calls.Load(), int32(1))
}
