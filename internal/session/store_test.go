package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallysom2/egua-cli/internal/authapi"
)

const testToken = "access-token-123"

// mockAuthBackend fakes the auth backend's REST surface.
func mockAuthBackend(t *testing.T, email, password string) *httptest.Server {
	t.Helper()

	user := map[string]any{
		"id":    "user-123",
		"email": email,
		"user_metadata": map[string]any{
			"nome":         "Ana",
			"tipo_usuario": "aluno",
		},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Email != email || req.Password != password {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": testToken,
				"token_type":   "bearer",
				"user":         user,
			})
		case "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"msg":"invalid JWT"}`))
				return
			}
			json.NewEncoder(w).Encode(user)
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		case "/auth/v1/signup":
			// Confirmation-pending project: bare user, no session.
			json.NewEncoder(w).Encode(user)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestStore(t *testing.T, backendURL string) *Store {
	t.Helper()
	client := authapi.New(backendURL, "anon-key", zerolog.Nop())
	return New(client, &MemoryPersistence{}, zerolog.Nop())
}

func TestSignInSuccess(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	store := newTestStore(t, backend.URL)
	store.Bootstrap(context.Background())
	require.False(t, store.IsAuthenticated())

	err := store.SignIn(context.Background(), "ana@egua.dev", "senha123")
	require.NoError(t, err)

	assert.True(t, store.IsAuthenticated())
	snap := store.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, testToken, snap.Credential)
	assert.Equal(t, "Ana", snap.Identity().DisplayName)
}

func TestSignInInvalidCredentials(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	store := newTestStore(t, backend.URL)
	err := store.SignIn(context.Background(), "ana@egua.dev", "errada")

	require.ErrorIs(t, err, authapi.ErrInvalidCredentials)
	assert.Equal(t, StateAnonymous, store.Snapshot().State)
	assert.False(t, store.IsAuthenticated())
}

func TestSignInTransitionOrder(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	store := newTestStore(t, backend.URL)

	var states []State
	unsubscribe := store.Subscribe(func(snap Snapshot) {
		states = append(states, snap.State)
	})
	defer unsubscribe()

	require.NoError(t, store.SignIn(context.Background(), "ana@egua.dev", "senha123"))

	// Loading is entered before the backend call so consumers never see
	// a stale identity, then Authenticated lands.
	require.Equal(t, []State{StateLoading, StateAuthenticated}, states)
}

func TestBootstrapWithPersistedToken(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	persist := &MemoryPersistence{}
	require.NoError(t, persist.Save(testToken))

	client := authapi.New(backend.URL, "anon-key", zerolog.Nop())
	store := New(client, persist, zerolog.Nop())
	store.Bootstrap(context.Background())

	assert.True(t, store.IsAuthenticated())
}

func TestBootstrapRejectsStaleToken(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	persist := &MemoryPersistence{}
	require.NoError(t, persist.Save("expired-token"))

	client := authapi.New(backend.URL, "anon-key", zerolog.Nop())
	store := New(client, persist, zerolog.Nop())
	store.Bootstrap(context.Background())

	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, StateAnonymous, store.Snapshot().State)

	remaining, _ := persist.Load()
	assert.Empty(t, remaining, "stale token must be cleared")
}

// isAuthenticated must require credential AND principal simultaneously.
func TestIsAuthenticatedRequiresBoth(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	user := &authapi.User{ID: "user-123", Email: "ana@egua.dev"}

	tests := []struct {
		name    string
		session *authapi.Session
		want    bool
	}{
		{"both present", &authapi.Session{AccessToken: testToken, User: user}, true},
		{"credential only", &authapi.Session{AccessToken: testToken}, false},
		{"principal only", &authapi.Session{User: user}, false},
		{"neither", &authapi.Session{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, backend.URL)
			err := store.ApplySession(tt.session)
			if tt.want {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
			assert.Equal(t, tt.want, store.IsAuthenticated())
		})
	}
}

func TestSignUpPendingConfirmation(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	store := newTestStore(t, backend.URL)
	pending, err := store.SignUp(context.Background(), SignUpParams{
		Email:       "novo@egua.dev",
		Password:    "senha123",
		DisplayName: "Novo Usuário",
		Role:        "professor",
	})

	require.NoError(t, err)
	assert.True(t, pending)
	assert.False(t, store.IsAuthenticated())
}

func TestSignUpValidation(t *testing.T) {
	store := newTestStore(t, "http://unused.invalid")

	_, err := store.SignUp(context.Background(), SignUpParams{
		Email:       "não-é-email",
		Password:    "123",
		DisplayName: "",
	})
	require.Error(t, err)
	// Invalid input must fail before any backend call or transition.
	assert.Equal(t, StateLoading, store.Snapshot().State)
}

func TestSignOutClearsSession(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	store := newTestStore(t, backend.URL)
	require.NoError(t, store.SignIn(context.Background(), "ana@egua.dev", "senha123"))
	require.NoError(t, store.SignOut(context.Background()))

	assert.False(t, store.IsAuthenticated())
	token, ok := store.Token()
	assert.False(t, ok)
	assert.Empty(t, token)
}

// N concurrent 401-policy invalidations must produce exactly one
// sign-out transition.
func TestInvalidateSessionIdempotent(t *testing.T) {
	backend := mockAuthBackend(t, "ana@egua.dev", "senha123")
	defer backend.Close()

	store := newTestStore(t, backend.URL)
	require.NoError(t, store.SignIn(context.Background(), "ana@egua.dev", "senha123"))

	var mu sync.Mutex
	signOuts := 0
	unsubscribe := store.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if snap.State == StateAnonymous {
			signOuts++
		}
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.InvalidateSession(context.Background())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, signOuts)
	assert.False(t, store.IsAuthenticated())
}

func TestApplySessionRejectsNil(t *testing.T) {
	store := newTestStore(t, "http://unused.invalid")
	err := store.ApplySession(nil)
	require.Error(t, err)
	assert.False(t, store.IsAuthenticated())
}
