package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/wallysom2/egua-cli/internal/authapi"
	"github.com/wallysom2/egua-cli/internal/identity"
)

// State is the lifecycle phase of the session.
type State int

const (
	// StateLoading covers boot and the window inside sign-in/out calls,
	// so consumers never act on a half-updated identity.
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is an atomic read of the session. Principal and Credential
// are either both set or both empty outside of transitions.
type Snapshot struct {
	State      State
	Principal  *authapi.User
	Credential string
}

// Identity derives the application identity from the principal.
// Zero value when anonymous.
func (s Snapshot) Identity() identity.Identity {
	if s.Principal == nil {
		return identity.Identity{}
	}
	return identity.FromPrincipal(s.Principal)
}

// CredentialProvider yields the current bearer credential for outbound
// requests. Implementations must return the freshest value on every
// call; the gateway never caches it.
type CredentialProvider interface {
	Token() (string, bool)
}

// TokenPersistence stores the credential between process runs (keyring
// for the CLI, cookie for the web gateway, memory in tests).
type TokenPersistence interface {
	Save(token string) error
	Load() (string, error)
	Clear() error
}

// MemoryPersistence is a TokenPersistence that lives and dies with the
// process.
type MemoryPersistence struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryPersistence) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryPersistence) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryPersistence) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

var validate = validator.New()

// SignUpParams is the registration input, validated before hitting the
// backend.
type SignUpParams struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=6"`
	DisplayName string `validate:"required"`
	Role        string `validate:"omitempty,oneof=aluno professor desenvolvedor"`
}

// Store is the single source of truth for "who is signed in" and "what
// credential to present". One Store exists per process, constructed at
// boot and handed to consumers explicitly.
type Store struct {
	auth    *authapi.Client
	persist TokenPersistence
	log     zerolog.Logger

	mu        sync.Mutex
	state     State
	principal *authapi.User
	token     string

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Snapshot)
}

// New creates a Store in the Loading state. Call Bootstrap before
// reading it.
func New(auth *authapi.Client, persist TokenPersistence, log zerolog.Logger) *Store {
	if persist == nil {
		persist = &MemoryPersistence{}
	}
	return &Store{
		auth:    auth,
		persist: persist,
		log:     log.With().Str("component", "session").Logger(),
		state:   StateLoading,
		subs:    make(map[int]func(Snapshot)),
	}
}

var _ CredentialProvider = (*Store)(nil)

// Token implements CredentialProvider with the freshest credential.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Snapshot returns an atomic view of the session.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, Principal: s.principal, Credential: s.token}
}

// IsAuthenticated is true only when both the credential and the
// principal are present; neither alone is sufficient.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != "" && s.principal != nil
}

// Subscribe registers fn for every session change. Changes are
// delivered one at a time, in transition order, never coalesced. The
// returned function unsubscribes. Callbacks must not call back into
// the Store.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// set applies a transition and notifies subscribers in order. The
// subscriber mutex stays held during delivery so two rapid transitions
// cannot interleave their notifications.
func (s *Store) set(state State, principal *authapi.User, token string) {
	s.setIf(nil, state, principal, token)
}

// setIf applies the transition only while cond holds, atomically with
// the state read. Returns whether the transition happened.
func (s *Store) setIf(cond func(Snapshot) bool, state State, principal *authapi.User, token string) bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.mu.Lock()
	current := Snapshot{State: s.state, Principal: s.principal, Credential: s.token}
	if cond != nil && !cond(current) {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.principal = principal
	s.token = token
	snap := Snapshot{State: state, Principal: principal, Credential: token}
	s.mu.Unlock()

	for _, fn := range s.subs {
		fn(snap)
	}
	return true
}

// Bootstrap resolves any persisted session at application start. A
// persisted credential is revalidated against the backend before being
// trusted; anything else settles into Anonymous.
func (s *Store) Bootstrap(ctx context.Context) {
	token, err := s.persist.Load()
	if err != nil || token == "" {
		s.set(StateAnonymous, nil, "")
		return
	}

	user, err := s.auth.GetUser(ctx, token)
	if err != nil {
		if !errors.Is(err, authapi.ErrUnauthorized) {
			s.log.Warn().Err(err).Msg("falha ao revalidar sessão persistida")
		}
		_ = s.persist.Clear()
		s.set(StateAnonymous, nil, "")
		return
	}

	s.set(StateAuthenticated, user, token)
}

// SignIn authenticates with email/password. On failure the session
// settles back into Anonymous and the error carries a displayable
// message; the Store never retries.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	s.set(StateLoading, nil, "")

	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.set(StateAnonymous, nil, "")
		return err
	}

	return s.ApplySession(sess)
}

// SignUp registers a new principal with role metadata. It reports
// pending=true when the backend requires email confirmation before a
// session can exist.
func (s *Store) SignUp(ctx context.Context, params SignUpParams) (pending bool, err error) {
	if err := validate.Struct(params); err != nil {
		return false, fmt.Errorf("dados de cadastro inválidos: %w", err)
	}

	s.set(StateLoading, nil, "")

	result, err := s.auth.SignUp(ctx, authapi.SignUpInput{
		Email:       params.Email,
		Password:    params.Password,
		DisplayName: params.DisplayName,
		Role:        params.Role,
	})
	if err != nil {
		s.set(StateAnonymous, nil, "")
		return false, err
	}

	if result.Session == nil {
		s.set(StateAnonymous, nil, "")
		return true, nil
	}

	return false, s.ApplySession(result.Session)
}

// ApplySession installs a session obtained out of band (federated
// callback, sign-in, sign-up with autoconfirm).
func (s *Store) ApplySession(sess *authapi.Session) error {
	if sess == nil || sess.AccessToken == "" || sess.User == nil {
		s.set(StateAnonymous, nil, "")
		return errors.New("sessão incompleta retornada pelo backend de auth")
	}

	if err := s.persist.Save(sess.AccessToken); err != nil {
		s.log.Warn().Err(err).Msg("falha ao persistir credencial")
	}

	s.set(StateAuthenticated, sess.User, sess.AccessToken)
	return nil
}

// SignOut clears local state, revokes the backend session and notifies
// subscribers. In-flight calls holding the old credential are not
// cancelled; they fail under the gateway's 401 policy.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	s.set(StateLoading, nil, "")

	var revokeErr error
	if token != "" {
		if err := s.auth.SignOut(ctx, token); err != nil && !errors.Is(err, authapi.ErrUnauthorized) {
			revokeErr = err
		}
	}

	if err := s.persist.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("falha ao limpar credencial persistida")
	}

	s.set(StateAnonymous, nil, "")
	return revokeErr
}

// InvalidateSession is the gateway's 401 policy hook. It is idempotent:
// concurrent invalidations from parallel failing calls produce exactly
// one sign-out transition.
func (s *Store) InvalidateSession(ctx context.Context) {
	signedOut := s.setIf(func(current Snapshot) bool {
		return current.Credential != "" || current.Principal != nil
	}, StateAnonymous, nil, "")

	if !signedOut {
		return
	}

	s.log.Warn().Msg("sessão invalidada pelo servidor, encerrando localmente")
	if err := s.persist.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("falha ao limpar credencial persistida")
	}
}
