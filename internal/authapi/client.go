package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Sentinel errors for the authentication failure taxonomy. Callers match
// with errors.Is and render the message directly.
var (
	ErrInvalidCredentials = errors.New("email ou senha inválidos")
	ErrEmailNotConfirmed  = errors.New("email ainda não confirmado")
	ErrUserExists         = errors.New("já existe uma conta com este email")
	ErrUnauthorized       = errors.New("credencial inválida ou expirada")
)

// Client talks to the auth backend's REST surface (GoTrue-style). The
// application never implements these primitives itself; this client is
// the only place that knows the wire shapes.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates an auth backend client for the given project URL and
// public API key.
func New(baseURL, anonKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("component", "authapi").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (used by tests).
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// User is the raw principal record as the auth backend returns it,
// before mapping to the application identity.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

// Session is the credential material minted by the auth backend. The
// access token is treated as opaque; expiry is the backend's concern.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

type apiError struct {
	Code             string `json:"error_code"`
	Message          string `json:"msg"`
	Error_           string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *apiError) message() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.ErrorDescription != "":
		return e.ErrorDescription
	default:
		return e.Error_
	}
}

// SignInWithPassword exchanges email/password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignUpInput carries registration data. DisplayName and Role travel in
// the principal's metadata.
type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// SignUpResult reports whether the backend already opened a session or
// is waiting for email confirmation.
type SignUpResult struct {
	Session *Session
	User    *User
}

// SignUp registers a new principal with role metadata attached. When the
// project requires email confirmation the backend returns the bare user
// without a session.
func (c *Client) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	body := map[string]any{
		"email":    in.Email,
		"password": in.Password,
		"data": map[string]any{
			"nome":         in.DisplayName,
			"tipo_usuario": in.Role,
		},
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &raw); err != nil {
		return nil, err
	}

	// The signup response is either a session (autoconfirm on) or a
	// bare user (confirmation pending). Distinguish by access_token.
	var session Session
	if err := json.Unmarshal(raw, &session); err == nil && session.AccessToken != "" {
		return &SignUpResult{Session: &session, User: session.User}, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("resposta de cadastro inesperada: %w", err)
	}
	return &SignUpResult{User: &user}, nil
}

// SignOut revokes the session on the backend. A 401 is reported as
// ErrUnauthorized; callers clearing local state treat it as already
// signed out.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", token, nil, nil)
}

// GetUser revalidates a credential against the backend and returns the
// current principal. This is the server-visible identity check the
// route guard relies on.
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExchangeIDToken trades a verified OIDC id_token for a backend session.
// Used to complete the federated sign-in flow after the OAuth callback.
func (c *Client) ExchangeIDToken(ctx context.Context, provider, idToken string) (*Session, error) {
	body := map[string]string{"provider": provider, "id_token": idToken}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=id_token", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("falha de rede ao contatar o backend de auth: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("auth request")

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode >= 400 {
		return c.mapError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// mapError converts backend error payloads into the sentinel taxonomy.
func (c *Client) mapError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var payload apiError
	_ = json.Unmarshal(raw, &payload)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	switch payload.Code {
	case "invalid_credentials":
		return ErrInvalidCredentials
	case "email_not_confirmed":
		return ErrEmailNotConfirmed
	case "user_already_exists", "email_exists":
		return ErrUserExists
	}

	if msg := payload.message(); msg != "" {
		return fmt.Errorf("backend de auth recusou a operação (status %d): %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("backend de auth recusou a operação (status %d)", resp.StatusCode)
}
