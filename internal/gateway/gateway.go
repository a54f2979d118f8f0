package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// ErrSessionExpired is returned for every call that hits the 401
// policy, after the forced sign-out has been triggered.
var ErrSessionExpired = errors.New("Sessão expirada. Faça login novamente.")

// APIError carries the best available server-supplied message for a
// non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// CredentialProvider yields the current bearer credential. It is read
// fresh on every call; the gateway never caches a token.
type CredentialProvider interface {
	Token() (string, bool)
}

// SessionInvalidator is the single 401 policy hook: forced sign-out
// plus whatever navigation the surface needs. It must be idempotent
// under concurrent invocation.
type SessionInvalidator interface {
	InvalidateSession(ctx context.Context)
}

// Gateway wraps every outbound REST call with credential attachment and
// uniform response handling. Callers are otherwise unaware of the
// credential mechanism.
type Gateway struct {
	baseURL     string
	httpClient  *http.Client
	creds       CredentialProvider
	invalidator SessionInvalidator
	log         zerolog.Logger
}

// New creates a gateway for the REST backend at baseURL.
func New(baseURL string, creds CredentialProvider, invalidator SessionInvalidator, log zerolog.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		creds:       creds,
		invalidator: invalidator,
		log:         log.With().Str("component", "gateway").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (used by tests).
func (g *Gateway) SetHTTPClient(httpClient *http.Client) {
	g.httpClient = httpClient
}

// Get issues a GET request and decodes the JSON response into out.
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body.
func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return g.do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH request with a JSON body.
func (g *Gateway) Patch(ctx context.Context, path string, body, out any) error {
	return g.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE request.
func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.do(ctx, http.MethodDelete, path, nil, out)
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	// Credential is read at call time, never reused across calls, so a
	// sign-out between two requests is always honored.
	if token, ok := g.creds.Token(); ok {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	g.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Msg("outbound request")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	return g.handleResponse(ctx, requestID, resp, out)
}

func (g *Gateway) handleResponse(ctx context.Context, requestID string, resp *http.Response, out any) error {
	// 401 invalidates the whole session regardless of verb or caller.
	if resp.StatusCode == http.StatusUnauthorized {
		g.log.Warn().
			Str("request_id", requestID).
			Str("path", resp.Request.URL.Path).
			Msg("resposta 401, aplicando política de sessão expirada")
		if g.invalidator != nil {
			g.invalidator.InvalidateSession(ctx)
		}
		return ErrSessionExpired
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	isJSON := hasJSONContentType(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("Erro %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		if isJSON {
			if serverMsg := decodeServerMessage(resp.Body); serverMsg != "" {
				message = serverMsg
			}
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if !isJSON {
		// 2xx without a JSON body resolves to the raw text.
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if text, ok := out.(*string); ok {
			*text = string(raw)
		}
		return nil
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

func hasJSONContentType(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// decodeServerMessage extracts the human message from an error body,
// accepting the two shapes the backend uses.
func decodeServerMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
