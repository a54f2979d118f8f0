// Package storage uploads profile images to the object-storage backend
// and returns their public URLs. Size and type constraints are enforced
// client-side before any bytes leave the process.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wallysom2/egua-cli/internal/gateway"
)

// MaxUploadSize is the client-side limit for profile images.
const MaxUploadSize = 2 << 20 // 2MB

var (
	ErrTooLarge      = errors.New("imagem excede o limite de 2MB")
	ErrNotImage      = errors.New("o arquivo precisa ser uma imagem")
	ErrNotAuthorized = errors.New("faça login para enviar uma imagem")
)

// Uploader sends files to the storage backend under a caller-chosen
// path inside a fixed bucket.
type Uploader struct {
	baseURL    string
	anonKey    string
	bucket     string
	creds      gateway.CredentialProvider
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates an uploader for the given storage project and bucket.
func New(baseURL, anonKey, bucket string, creds gateway.CredentialProvider, log zerolog.Logger) *Uploader {
	return &Uploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		bucket:  bucket,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.With().Str("component", "storage").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (used by tests).
func (u *Uploader) SetHTTPClient(httpClient *http.Client) {
	u.httpClient = httpClient
}

// Upload validates and stores the file under path, returning its public
// URL. Validation failures are reported before any request is made.
func (u *Uploader) Upload(ctx context.Context, path string, file io.Reader) (string, error) {
	token, ok := u.creds.Token()
	if !ok {
		return "", ErrNotAuthorized
	}

	// Read one byte past the limit so oversized files are rejected
	// without buffering them whole.
	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxUploadSize {
		return "", ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("apikey", u.anonKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("x-upsert", "true")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("falha no upload (status %d): %s", resp.StatusCode, string(body))
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, u.bucket, path)
	u.log.Debug().Str("path", path).Str("content_type", contentType).Msg("upload concluído")
	return publicURL, nil
}
