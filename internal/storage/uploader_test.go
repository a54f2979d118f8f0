package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCreds string

func (s staticCreds) Token() (string, bool) { return string(s), s != "" }

// pngHeader is enough for content-type sniffing to see image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"Key":"avatars/user-1.png"}`))
	}))
	defer server.Close()

	u := New(server.URL, "anon-key", "avatars", staticCreds("tok"), zerolog.Nop())
	url, err := u.Upload(context.Background(), "user-1.png", bytes.NewReader(pngHeader))

	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/avatars/user-1.png", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "image/png", gotContentType)
	assert.Equal(t, server.URL+"/storage/v1/object/public/avatars/user-1.png", url)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	u := New("http://unused.invalid", "anon-key", "avatars", staticCreds("tok"), zerolog.Nop())

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxUploadSize)...)
	_, err := u.Upload(context.Background(), "big.png", bytes.NewReader(big))

	require.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadRejectsNonImage(t *testing.T) {
	u := New("http://unused.invalid", "anon-key", "avatars", staticCreds("tok"), zerolog.Nop())

	_, err := u.Upload(context.Background(), "notes.txt", bytes.NewReader([]byte("apenas texto")))

	require.ErrorIs(t, err, ErrNotImage)
}

func TestUploadRequiresCredential(t *testing.T) {
	u := New("http://unused.invalid", "anon-key", "avatars", staticCreds(""), zerolog.Nop())

	_, err := u.Upload(context.Background(), "user-1.png", bytes.NewReader(pngHeader))

	require.ErrorIs(t, err, ErrNotAuthorized)
}
