package imagebed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientUploadMultipart(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status_code":200,"image":{"url":"https://x/y.png"}}`)
	}))
	defer srv.Close()

	s := testSettings()
	s.APIEndpoint = srv.URL
	s.Body = `{"format":"json"}`

	url, err := NewClient(zap.NewNop(), time.Second).Upload(context.Background(), testFile(), s, "A/B/file.png")
	require.NoError(t, err)
	assert.Equal(t, "https://x/y.png", url)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "json", got.FormValue("format"))
	assert.Equal(t, "secret", got.FormValue(FieldKey))
	assert.Equal(t, "A", got.FormValue(FieldAlbumName))
	_, header, err := got.FormFile(FieldSource)
	require.NoError(t, err)
	assert.Equal(t, "B-file.png", header.Filename)
}

func TestClientUploadQuery(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = io.WriteString(w, `{"image":{"url":"https://x/q.png"}}`)
	}))
	defer srv.Close()

	s := testSettings()
	s.APIEndpoint = srv.URL
	s.Body = `{"format":"json"}`

	url, err := NewClient(nil, time.Second).UploadQuery(context.Background(), testFile(), s, "A/note.md")
	require.NoError(t, err)
	assert.Equal(t, "https://x/q.png", url)
	assert.Equal(t, []string{"json"}, form["format"])
	assert.Equal(t, []string{"secret"}, form[FieldKey])
	assert.NotEmpty(t, form[FieldSource])
}

func TestClientMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status_code":200}`)
	}))
	defer srv.Close()

	s := testSettings()
	s.APIEndpoint = srv.URL

	url, err := NewClient(nil, time.Second).Upload(context.Background(), testFile(), s, "note.md")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status_code":400,"error":{"message":"Invalid API v1 key.","code":100}}`)
	}))
	defer srv.Close()

	s := testSettings()
	s.APIEndpoint = srv.URL

	_, err := NewClient(nil, time.Second).Upload(context.Background(), testFile(), s, "note.md")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Invalid API v1 key.", statusErr.Message)
	assert.Contains(t, err.Error(), "status 400")
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	s := testSettings()
	s.APIEndpoint = endpoint

	_, err := NewClient(nil, time.Second).Upload(context.Background(), testFile(), s, "note.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClientNotConfigured(t *testing.T) {
	s := testSettings()
	s.Token = ""
	_, err := NewClient(nil, time.Second).Upload(context.Background(), testFile(), s, "note.md")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestErrorMessageExcerpt(t *testing.T) {
	assert.Equal(t, "bad gateway", errorMessage([]byte("  bad gateway \n")))
	assert.Equal(t, "nope", errorMessage([]byte(`{"status_txt":"nope"}`)))
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "https://x/y.png", ImageURL([]byte(`{"image": {"url": "https://x/y.png"}}`)))
	assert.Empty(t, ImageURL([]byte(`not json`)))
}
