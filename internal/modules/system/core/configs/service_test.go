package configs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestService(t *testing.T) (*Service, *FileStore) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "settings.yml"))
	return NewService(store, nil), store
}

func TestFileStoreMissingFileYieldsDefaults(t *testing.T) {
	_, store := newTestService(t)
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings(), got)
}

func TestFileStoreMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("api_endpoint: https://img.example.com/api/1/upload\ntoken: abc\n"), 0o600))

	got, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/api/1/upload", got.APIEndpoint)
	assert.Equal(t, "abc", got.Token)
	assert.Equal(t, config.DefaultMaxWidth, got.MaxWidth)
	assert.True(t, got.EnableUploadToAlbum)
	assert.False(t, got.EnableResize)
}

func TestFileStoreRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("max_width: [1, 2\n"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestSetPersistsEveryField(t *testing.T) {
	svc, store := newTestService(t)

	steps := []struct{ field, value string }{
		{FieldAPIEndpoint, "https://img.example.com/api/1/upload"},
		{FieldToken, "secret"},
		{FieldBody, `{"format":"json","nsfw":0}`},
		{FieldEnableUploadToAlbum, "false"},
		{FieldDefaultUploadAlbum, "blog-"},
		{FieldEnableResize, "true"},
		{FieldMaxWidth, "1024"},
	}
	for _, step := range steps {
		_, err := svc.Set(step.field, step.value)
		require.NoError(t, err, step.field)
	}

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, config.Settings{
		APIEndpoint:         "https://img.example.com/api/1/upload",
		Token:               "secret",
		MaxWidth:            1024,
		EnableResize:        true,
		EnableUploadToAlbum: false,
		DefaultUploadAlbum:  "blog-",
		Body:                `{"format":"json","nsfw":0}`,
	}, reloaded)
	assert.Equal(t, reloaded, svc.Snapshot())
}

func TestSetAcceptsAlternateFieldSpellings(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Set("maxWidth", "800")
	require.NoError(t, err)
	_, err = svc.Set("enable-resize", "on")
	require.NoError(t, err)

	got := svc.Snapshot()
	assert.Equal(t, 800, got.MaxWidth)
	assert.True(t, got.EnableResize)
}

func TestSetRejectsBadInput(t *testing.T) {
	svc, store := newTestService(t)

	cases := []struct {
		field, value string
		target       error
	}{
		{"colour", "red", ErrUnknownField},
		{FieldMaxWidth, "0", ErrInvalidValue},
		{FieldMaxWidth, "wide", ErrInvalidValue},
		{FieldEnableResize, "maybe", ErrInvalidValue},
		{FieldBody, `{"format":`, config.ErrInvalidBody},
		{FieldBody, `["a"]`, config.ErrInvalidBody},
	}
	for _, tc := range cases {
		_, err := svc.Set(tc.field, tc.value)
		assert.ErrorIs(t, err, tc.target, "%s=%s", tc.field, tc.value)
		assert.True(t, IsValidationError(err))
	}

	_, err := os.Stat(store.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist), "rejected input must not be persisted")
	assert.Equal(t, config.DefaultSettings(), svc.Snapshot())
}

func TestSetClearsBody(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Set(FieldBody, `{"a":"b"}`)
	require.NoError(t, err)
	_, err = svc.Set(FieldBody, "")
	require.NoError(t, err)
	assert.Equal(t, "", svc.Snapshot().Body)
}

func TestPatchIsAllOrNothing(t *testing.T) {
	svc, _ := newTestService(t)

	updated, err := svc.Patch([]byte(`{"token":"t","max_width":1200,"enable_resize":true}`))
	require.NoError(t, err)
	assert.Equal(t, "t", updated.Token)
	assert.Equal(t, 1200, updated.MaxWidth)
	assert.True(t, updated.EnableResize)

	_, err = svc.Patch([]byte(`{"token":"other","max_width":-1}`))
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, "t", svc.Snapshot().Token)

	_, err = svc.Patch([]byte(`{"body":{"nested":true}}`))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = svc.Patch([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	svc, store := newTestService(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Update(func(cfg *config.Settings) error {
				cfg.MaxWidth++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, config.DefaultMaxWidth+writers, svc.Snapshot().MaxWidth)
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMaxWidth+writers, saved.MaxWidth)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "***", MaskToken("abc"))
	assert.Equal(t, "ab**ef", MaskToken("abcdef"))
}

func TestGetSettingsMasksToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	_, err := svc.Set(FieldToken, "chv_secret_token")
	require.NoError(t, err)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group(""))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token := gjson.Get(rec.Body.String(), "token").String()
	assert.Equal(t, "ch************en", token)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestInvalidateReloadsFromStore(t *testing.T) {
	svc, store := newTestService(t)
	_, err := svc.Set(FieldToken, "first")
	require.NoError(t, err)

	changed := svc.Snapshot()
	changed.Token = "edited on disk"
	require.NoError(t, store.Save(changed))

	assert.Equal(t, "first", svc.Snapshot().Token)
	svc.Invalidate()
	assert.Equal(t, "edited on disk", svc.Snapshot().Token)
}

func TestHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group(""))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/settings", strings.NewReader(`{"api_endpoint":"https://img.example.com","token":"k"}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", gjson.Get(rec.Body.String(), "token").String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://img.example.com", gjson.Get(rec.Body.String(), "api_endpoint").String())
	assert.EqualValues(t, config.DefaultMaxWidth, gjson.Get(rec.Body.String(), "max_width").Int())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings?reveal=true", nil))
	assert.Equal(t, "k", gjson.Get(rec.Body.String(), "token").String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/settings", strings.NewReader(`{"nope":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, gjson.Get(rec.Body.String(), "message").String(), "unknown settings field")
}
