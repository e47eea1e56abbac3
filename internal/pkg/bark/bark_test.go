package bark

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newFakeBark(t *testing.T, status int) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var hits atomic.Int32
	var last atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/push", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		last.Store(string(body))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, &last
}

func TestPushSendsPayload(t *testing.T) {
	srv, hits, last := newFakeBark(t, http.StatusOK)
	svc := New(func() (string, string, string) { return "device", srv.URL + "/", "Image Uploader" }, nil)

	require.NoError(t, svc.Push(context.Background(), "upload failed: status 500"))
	assert.EqualValues(t, 1, hits.Load())

	payload := last.Load().(string)
	assert.Equal(t, "device", gjson.Get(payload, "device_key").String())
	assert.Equal(t, "Image Uploader", gjson.Get(payload, "title").String())
	assert.Equal(t, "upload failed: status 500", gjson.Get(payload, "body").String())
}

func TestPushReportsServerErrors(t *testing.T) {
	srv, _, _ := newFakeBark(t, http.StatusBadRequest)
	svc := New(func() (string, string, string) { return "device", srv.URL, "t" }, nil)

	assert.Error(t, svc.Push(context.Background(), "x"))
}

func TestPushWithoutKey(t *testing.T) {
	svc := New(func() (string, string, string) { return "", "", "" }, nil)
	assert.False(t, svc.Enabled())
	assert.Error(t, svc.Push(context.Background(), "x"))

	svc.Notify("ignored", time.Second)
}

func TestNotifyThrottlesRepeats(t *testing.T) {
	srv, hits, _ := newFakeBark(t, http.StatusOK)
	svc := New(func() (string, string, string) { return "device", srv.URL, "t" }, nil)
	now := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	svc.Notify("same", 5*time.Second)
	svc.Notify("same", 5*time.Second)
	svc.Notify("other", 5*time.Second)
	assert.EqualValues(t, 2, hits.Load())

	now = now.Add(2 * time.Minute)
	svc.Notify("same", 5*time.Second)
	assert.EqualValues(t, 3, hits.Load())
}
