package imagebed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/mx-space/paste-uploader/internal/models"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// URLPath is where the hosted image URL lives in a successful response.
	URLPath         = "image.url"
	maxResponseSize = 1 << 20
	maxErrorExcerpt = 200
)

// ErrNotConfigured is returned when the endpoint or token is missing.
var ErrNotConfigured = errors.New("image hosting endpoint or token is not configured")

// Client posts images to a Chevereto-compatible image hosting API.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client. timeout bounds a single request; zero means none.
func NewClient(logger *zap.Logger, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: timeout,
		},
		logger: logger,
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Upload sends file as multipart form data and returns the hosted image URL.
func (c *Client) Upload(ctx context.Context, file *models.Attachment, settings config.Settings, activePath string) (string, error) {
	if !settings.Ready() {
		return "", ErrNotConfigured
	}
	form, err := BuildMultipart(file, settings, activePath)
	if err != nil {
		return "", err
	}
	if album := form.Get(FieldAlbumName); album != "" {
		c.logger.Debug("upload to album", zap.String("album", album))
	}
	req, err := form.NewRequest(ctx, settings.APIEndpoint)
	if err != nil {
		return "", err
	}
	_, sent := form.File()
	return c.do(req, sent.Name)
}

// UploadQuery sends file as urlencoded params with a base64 source.
func (c *Client) UploadQuery(ctx context.Context, file *models.Attachment, settings config.Settings, activePath string) (string, error) {
	if !settings.Ready() {
		return "", ErrNotConfigured
	}
	params, err := BuildQueryEncoded(file, settings, activePath)
	if err != nil {
		return "", err
	}
	if album := params.Get(FieldAlbumName); album != "" {
		c.logger.Debug("upload to album", zap.String("album", album))
	}
	req, err := NewQueryRequest(ctx, settings.APIEndpoint, params)
	if err != nil {
		return "", err
	}
	return c.do(req, file.Name)
}

func (c *Client) do(req *http.Request, name string) (string, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Info("image upload",
		zap.String("file", name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return ImageURL(body), nil
}

// ImageURL extracts image.url from a response body. A missing path yields "".
func ImageURL(body []byte) string {
	return gjson.GetBytes(body, URLPath).String()
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upload failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("upload failed: status %d: %s", e.StatusCode, e.Message)
}

func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "status_txt", "message"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > maxErrorExcerpt {
		excerpt = excerpt[:maxErrorExcerpt] + "..."
	}
	return excerpt
}
