package bark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultServerURL = "https://day.app"
	defaultThrottle  = time.Minute
)

// ConfigFunc is called each time a push is attempted to get the latest Bark settings.
type ConfigFunc func() (key, serverURL, title string)

// Service sends iOS push notifications via the Bark API.
type Service struct {
	configFn   ConfigFunc
	httpClient *http.Client
	logger     *zap.Logger

	mu         sync.Mutex
	lastPushAt map[string]time.Time
	throttleD  time.Duration
	now        func() time.Time
}

// New creates a new Bark service. configFn is called on each push to retrieve settings.
func New(configFn ConfigFunc, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		configFn:   configFn,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		lastPushAt: make(map[string]time.Time),
		throttleD:  defaultThrottle,
		now:        time.Now,
	}
}

// Enabled reports whether a device key is configured.
func (s *Service) Enabled() bool {
	key, _, _ := s.configFn()
	return key != ""
}

type pushPayload struct {
	DeviceKey string `json:"device_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Group     string `json:"group,omitempty"`
	Level     string `json:"level,omitempty"`
}

// Push sends a Bark notification immediately (no throttle).
func (s *Service) Push(ctx context.Context, body string) error {
	key, serverURL, title := s.configFn()
	if key == "" {
		return fmt.Errorf("bark key not configured")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}

	b, err := json.Marshal(pushPayload{
		DeviceKey: key,
		Title:     title,
		Body:      body,
		Group:     title,
		Level:     "timeSensitive",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/push", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("bark push failed: status %d", resp.StatusCode)
	}
	return nil
}

// Notify pushes message unless the same message was pushed within the
// throttle window. The display duration does not apply to push delivery.
func (s *Service) Notify(message string, _ time.Duration) {
	if !s.Enabled() {
		return
	}

	s.mu.Lock()
	last, ok := s.lastPushAt[message]
	if ok && s.now().Sub(last) < s.throttleD {
		s.mu.Unlock()
		return
	}
	s.lastPushAt[message] = s.now()
	s.mu.Unlock()

	if err := s.Push(context.Background(), message); err != nil {
		s.logger.Warn("bark push failed", zap.Error(err))
	}
}
