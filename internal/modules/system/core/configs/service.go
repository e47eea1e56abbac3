package configs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Service manages the persisted image hosting settings.
type Service struct {
	store  Store
	logger *zap.Logger
	mu     sync.RWMutex
	cfg    *config.Settings

	// updateMu serializes read-modify-save cycles.
	updateMu sync.Mutex
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Get returns the current settings, loading them from the store if not cached.
func (s *Service) Get() (config.Settings, error) {
	s.mu.RLock()
	if s.cfg != nil {
		defer s.mu.RUnlock()
		return *s.cfg, nil
	}
	s.mu.RUnlock()

	return s.load()
}

func (s *Service) load() (config.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg != nil {
		return *s.cfg, nil
	}
	cfg, err := s.store.Load()
	if err != nil {
		return cfg, err
	}
	s.cfg = &cfg
	return cfg, nil
}

// Snapshot returns a copy of the current settings. A store that cannot be read
// yields the defaults, which are never ready to upload.
func (s *Service) Snapshot() config.Settings {
	cfg, err := s.Get()
	if err != nil {
		s.logger.Error("failed to load settings", zap.Error(err))
		return config.DefaultSettings()
	}
	return cfg
}

// Set changes one field by its form name and persists the full record.
func (s *Service) Set(field, value string) (config.Settings, error) {
	return s.Update(func(cfg *config.Settings) error {
		return setField(cfg, field, value)
	})
}

// Patch applies a JSON object of field changes as a single update. Scalar
// values of any JSON type are accepted.
func (s *Service) Patch(body []byte) (config.Settings, error) {
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return config.Settings{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidValue)
	}
	return s.Update(func(cfg *config.Settings) error {
		var err error
		gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
			if value.IsObject() || value.IsArray() {
				err = fmt.Errorf("%w: %s must be a scalar", ErrInvalidValue, key.String())
				return false
			}
			raw := value.String()
			if value.Type == gjson.Number {
				raw = value.Raw
			}
			err = setField(cfg, key.String(), raw)
			return err == nil
		})
		return err
	})
}

// Update applies fn to a copy of the settings and persists the result. The
// cached settings change only when the save succeeds.
func (s *Service) Update(fn func(*config.Settings) error) (config.Settings, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	current, err := s.Get()
	if err != nil {
		return config.Settings{}, err
	}

	updated := current
	if err := fn(&updated); err != nil {
		return current, err
	}
	if err := s.store.Save(updated); err != nil {
		return current, fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	s.cfg = &updated
	s.mu.Unlock()

	s.logger.Debug("settings saved")
	return updated, nil
}

// Invalidate clears the cache, forcing a store reload on next Get.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = nil
}

// IsValidationError reports whether err was caused by bad user input rather
// than by the store.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnknownField) || errors.Is(err, ErrInvalidValue) || errors.Is(err, config.ErrInvalidBody)
}
