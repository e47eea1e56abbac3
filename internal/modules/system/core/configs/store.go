package configs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mx-space/paste-uploader/internal/config"
	"gopkg.in/yaml.v3"
)

// Store loads and saves the full settings record.
type Store interface {
	Load() (config.Settings, error)
	Save(config.Settings) error
}

// FileStore keeps settings in a YAML file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load merges the stored record over the defaults. A missing or empty file
// yields the defaults.
func (s *FileStore) Load() (config.Settings, error) {
	settings := config.DefaultSettings()

	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read settings %q: %w", s.path, err)
	}

	if err := yaml.NewDecoder(bytes.NewReader(content)).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return config.DefaultSettings(), fmt.Errorf("parse settings %q: %w", s.path, err)
	}
	return settings, nil
}

// Save writes the full record, replacing the file atomically.
func (s *FileStore) Save(settings config.Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
