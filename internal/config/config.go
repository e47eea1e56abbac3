package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort           = 2334
	defaultEnv            = "production"
	defaultVaultDir       = "vault"
	defaultSettingsFile   = "settings.yml"
	defaultHTTPTimeout    = 5 * time.Minute
	defaultNoticeDuration = 5 * time.Second
	defaultBarkServerURL  = "https://day.app"
	defaultBarkTitle      = "Image Uploader"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int
	Env            string
	Paths          RuntimePathsConfig
	AllowedOrigins []string
	HTTPTimeout    time.Duration
	NoticeDuration time.Duration
	Bark           BarkConfig
}

type RuntimePathsConfig struct {
	Vault    string
	Settings string
	Logs     string
}

// BarkConfig enables push delivery of upload notices. An empty Key disables it.
type BarkConfig struct {
	Key       string
	ServerURL string
	Title     string
}

type rawAppConfig struct {
	Port               int            `yaml:"port"`
	Env                string         `yaml:"env"`
	Paths              rawPathsConfig `yaml:"paths"`
	Vault              string         `yaml:"vault"`
	SettingsPath       string         `yaml:"settings_path"`
	LogDir             string         `yaml:"log_dir"`
	AllowedOrigins     []string       `yaml:"allowed_origins"`
	CORSAllowedOrigins []string       `yaml:"cors_allowed_origins"`
	HTTPTimeout        string         `yaml:"http_timeout"`
	NoticeDuration     string         `yaml:"notice_duration"`
	Bark               rawBarkConfig  `yaml:"bark"`
}

type rawPathsConfig struct {
	Vault    string `yaml:"vault"`
	Settings string `yaml:"settings"`
	Logs     string `yaml:"logs"`
}

type rawBarkConfig struct {
	Key       string `yaml:"key"`
	ServerURL string `yaml:"server_url"`
	Title     string `yaml:"title"`
}

// Load reads the YAML config at configPath. A missing file at the default path
// yields the built-in defaults so the CLI works without any setup.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	raw := rawAppConfig{}
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:           defaultPort,
		Env:            defaultEnv,
		HTTPTimeout:    defaultHTTPTimeout,
		NoticeDuration: defaultNoticeDuration,
		Bark: BarkConfig{
			ServerURL: defaultBarkServerURL,
			Title:     defaultBarkTitle,
		},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Paths.Vault); v != "" {
		cfg.Paths.Vault = v
	}
	if v := strings.TrimSpace(raw.Vault); v != "" {
		cfg.Paths.Vault = v
	}
	if v := strings.TrimSpace(raw.Paths.Settings); v != "" {
		cfg.Paths.Settings = v
	}
	if v := strings.TrimSpace(raw.SettingsPath); v != "" {
		cfg.Paths.Settings = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	if v := strings.TrimSpace(raw.HTTPTimeout); v != "" {
		d, err := parsePositiveDuration(v)
		if err != nil {
			return fmt.Errorf("http_timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if v := strings.TrimSpace(raw.NoticeDuration); v != "" {
		d, err := parsePositiveDuration(v)
		if err != nil {
			return fmt.Errorf("notice_duration: %w", err)
		}
		cfg.NoticeDuration = d
	}

	if v := strings.TrimSpace(raw.Bark.Key); v != "" {
		cfg.Bark.Key = v
	}
	if v := strings.TrimSpace(raw.Bark.ServerURL); v != "" {
		cfg.Bark.ServerURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(raw.Bark.Title); v != "" {
		cfg.Bark.Title = v
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	return nil
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("expected a positive duration, got %s", raw)
	}
	return d, nil
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func normalizeRuntimePaths(paths RuntimePathsConfig) RuntimePathsConfig {
	paths.Vault = strings.TrimSpace(paths.Vault)
	paths.Settings = strings.TrimSpace(paths.Settings)
	paths.Logs = strings.TrimSpace(paths.Logs)
	return paths
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, "development")
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

func (c *AppConfig) VaultDir() string {
	if c == nil {
		return ResolveRuntimePath("", defaultVaultDir)
	}
	return ResolveRuntimePath(c.Paths.Vault, defaultVaultDir)
}

func (c *AppConfig) SettingsPath() string {
	if c == nil {
		return ResolveRuntimePath("", defaultSettingsFile)
	}
	return ResolveRuntimePath(c.Paths.Settings, defaultSettingsFile)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}
