package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen         = "127.0.0.1:8787"
	DefaultFilePath       = "data/meet-days.json"
	DefaultBranch         = "main"
	DefaultTimeoutSeconds = 8
	DefaultStoreDir       = "~/.local/share/meetdays"
	DefaultConfigPath     = "~/.config/meetdays/config.yaml"
	DefaultGitHubAPI      = "https://api.github.com"
)

// LogConfig selects log verbosity and an optional rotated log file.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file,omitempty" toml:"file,omitempty"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// StoreConfig selects the local scoped store that holds the meet-day set.
type StoreConfig struct {
	// Driver is one of "file", "badger" or "memory".
	Driver string `yaml:"driver" toml:"driver" validate:"oneof=file badger memory"`
	// Path is the directory backing the file and badger drivers.
	Path string `yaml:"path" toml:"path" validate:"required_unless=Driver memory"`
}

// SyncConfig configures the client side of remote sync. An empty Endpoint
// disables sync entirely.
type SyncConfig struct {
	Endpoint       string `yaml:"endpoint" toml:"endpoint" validate:"omitempty,url"`
	Key            string `yaml:"key,omitempty" toml:"key,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds" validate:"gte=0"`
	// Schedule is the cron expression used by `meetdays sync --watch`.
	Schedule string `yaml:"schedule,omitempty" toml:"schedule,omitempty"`
}

// Timeout returns the per-request bound for the sync client.
func (s SyncConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ServerConfig configures the edge service. An empty SyncKey rejects every
// write.
type ServerConfig struct {
	Listen   string `yaml:"listen" toml:"listen" validate:"required"`
	SyncKey  string `yaml:"sync_key,omitempty" toml:"sync_key,omitempty"`
	Backend  string `yaml:"backend" toml:"backend" validate:"oneof=github gcs memory"`
	FilePath string `yaml:"file_path" toml:"file_path" validate:"required"`
	Branch   string `yaml:"branch" toml:"branch" validate:"required"`
}

// GitHubConfig targets a file in a GitHub repository.
type GitHubConfig struct {
	Owner  string `yaml:"owner" toml:"owner"`
	Repo   string `yaml:"repo" toml:"repo"`
	Token  string `yaml:"token,omitempty" toml:"token,omitempty"`
	APIURL string `yaml:"api_url" toml:"api_url" validate:"omitempty,url"`
}

// GCSConfig targets an object in a Cloud Storage bucket.
type GCSConfig struct {
	Bucket          string `yaml:"bucket" toml:"bucket"`
	CredentialsFile string `yaml:"credentials_file,omitempty" toml:"credentials_file,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	Log    LogConfig    `yaml:"log" toml:"log"`
	Store  StoreConfig  `yaml:"store" toml:"store"`
	Sync   SyncConfig   `yaml:"sync" toml:"sync"`
	Server ServerConfig `yaml:"server" toml:"server"`
	GitHub GitHubConfig `yaml:"github" toml:"github"`
	GCS    GCSConfig    `yaml:"gcs" toml:"gcs"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log:   LogConfig{Level: "info"},
		Store: StoreConfig{Driver: "file", Path: DefaultStoreDir},
		Sync:  SyncConfig{TimeoutSeconds: DefaultTimeoutSeconds},
		Server: ServerConfig{
			Listen:   DefaultListen,
			Backend:  "github",
			FilePath: DefaultFilePath,
			Branch:   DefaultBranch,
		},
		GitHub: GitHubConfig{APIURL: DefaultGitHubAPI},
	}
}

// Normalize fills in missing values so partially-filled configs still work.
func (c *Config) Normalize() {
	switch c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level)); c.Log.Level {
	case "":
		c.Log.Level = "info"
	case "warning":
		c.Log.Level = "warn"
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = "file"
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = DefaultStoreDir
	}
	c.Sync.Endpoint = strings.TrimSpace(c.Sync.Endpoint)
	if c.Sync.TimeoutSeconds <= 0 {
		c.Sync.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	c.Server.Backend = strings.ToLower(strings.TrimSpace(c.Server.Backend))
	if c.Server.Backend == "" {
		c.Server.Backend = "github"
	}
	if c.Server.FilePath == "" {
		c.Server.FilePath = DefaultFilePath
	}
	if c.Server.Branch == "" {
		c.Server.Branch = DefaultBranch
	}
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = DefaultGitHubAPI
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints. Backend targets are only checked by
// ValidateServer because client-only use never touches them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateServer checks that the selected backend has a target.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Server.Backend {
	case "github":
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return errors.New("invalid config: github backend needs github.owner and github.repo")
		}
	case "gcs":
		if c.GCS.Bucket == "" {
			return errors.New("invalid config: gcs backend needs gcs.bucket")
		}
	}
	return nil
}

// Load loads configuration from the given YAML (or .toml) path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the file is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(resolved, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if isTOML(resolved) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, creating the parent directory (0700) if needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
