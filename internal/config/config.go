package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains the generation backend endpoint settings.
type API struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// Token is a static bearer credential used when no login session exists.
	Token string `toml:"token"`
}

// Paths contains directories owned by the client.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Composition contains the limits enforced on drafts before submission.
type Composition struct {
	TitleMax        int     `toml:"title_max"`
	DescriptionMax  int     `toml:"description_max"`
	SpeedMin        float64 `toml:"speed_min"`
	SpeedMax        float64 `toml:"speed_max"`
	PauseMaxSeconds float64 `toml:"pause_max_seconds"`
}

// Sound is one entry of the pre-recorded sound catalog.
type Sound struct {
	Name     string `toml:"name"`
	Filename string `toml:"filename"`
}

// Tracking contains pipeline polling cadence and stall thresholds.
type Tracking struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	StallAfterPolls     int `toml:"stall_after_polls"`
	StallAfterSeconds   int `toml:"stall_after_seconds"`
	// GiveUpAfterSeconds stops waiting on a non-terminal job; 0 waits forever.
	GiveUpAfterSeconds int `toml:"give_up_after_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the Mantrify client.
//
// Configuration sections by subsystem:
//   - API: backend base URL, request timeout, optional static token
//   - Paths: state (session, submission cache, locks) and log directories
//   - Composition: draft validation limits
//   - Sounds: catalog of sound assets a sound segment may reference
//   - Tracking: pipeline poll interval and stall/give-up thresholds
//   - Logging: log format and level
type Config struct {
	API         API         `toml:"api"`
	Paths       Paths       `toml:"paths"`
	Composition Composition `toml:"composition"`
	Sounds      []Sound     `toml:"sounds"`
	Tracking    Tracking    `toml:"tracking"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mantrify/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mantrify.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, lock, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.LockDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SessionPath returns the file holding the login session.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Paths.StateDir, "session.json")
}

// LockDir returns the directory holding per-draft submission locks.
func (c *Config) LockDir() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "locks")
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// PollInterval returns the delay between pipeline status polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tracking.PollIntervalSeconds) * time.Second
}

// StallAfter returns how long a status may stay unchanged before it counts as stalled.
func (c *Config) StallAfter() time.Duration {
	return time.Duration(c.Tracking.StallAfterSeconds) * time.Second
}

// GiveUpAfter returns how long to wait on a non-terminal job; zero means no limit.
func (c *Config) GiveUpAfter() time.Duration {
	return time.Duration(c.Tracking.GiveUpAfterSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
