package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSounds()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv("MANTRIFY_API_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.API.BaseURL = value
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if value, ok := os.LookupEnv("MANTRIFY_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.API.Token = value
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSounds() {
	if len(c.Sounds) == 0 {
		c.Sounds = DefaultSounds()
		return
	}
	cleaned := make([]Sound, 0, len(c.Sounds))
	for _, sound := range c.Sounds {
		sound.Name = strings.TrimSpace(sound.Name)
		sound.Filename = strings.TrimSpace(sound.Filename)
		if sound.Name == "" && sound.Filename == "" {
			continue
		}
		if sound.Name == "" {
			sound.Name = sound.Filename
		}
		cleaned = append(cleaned, sound)
	}
	c.Sounds = cleaned
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
