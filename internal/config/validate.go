package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateComposition(); err != nil {
		return err
	}
	if err := c.validateSounds(); err != nil {
		return err
	}
	if err := c.validateTracking(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api.base_url must include a host, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("api.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateComposition() error {
	comp := c.Composition
	if comp.TitleMax <= 0 {
		return errors.New("composition.title_max must be positive")
	}
	if comp.DescriptionMax < 0 {
		return errors.New("composition.description_max must not be negative")
	}
	if comp.SpeedMin <= 0 {
		return errors.New("composition.speed_min must be positive")
	}
	if comp.SpeedMax < comp.SpeedMin {
		return errors.New("composition.speed_max must be greater than or equal to speed_min")
	}
	if comp.PauseMaxSeconds <= 0 {
		return errors.New("composition.pause_max_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSounds() error {
	seen := make(map[string]struct{}, len(c.Sounds))
	for i, sound := range c.Sounds {
		if sound.Filename == "" {
			return fmt.Errorf("sounds[%d].filename must be set", i)
		}
		key := strings.ToLower(sound.Filename)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("sounds[%d].filename %q is duplicated", i, sound.Filename)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (c *Config) validateTracking() error {
	t := c.Tracking
	if t.PollIntervalSeconds <= 0 {
		return errors.New("tracking.poll_interval_seconds must be positive")
	}
	if t.StallAfterPolls < 0 {
		return errors.New("tracking.stall_after_polls must not be negative")
	}
	if t.StallAfterSeconds < 0 {
		return errors.New("tracking.stall_after_seconds must not be negative")
	}
	if t.StallAfterPolls == 0 && t.StallAfterSeconds == 0 {
		return errors.New("tracking: set stall_after_polls or stall_after_seconds")
	}
	if t.GiveUpAfterSeconds < 0 {
		return errors.New("tracking.give_up_after_seconds must not be negative")
	}
	if t.GiveUpAfterSeconds > 0 && t.StallAfterSeconds > 0 && t.GiveUpAfterSeconds <= t.StallAfterSeconds {
		return errors.New("tracking.give_up_after_seconds must exceed stall_after_seconds")
	}
	return nil
}
