package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mantrify/internal/api"
	"mantrify/internal/composition"
	"mantrify/internal/config"
	"mantrify/internal/logging"
	"mantrify/internal/meditation"
	"mantrify/internal/queue"
	"mantrify/internal/session"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	sessionOnce sync.Once
	session     *session.Store
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerValue writes to the log file, and to stderr with --verbose. Stdout
// carries command output only.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		verbose := c.verbose != nil && *c.verbose
		logger, err := logging.NewFromConfig(c.configValue(), verbose)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) sessionStore() *session.Store {
	c.sessionOnce.Do(func() {
		cfg := c.configValue()
		c.session = session.NewStore(cfg.SessionPath(), cfg.API.Token, c.loggerValue())
	})
	return c.session
}

// apiClient builds a client authenticated from the session file, falling back
// to the configured token.
func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(api.ConfigFromApp(cfg),
		api.WithCredentials(c.sessionStore()),
		api.WithLogger(c.loggerValue()),
	)
}

// anonymousClient builds a client that never sends a credential.
func (c *commandContext) anonymousClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(api.ConfigFromApp(cfg), api.WithLogger(c.loggerValue()))
}

func (c *commandContext) catalog() *meditation.Catalog {
	return meditation.CatalogFromConfig(c.configValue())
}

func (c *commandContext) validator() *composition.Validator {
	return composition.NewValidator(composition.RulesFromConfig(c.configValue()), c.catalog())
}

func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open submission store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
