// Package session keeps the login session on disk and supplies it to the API
// client as a credential.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"mantrify/internal/logging"
)

// Session is the persisted result of a login.
type Session struct {
	AccessToken string    `json:"accessToken"`
	UserID      int64     `json:"userId"`
	Email       string    `json:"email"`
	IsAdmin     bool      `json:"isAdmin"`
	SavedAt     time.Time `json:"savedAt"`
}

// Store reads and writes the session file. Writers across processes are
// serialized with an advisory lock next to the file. Store implements
// api.Credentials.
type Store struct {
	path     string
	fallback string
	lock     *flock.Flock
	logger   *slog.Logger

	mu      sync.Mutex
	cached  *Session
	evicted bool
}

// NewStore returns a store for path. fallbackToken is offered as the
// credential when no session file exists.
func NewStore(path, fallbackToken string, logger *slog.Logger) *Store {
	return &Store{
		path:     path,
		fallback: strings.TrimSpace(fallbackToken),
		lock:     flock.New(path + ".lock"),
		logger:   logging.NewComponentLogger(logger, "session"),
	}
}

// Path returns the session file location.
func (s *Store) Path() string { return s.path }

// Load returns the saved session, or nil when none exists.
func (s *Store) Load() (*Session, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", s.path, err)
	}
	if strings.TrimSpace(sess.AccessToken) == "" {
		return nil, nil
	}
	return &sess, nil
}

// Save replaces the session file. The file is readable by the owner only.
func (s *Store) Save(sess Session) error {
	if strings.TrimSpace(sess.AccessToken) == "" {
		return errors.New("save session: access token is empty")
	}
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	defer s.lock.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session: %w", err)
	}

	s.mu.Lock()
	cp := sess
	s.cached = &cp
	s.evicted = false
	s.mu.Unlock()
	return nil
}

// Clear deletes the session file. Clearing a missing session is not an error.
func (s *Store) Clear() error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	defer s.lock.Unlock()

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Credential returns the session token, falling back to the configured
// static token. After OnUnauthorized only the fallback is offered.
func (s *Store) Credential() (string, bool) {
	s.mu.Lock()
	evicted := s.evicted
	cached := s.cached
	s.mu.Unlock()

	if !evicted {
		if cached == nil {
			sess, err := s.Load()
			if err != nil {
				s.logger.Warn("session unreadable",
					logging.String(logging.FieldEventType, "session_unreadable"),
					logging.String(logging.FieldImpact, "requests sent without stored login"),
					logging.Error(err),
				)
			}
			if sess != nil {
				s.mu.Lock()
				s.cached = sess
				s.mu.Unlock()
				cached = sess
			}
		}
		if cached != nil {
			return cached.AccessToken, true
		}
	}
	if s.fallback != "" {
		return s.fallback, true
	}
	return "", false
}

// OnUnauthorized evicts the stored session after the backend rejected it.
func (s *Store) OnUnauthorized() {
	s.mu.Lock()
	s.evicted = true
	s.mu.Unlock()
	if err := s.Clear(); err != nil {
		s.logger.Warn("failed to clear rejected session",
			logging.String(logging.FieldEventType, "session_clear_failed"),
			logging.String(logging.FieldImpact, "stale token stays on disk until logout"),
			logging.Error(err),
		)
		return
	}
	s.logger.Info("stored session cleared after rejection")
}

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return nil
}
