package snoosession

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const sessionFileName = "session.json"

// EnvSessionDir overrides the session base directory, so multiple accounts or
// instances can coexist.
const EnvSessionDir = "REDDIT_SESSION_DIR"

// SessionStore persists a Session to a single JSON file under a base
// directory. It is the only component with file-system side effects; one
// instance per process, passed by reference.
type SessionStore struct {
	dir string
}

// NewSessionStore returns a store rooted at dir, or at DefaultSessionDir()
// when dir is empty.
func NewSessionStore(dir string) *SessionStore {
	if dir == "" {
		dir = DefaultSessionDir()
	}
	return &SessionStore{dir: dir}
}

// DefaultSessionDir is $REDDIT_SESSION_DIR, else ~/.config/snoosession.
func DefaultSessionDir() string {
	if dir := os.Getenv(EnvSessionDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".snoosession")
	}
	return filepath.Join(home, ".config", "snoosession")
}

// Path returns the session file location.
func (s *SessionStore) Path() string {
	return filepath.Join(s.dir, sessionFileName)
}

// Load reads the persisted session. A missing file is not an error: it
// returns ok=false. A file that exists but cannot be parsed returns
// ErrSessionCorrupt, which callers treat like an absent session for refresh
// purposes but report differently.
func (s *SessionStore) Load() (Session, bool, error) {
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, false, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if len(sess.Cookies) == 0 {
		return Session{}, false, fmt.Errorf("%w: no cookies in %s", ErrSessionCorrupt, s.Path())
	}
	return sess, true, nil
}

// Save persists the session atomically: write to a temp file in the same
// directory, then rename over the target, so a concurrent Load never sees a
// partial write. The file is owner-readable only since it holds a bearer
// credential.
func (s *SessionStore) Save(sess Session) error {
	if len(sess.Cookies) == 0 {
		return fmt.Errorf("%w: refusing to save session without cookies", ErrInvalidInput)
	}
	if sess.SavedAt == 0 {
		sess.SavedAt = float64(time.Now().Unix())
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, sessionFileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.Path())
}
