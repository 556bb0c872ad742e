// Package auth persists the signed-in user and token and provides the mock
// identity service used until a real one exists.
package auth

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/lumin/config"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/state"
	"github.com/sirupsen/logrus"
)

// Keys in the state file.
const (
	UserKey  = "lumin_auth_user"
	TokenKey = "lumin_auth_token"
)

// Store reads and writes credentials. It satisfies transport.CredentialSource.
type Store struct {
	file   *state.File
	logger *logrus.Entry
}

// NewStore returns a store backed by the YAML file at path.
func NewStore(path string, logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{file: state.Open(path), logger: logger}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.file.Path()
}

// CurrentUser returns the stored user, or nil when nobody is signed in.
func (s *Store) CurrentUser() (*models.User, error) {
	var u models.User
	ok, err := s.file.Decode(UserKey, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// Token returns the stored token, or "" when there is none or the file
// cannot be read.
func (s *Store) Token() string {
	tok, err := s.file.GetString(TokenKey)
	if err != nil {
		s.logger.WithError(err).Debug("Failed to read auth token")
		return ""
	}
	return tok
}

// Save stores user and token together.
func (s *Store) Save(user models.User, token string) error {
	return s.file.Set(state.State{UserKey: user, TokenKey: token})
}

// Clear removes both keys.
func (s *Store) Clear() error {
	return s.file.Delete(UserKey, TokenKey)
}

// IsAuthenticated reports whether both a user and a token are stored.
func (s *Store) IsAuthenticated() bool {
	u, err := s.CurrentUser()
	if err != nil || u == nil {
		return false
	}
	return s.Token() != ""
}

// Watch calls onChange whenever the state file is changed, including by
// another process, until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	if err := os.MkdirAll(filepath.Dir(s.file.Path()), 0755); err != nil {
		return err
	}
	w, err := config.WatchFile(s.file.Path(), 100*time.Millisecond, s.logger, func(string) {
		onChange()
	})
	if err != nil {
		return err
	}
	defer w.Close()
	w.Start(ctx)
	return nil
}
