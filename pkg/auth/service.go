package auth

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/models"
)

// DefaultDelay simulates the round trip of a real identity service.
const DefaultDelay = time.Second

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Service signs users in and out. Credentials are accepted locally and a
// mock token is issued.
type Service struct {
	store *Store
	delay time.Duration
	now   func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewService returns a service persisting to store.
func NewService(store *Store, delay time.Duration) *Service {
	return &Service{
		store: store,
		delay: delay,
		now:   time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Login signs in with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	name, _, _ := strings.Cut(email, "@")
	return s.issue(ctx, name, email)
}

// Signup creates an account and signs in. An empty name defaults to the
// local part of the email.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return s.issue(ctx, name, email)
}

// Logout forgets the stored credentials.
func (s *Service) Logout() error {
	return s.store.Clear()
}

func (s *Service) issue(ctx context.Context, name, email string) (*models.User, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	user := models.User{
		ID:        s.randomID(),
		Email:     email,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	token := "mock_jwt_token_" + s.randomID()
	if err := s.store.Save(user, token); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to save credentials")
	}
	return &user, nil
}

func (s *Service) randomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.FormatInt(s.rnd.Int63(), 36)
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.Validation("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return errors.Validation("password", "password must be at least 6 characters")
	}
	return nil
}
