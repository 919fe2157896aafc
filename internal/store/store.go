// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	cerrors "github.com/valpere/crosslink/internal/errors"
	"github.com/valpere/crosslink/internal/rules"
	"github.com/valpere/crosslink/internal/utils"
)

// ErrValidation marks a rule set refused by the validation gate. The
// wrapped rules.ValidationErrors lists every problem.
var ErrValidation = errors.New("rule set rejected")

// ErrDecode marks imported text that is neither a JSON nor a YAML rule set.
var ErrDecode = errors.New("unreadable rule set")

// Store is the rule persistence boundary: every write is validated first,
// reads are memoized until Invalidate.
type Store struct {
	backend Backend
	key     string
	retry   *cerrors.Service
	logger  utils.Logger

	mu     sync.Mutex
	cached []rules.SiteProfile
	loaded bool
}

// Option configures a Store.
type Option func(*Store)

// WithRetry sets the retry service used around backend calls.
func WithRetry(service *cerrors.Service) Option {
	return func(s *Store) {
		if service != nil {
			s.retry = service
		}
	}
}

// WithLogger replaces the store logger.
func WithLogger(logger utils.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store persisting the rule set under key.
func New(backend Backend, key string, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if key == "" {
		return nil, fmt.Errorf("storage key cannot be empty")
	}

	s := &Store{
		backend: backend,
		key:     key,
		retry:   cerrors.NewService(),
		logger:  utils.NewComponentLogger("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load returns the persisted rule set. A missing or unreadable payload
// yields the default profiles.
func (s *Store) Load(ctx context.Context) ([]rules.SiteProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return rules.CloneAll(s.cached), nil
	}

	var (
		payload string
		found   bool
	)
	err := s.retry.ExecuteWithRetry(ctx, func() error {
		var getErr error
		payload, found, getErr = s.backend.Get(ctx, s.key)
		return getErr
	}, "load rules")
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from backend: %w", err)
	}

	profiles := rules.DefaultProfiles()
	if found {
		decoded, decodeErr := rules.Decode([]byte(payload))
		if decodeErr != nil {
			s.logger.Warnf("stored rules are unreadable, using defaults: %v", decodeErr)
		} else {
			profiles = decoded
		}
	} else {
		s.logger.Info("no stored rules, using defaults")
	}

	s.cached = profiles
	s.loaded = true
	return rules.CloneAll(profiles), nil
}

// Save validates and persists profiles. A rule set with any validation
// error is refused as a whole; the error wraps ErrValidation and the
// complete rules.ValidationErrors list.
func (s *Store) Save(ctx context.Context, profiles []rules.SiteProfile) error {
	if verrs := rules.Validate(profiles); len(verrs) > 0 {
		return fmt.Errorf("%w: %w", ErrValidation, verrs)
	}

	data, err := rules.Encode(profiles, rules.FormatJSON, false)
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.retry.ExecuteWithRetry(ctx, func() error {
		return s.backend.Set(ctx, s.key, string(data))
	}, "save rules")
	if err != nil {
		return fmt.Errorf("failed to save rules to backend: %w", err)
	}

	s.cached = rules.CloneAll(profiles)
	s.loaded = true
	s.logger.Infof("saved %d site profiles", len(profiles))
	return nil
}

// Export serializes the current rule set as indented JSON.
func (s *Store) Export(ctx context.Context) (string, error) {
	profiles, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	data, err := rules.Encode(profiles, rules.FormatJSON, true)
	if err != nil {
		return "", fmt.Errorf("failed to encode rules: %w", err)
	}
	return string(data), nil
}

// Import parses text (JSON or YAML) and saves it through the same gate as
// Save.
func (s *Store) Import(ctx context.Context, text string) ([]rules.SiteProfile, error) {
	profiles, err := rules.Decode([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := s.Save(ctx, profiles); err != nil {
		return nil, err
	}
	return rules.CloneAll(profiles), nil
}

// Invalidate drops the memoized rule set so the next Load reads the
// backend again.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.loaded = false
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Ping checks that the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	_, _, err := s.backend.Get(ctx, s.key)
	return err
}
