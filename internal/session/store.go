// Package session holds the signed-in identity. The Store is the only
// writer; everything else reads it through Current, AccessToken or a
// subscription.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider is the identity-provider contract.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignInWithProvider(ctx context.Context, kind ProviderKind) (*Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, id *Identity, p Profile) (*Identity, error)
}

type Store struct {
	provider  Provider
	persister Persister
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	current  *Identity
	inflight int
	subs     map[int]func(*Identity)
	nextSub  int
}

type Option func(*Store)

func WithPersister(p Persister) Option { return func(s *Store) { s.persister = p } }

func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(p Provider, opts ...Option) *Store {
	s := &Store{
		provider: p,
		logger:   zerolog.Nop(),
		now:      time.Now,
		subs:     map[int]func(*Identity){},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Current returns a copy of the signed-in identity, or nil.
func (s *Store) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Email is the current user's email, or "" when signed out.
func (s *Store) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Email
}

// AccessToken satisfies httpx.TokenSource.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// Loading reports whether any provider call is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Subscribe registers fn for identity changes. fn runs on the goroutine
// that made the change.
func (s *Store) Subscribe(fn func(*Identity)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

// set replaces the identity, persists it and notifies subscribers.
func (s *Store) set(id *Identity) {
	s.mu.Lock()
	s.current = id.clone()
	fns := make([]func(*Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if s.persister != nil {
		var err error
		if id == nil {
			err = s.persister.Clear()
		} else {
			err = s.persister.Save(id)
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("session persist failed")
		}
	}
	for _, fn := range fns {
		fn(id.clone())
	}
}

func (s *Store) CreateAccount(ctx context.Context, email, password string, profile Profile) (*Identity, error) {
	s.begin()
	defer s.end()

	id, err := s.provider.SignUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.logger.Info().Err(err).Str("email", email).Msg("sign up failed")
		return nil, err
	}
	if !profile.empty() {
		updated, err := s.provider.UpdateProfile(ctx, id, profile)
		if err != nil {
			// the account exists; keep the session and report the profile failure
			s.set(id)
			return id.clone(), err
		}
		id = updated
	}
	s.set(id)
	s.logger.Info().Str("email", id.Email).Msg("account created")
	return id.clone(), nil
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	s.begin()
	defer s.end()

	id, err := s.provider.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.logger.Info().Err(err).Str("email", email).Msg("sign in failed")
		return nil, err
	}
	s.set(id)
	s.logger.Info().Str("email", id.Email).Msg("signed in")
	return id.clone(), nil
}

func (s *Store) SignInWithProvider(ctx context.Context, kind ProviderKind) (*Identity, error) {
	s.begin()
	defer s.end()

	id, err := s.provider.SignInWithProvider(ctx, kind)
	if err != nil {
		if errors.Is(err, ErrProviderCancelled) {
			s.logger.Debug().Str("provider", string(kind)).Msg("provider flow cancelled")
		} else {
			s.logger.Info().Err(err).Str("provider", string(kind)).Msg("provider sign in failed")
		}
		return nil, err
	}
	s.set(id)
	s.logger.Info().Str("email", id.Email).Str("provider", string(kind)).Msg("signed in")
	return id.clone(), nil
}

func (s *Store) ResetPassword(ctx context.Context, email string) error {
	s.begin()
	defer s.end()
	return s.provider.SendPasswordReset(ctx, strings.TrimSpace(email))
}

func (s *Store) UpdateProfile(ctx context.Context, profile Profile) (*Identity, error) {
	cur := s.Current()
	if cur == nil {
		return nil, &AuthError{Kind: ErrUserNotFound, Code: "no-current-user"}
	}

	s.begin()
	defer s.end()

	id, err := s.provider.UpdateProfile(ctx, cur, profile)
	if err != nil {
		return nil, err
	}
	s.set(id)
	return id.clone(), nil
}

// SignOut is local: the identity is dropped and subscribers see nil.
func (s *Store) SignOut(context.Context) error {
	s.set(nil)
	s.logger.Info().Msg("signed out")
	return nil
}

// Restore loads a persisted identity. Expired tokens are discarded.
// Subscribers are notified either way so observers can leave their
// loading state.
func (s *Store) Restore(ctx context.Context) (*Identity, error) {
	if s.persister == nil {
		s.set(nil)
		return nil, nil
	}
	s.begin()
	defer s.end()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := s.persister.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("session restore failed")
		s.set(nil)
		return nil, err
	}
	if id != nil && id.Expired(s.now()) {
		s.logger.Debug().Str("email", id.Email).Msg("stored session expired")
		id = nil
	}
	s.set(id)
	return id.clone(), nil
}
