// Package library holds the signed-in user's own lists: courses they
// authored and courses they are enrolled in.
package library

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"coursion/internal/domain"
	"coursion/internal/httpx"
	"coursion/internal/session"
	"coursion/internal/ui"
)

type State int

const (
	LoginRequired State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case LoginRequired:
		return "login-required"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Outcome int

const (
	Declined Outcome = iota
	Removed
	Failure
	Ignored
)

type Backend interface {
	MyCourses(ctx context.Context, email string) ([]domain.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	MyEnrollments(ctx context.Context, email string) ([]domain.Enrollment, error)
	RemoveEnrollment(ctx context.Context, enrollmentID string) error
}

type Viewer interface {
	Current() *session.Identity
}

type Deps struct {
	Backend   Backend
	Session   Viewer
	Confirmer ui.Confirmer
	Notifier  ui.Notifier
	Logger    zerolog.Logger
}

// shelf is the load/remove lifecycle shared by both lists.
type shelf[T any] struct {
	deps     Deps
	key      func(T) string
	fetch    func(ctx context.Context, email string) ([]T, error)
	drop     func(ctx context.Context, id string) error
	failText string

	mu     sync.Mutex
	state  State
	items  []T
	err    error
	gen    int
	owner  int // gen of the load that last set Loading
	cancel context.CancelFunc
}

func (s *shelf[T]) email() string {
	if s.deps.Session == nil {
		return ""
	}
	if id := s.deps.Session.Current(); id != nil {
		return id.Email
	}
	return ""
}

func (s *shelf[T]) OnMount(ctx context.Context) error { return s.load(ctx) }

func (s *shelf[T]) Reload(ctx context.Context) error { return s.load(ctx) }

func (s *shelf[T]) OnUnmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *shelf[T]) load(parent context.Context) error {
	email := s.email()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	if email == "" {
		s.owner = s.gen
		s.state = LoginRequired
		s.items = nil
		s.err = nil
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	prev := s.state
	s.owner = gen
	s.state = Loading
	s.mu.Unlock()
	defer cancel()

	items, err := s.fetch(ctx, email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		if s.owner == gen {
			s.state = prev
		}
		return nil
	}
	s.cancel = nil
	if httpx.IsCancelled(err) {
		s.state = prev
		return nil
	}
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg(s.failText)
		s.state = Failed
		s.err = err
		return err
	}
	s.items = items
	s.err = nil
	s.state = Ready
	return nil
}

func (s *shelf[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *shelf[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Message is the banner text for the Failed state.
func (s *shelf[T]) Message() string {
	if s.State() != Failed {
		return ""
	}
	return s.failText
}

func (s *shelf[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

func (s *shelf[T]) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if s.key(it) == id {
			return true
		}
	}
	return false
}

// remove asks first, then deletes and drops the row locally. The list is
// not re-fetched.
func (s *shelf[T]) remove(ctx context.Context, id string, in ui.Intent, done, failed ui.Note) (Outcome, error) {
	if !s.has(id) {
		return Ignored, nil
	}
	confirmer := s.deps.Confirmer
	if confirmer == nil {
		confirmer = ui.AutoConfirm(ui.Decline)
	}
	d, err := confirmer.Confirm(ctx, in)
	if err != nil || d != ui.Accept {
		return Declined, nil
	}

	if err := s.drop(ctx, id); err != nil {
		if httpx.IsCancelled(err) {
			return Ignored, nil
		}
		s.deps.Logger.Error().Err(err).Str("id", id).Msg("remove failed")
		s.notify(func(n ui.Notifier) { n.Error(failed.Title, failed.Text) })
		return Failure, err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, it := range s.items {
		if s.key(it) != id {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.mu.Unlock()

	s.notify(func(n ui.Notifier) { n.Success(done.Title, done.Text) })
	return Removed, nil
}

func (s *shelf[T]) notify(fn func(ui.Notifier)) {
	if s.deps.Notifier != nil {
		fn(s.deps.Notifier)
	}
}
