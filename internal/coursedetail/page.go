// Package coursedetail is the single-course page: the course itself, its
// own enrollment probe, the review list and the review form gate.
package coursedetail

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"coursion/internal/api"
	"coursion/internal/concurrency"
	"coursion/internal/domain"
	"coursion/internal/httpx"
	"coursion/internal/session"
	"coursion/internal/ui"
	"coursion/internal/validation"
)

type State int

const (
	Loading State = iota
	Ready
	Failed
)

const (
	ReviewGateMessage   = "You must enroll in the course to leave a review."
	LoadFailedMessage   = "Failed to load course"
	ReviewFailedMessage = "Failed to submit review"
)

var ErrNotEnrolled = errors.New("coursedetail: reviews require an enrollment")

type Backend interface {
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	EnrollmentStatus(ctx context.Context, courseID, email string) (api.EnrollmentStatus, error)
	AddReview(ctx context.Context, courseID string, r domain.Review) (domain.Review, error)
}

// Viewer is the read side of the session store.
type Viewer interface {
	Current() *session.Identity
}

type Deps struct {
	Backend  Backend
	Session  Viewer
	Notifier ui.Notifier
	Logger   zerolog.Logger
}

// ReviewDraft is the form content before it is posted.
type ReviewDraft struct {
	Comment string `json:"comment" validate:"notblank"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
}

type Page struct {
	deps Deps

	mu       sync.Mutex
	courseID string
	state    State
	course   domain.Course
	err      error
	enrolled bool
	cancel   context.CancelFunc
	gen      int
}

func NewPage(courseID string, deps Deps) *Page {
	return &Page{courseID: courseID, deps: deps}
}

func (p *Page) viewer() *session.Identity {
	if p.deps.Session == nil {
		return nil
	}
	return p.deps.Session.Current()
}

func (p *Page) OnMount(ctx context.Context) error {
	return p.load(ctx)
}

// OnParamsChanged switches the page to another course and reloads.
func (p *Page) OnParamsChanged(ctx context.Context, courseID string) error {
	p.mu.Lock()
	if courseID == p.courseID && p.state == Ready {
		p.mu.Unlock()
		return nil
	}
	p.courseID = courseID
	p.state = Loading
	p.course = domain.Course{}
	p.err = nil
	p.enrolled = false
	p.mu.Unlock()
	return p.load(ctx)
}

func (p *Page) OnUnmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
}

// load fetches the course and, with a session, probes enrollment. The two
// calls run side by side and fail independently.
func (p *Page) load(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	p.cancel = cancel
	id := p.courseID
	p.mu.Unlock()

	var (
		course    domain.Course
		courseErr error
		status    api.EnrollmentStatus
		probeErr  error
		probed    bool
	)
	email := ""
	if v := p.viewer(); v != nil {
		email = v.Email
	}

	tasks := []func(context.Context){
		func(ctx context.Context) { course, courseErr = p.deps.Backend.GetCourse(ctx, id) },
	}
	if email != "" {
		tasks = append(tasks, func(ctx context.Context) {
			status, probeErr = p.deps.Backend.EnrollmentStatus(ctx, id, email)
			probed = true
		})
	}
	concurrency.ForEach(ctx, tasks, concurrency.ParallelOptions{MaxWorkers: len(tasks)},
		func(ctx context.Context, _ int, task func(context.Context)) error {
			task(ctx)
			return nil
		})

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || ctx.Err() != nil || httpx.IsCancelled(courseErr) {
		return nil
	}
	p.cancel = nil

	if probed && probeErr == nil {
		p.enrolled = status.Enrolled
	} else if probeErr != nil && !httpx.IsCancelled(probeErr) {
		p.deps.Logger.Warn().Err(probeErr).Str("course_id", id).Msg("enrollment probe failed")
	}

	if courseErr != nil {
		p.deps.Logger.Error().Err(courseErr).Str("course_id", id).Msg("course load failed")
		p.state = Failed
		p.err = courseErr
		return courseErr
	}
	if status.Students != nil && probed && probeErr == nil {
		course.Students = *status.Students
	}
	p.course = course
	p.err = nil
	p.state = Ready
	return nil
}

func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Page) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Course returns a copy; ok is false until the page is ready.
func (p *Page) Course() (domain.Course, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Ready {
		return domain.Course{}, false
	}
	c := p.course
	c.Reviews = append([]domain.Review(nil), p.course.Reviews...)
	c.Curriculum = append([]string(nil), p.course.Curriculum...)
	return c, true
}

func (p *Page) Enrolled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enrolled
}

// CanReview is true only when the page's own probe said enrolled.
func (p *Page) CanReview() bool {
	if p.viewer() == nil {
		return false
	}
	return p.Enrolled()
}

// GateMessage is shown in place of the review form.
func (p *Page) GateMessage() string {
	if p.CanReview() {
		return ""
	}
	return ReviewGateMessage
}

// ReviewCount and AverageRating describe the in-memory review list.
// AverageRating falls back to the course rating when nothing is reviewed.
func (p *Page) ReviewCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.course.Reviews)
}

func (p *Page) AverageRating() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.course.Reviews) == 0 {
		return p.course.Rating
	}
	sum := 0
	for _, r := range p.course.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(p.course.Reviews))
}

// SubmitReview validates draft, posts it and appends the stored review to
// the local list. Validation failures return *validation.Errors and never
// reach the backend.
func (p *Page) SubmitReview(ctx context.Context, draft ReviewDraft) (domain.Review, error) {
	if !p.CanReview() {
		return domain.Review{}, ErrNotEnrolled
	}
	if err := validation.Struct(draft); err != nil {
		return domain.Review{}, err
	}

	p.mu.Lock()
	id := p.courseID
	p.mu.Unlock()

	review := domain.Review{
		Name:    "Anonymous",
		Comment: strings.TrimSpace(draft.Comment),
		Rating:  draft.Rating,
	}
	if v := p.viewer(); v != nil {
		if v.DisplayName != "" {
			review.Name = v.DisplayName
		}
		review.Image = v.PhotoURL
	}

	stored, err := p.deps.Backend.AddReview(ctx, id, review)
	if err != nil {
		if httpx.IsCancelled(err) {
			return domain.Review{}, err
		}
		p.deps.Logger.Error().Err(err).Str("course_id", id).Msg("review submit failed")
		p.notify(func(n ui.Notifier) { n.Error("Error!", httpx.Message(err, ReviewFailedMessage)) })
		return domain.Review{}, err
	}

	p.mu.Lock()
	if p.courseID == id && p.state == Ready {
		p.course.Reviews = append(p.course.Reviews, stored)
	}
	p.mu.Unlock()

	p.notify(func(n ui.Notifier) { n.Success("Success!", "Your review has been submitted") })
	return stored, nil
}

func (p *Page) notify(f func(ui.Notifier)) {
	if p.deps.Notifier != nil {
		f(p.deps.Notifier)
	}
}
