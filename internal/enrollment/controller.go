// Package enrollment drives the enroll button of one course card or
// detail page: status probe, confirmation, optimistic seat counter.
package enrollment

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"coursion/internal/api"
	"coursion/internal/domain"
	"coursion/internal/httpx"
	"coursion/internal/ui"
)

type Status int

const (
	Unknown Status = iota
	NotEnrolled
	Enrolled
)

func (s Status) String() string {
	switch s {
	case NotEnrolled:
		return "not-enrolled"
	case Enrolled:
		return "enrolled"
	}
	return "unknown"
}

// Outcome says what an Enroll/Unenroll call did.
type Outcome int

const (
	Done Outcome = iota
	Declined
	Ignored
	LoginRequired
	SeatsFull
	Failed
)

func (o Outcome) String() string {
	return [...]string{"done", "declined", "ignored", "login-required", "seats-full", "failed"}[o]
}

type Backend interface {
	EnrollmentStatus(ctx context.Context, courseID, email string) (api.EnrollmentStatus, error)
	Enroll(ctx context.Context, courseID, email string) error
	Unenroll(ctx context.Context, courseID, email string) error
}

// CurrentUser is the read-only view of the session. "" means signed out.
type CurrentUser interface {
	Email() string
}

// Seats is the local, advisory capacity snapshot.
type Seats struct {
	Total    int
	Students int
}

func SeatsOf(c domain.Course) Seats {
	return Seats{Total: c.TotalSeats, Students: c.Students}
}

func (s Seats) Left() int { return s.Total - s.Students }
func (s Seats) Full() bool { return s.Left() <= 0 }

type Deps struct {
	Backend   Backend
	Session   CurrentUser
	Confirmer ui.Confirmer
	Notifier  ui.Notifier // optional
	Logger    zerolog.Logger
}

var (
	EnrollIntent = ui.Intent{
		Title:   "Enroll in this course?",
		Text:    "Your seat will be reserved immediately.",
		Confirm: "Yes, enroll me!",
		Cancel:  "Cancel",
	}
	UnenrollIntent = ui.Intent{
		Title:   "Leave this course?",
		Text:    "Your seat will be released.",
		Confirm: "Yes, unenroll",
		Cancel:  "Cancel",
	}
)

type Controller struct {
	courseID string
	deps     Deps

	mu       sync.Mutex
	status   Status
	seats    Seats
	busy     bool
	busyOp   string
	probeErr error
	cancel   context.CancelFunc
	gen      int
}

func New(courseID string, seats Seats, deps Deps) *Controller {
	if deps.Confirmer == nil {
		deps.Confirmer = ui.AutoConfirm(ui.Decline)
	}
	return &Controller{courseID: courseID, seats: seats, deps: deps}
}

func (c *Controller) email() string {
	if c.deps.Session == nil {
		return ""
	}
	return c.deps.Session.Email()
}

func (c *Controller) notify(f func(ui.Notifier)) {
	if c.deps.Notifier != nil {
		f(c.deps.Notifier)
	}
}

// OnMount probes the enrollment status when a session is present. A
// cancelled probe leaves the state as it was.
func (c *Controller) OnMount(ctx context.Context) error {
	email := c.email()
	if email == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.mu.Unlock()

	st, err := c.deps.Backend.EnrollmentStatus(ctx, c.courseID, email)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || httpx.IsCancelled(err) {
		return nil
	}
	c.cancel = nil
	if err != nil {
		c.probeErr = err
		c.deps.Logger.Warn().Err(err).Str("course_id", c.courseID).Msg("enrollment probe failed")
		return err
	}
	c.probeErr = nil
	c.apply(st)
	return nil
}

// Refresh is a fresh probe (last probe wins).
func (c *Controller) Refresh(ctx context.Context) error { return c.OnMount(ctx) }

func (c *Controller) OnUnmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

// apply takes a probe result; caller holds mu.
func (c *Controller) apply(st api.EnrollmentStatus) {
	if st.Enrolled {
		c.status = Enrolled
	} else {
		c.status = NotEnrolled
	}
	if st.Students != nil {
		c.seats.Students = *st.Students
	}
}

// Seed sets the state from an existing probe (ProbeAll) without a request.
func (c *Controller) Seed(st api.EnrollmentStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(st)
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) Seats() Seats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seats
}

func (c *Controller) ProbeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.probeErr
}

// Enroll runs the guarded, confirmed enroll action.
func (c *Controller) Enroll(ctx context.Context) (Outcome, error) {
	email := c.email()
	if email == "" {
		c.notify(func(n ui.Notifier) { n.Info("Login required", "Please log in first to enroll in a course.") })
		return LoginRequired, nil
	}

	c.mu.Lock()
	switch {
	case c.busy || c.status != NotEnrolled:
		c.mu.Unlock()
		return Ignored, nil
	case c.seats.Full():
		c.mu.Unlock()
		return SeatsFull, nil
	}
	c.mu.Unlock()

	if ok, err := c.confirm(ctx, EnrollIntent); !ok {
		return Declined, err
	}

	if !c.begin("enroll", NotEnrolled) {
		return Ignored, nil
	}
	err := c.deps.Backend.Enroll(ctx, c.courseID, email)

	c.mu.Lock()
	c.busy, c.busyOp = false, ""
	if err == nil {
		c.status = Enrolled
		c.seats.Students++
	}
	c.mu.Unlock()

	return c.finish(err, "enroll", "Enrolled!", "Welcome aboard, happy learning! 🎉")
}

// Unenroll is reachable only from Enrolled and ignores seat fullness.
func (c *Controller) Unenroll(ctx context.Context) (Outcome, error) {
	email := c.email()
	if email == "" {
		return LoginRequired, nil
	}

	c.mu.Lock()
	if c.busy || c.status != Enrolled {
		c.mu.Unlock()
		return Ignored, nil
	}
	c.mu.Unlock()

	if ok, err := c.confirm(ctx, UnenrollIntent); !ok {
		return Declined, err
	}

	if !c.begin("unenroll", Enrolled) {
		return Ignored, nil
	}
	err := c.deps.Backend.Unenroll(ctx, c.courseID, email)

	c.mu.Lock()
	c.busy, c.busyOp = false, ""
	if err == nil {
		c.status = NotEnrolled
		c.seats.Students--
	}
	c.mu.Unlock()

	return c.finish(err, "unenroll", "Unenrolled", "Your seat has been released.")
}

func (c *Controller) confirm(ctx context.Context, in ui.Intent) (bool, error) {
	d, err := c.deps.Confirmer.Confirm(ctx, in)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false, nil
		}
		return false, err
	}
	return d == ui.Accept, nil
}

// begin re-checks the guard after the confirmation gate and sets busy.
func (c *Controller) begin(op string, want Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.status != want {
		return false
	}
	c.busy, c.busyOp = true, op
	return true
}

func (c *Controller) finish(err error, op, title, text string) (Outcome, error) {
	switch {
	case err == nil:
		c.deps.Logger.Info().Str("course_id", c.courseID).Str("op", op).Msg("enrollment changed")
		c.notify(func(n ui.Notifier) { n.Success(title, text) })
		return Done, nil
	case httpx.IsCancelled(err):
		return Ignored, nil
	}
	c.deps.Logger.Error().Err(err).Str("course_id", c.courseID).Str("op", op).Msg("enrollment change failed")
	c.notify(func(n ui.Notifier) { n.Error("Oops…", httpx.Message(err, "Something went wrong")) })
	return Failed, err
}

// Action is what pressing the button does.
type Action int

const (
	ActionNone Action = iota
	ActionLogin
	ActionEnroll
	ActionUnenroll
)

// Button is the render model of the enroll control.
type Button struct {
	Label    string
	Disabled bool
	Busy     bool
	Badge    string
	Action   Action
}

func (c *Controller) Button() Button {
	signedIn := c.email() != ""

	c.mu.Lock()
	defer c.mu.Unlock()

	b := Button{Badge: Badge(c.seats), Busy: c.busy}
	switch {
	case !signedIn:
		b.Label, b.Action = "Login to Enroll", ActionLogin
	case c.busy && c.busyOp == "unenroll":
		b.Label, b.Disabled = "Unenrolling...", true
	case c.busy:
		b.Label, b.Disabled = "Enrolling...", true
	case c.status == Enrolled:
		b.Label, b.Action = "Enrolled", ActionUnenroll
	case c.status == NotEnrolled && c.seats.Full():
		b.Label, b.Disabled = "No seats left", true
	case c.status == NotEnrolled:
		b.Label, b.Action = "Enroll Now", ActionEnroll
	default:
		// probe pending or failed
		b.Label, b.Disabled = "Enroll Now", true
	}
	return b
}

// Badge is "N left" or "Full".
func Badge(s Seats) string {
	if s.Full() {
		return "Full"
	}
	return strconv.Itoa(s.Left()) + " left"
}
