// Package authoring is the create/edit course form: local field state,
// curriculum sections, validation and submit.
package authoring

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"coursion/internal/domain"
	"coursion/internal/httpx"
	"coursion/internal/session"
	"coursion/internal/ui"
	"coursion/internal/validation"
)

type Mode int

const (
	Create Mode = iota
	Edit
)

const (
	RequiredMessage = "Title and description are required"

	createdMessage      = "Course created successfully"
	createFailedMessage = "Failed to create course"
	updatedMessage      = "Course updated successfully"
	updateFailedMessage = "Failed to update course"
	loadFailedMessage   = "Failed to load course data"
)

var (
	ErrLoginRequired = errors.New("authoring: sign in to author courses")
	ErrInProgress    = errors.New("authoring: submit already in progress")
	ErrNotLoaded     = errors.New("authoring: course not loaded")
)

type Backend interface {
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	CreateCourse(ctx context.Context, c domain.Course) (domain.Course, error)
	UpdateCourse(ctx context.Context, id string, c domain.Course) error
}

type Viewer interface {
	Current() *session.Identity
}

type Deps struct {
	Backend   Backend
	Session   Viewer
	Navigator ui.Navigator
	Notifier  ui.Notifier
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Fields are the scalar inputs. Curriculum is edited through the section
// methods so the one-entry minimum holds.
type Fields struct {
	Title           string `json:"title" validate:"notblank"`
	Category        string `json:"category"`
	Difficulty      string `json:"difficulty" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Description     string `json:"description" validate:"notblank"`
	Duration        string `json:"duration"`
	Image           string `json:"image"`
	Instructor      string `json:"instructor"`
	InstructorImage string `json:"instructorImage"`
	TotalSeats      int    `json:"totalSeats" validate:"gte=0"`
}

type Form struct {
	Fields Fields

	mode       Mode
	courseID   string
	base       domain.Course
	loaded     bool
	deps       Deps
	mu         sync.Mutex
	sections   []string
	submitting bool
}

func defaults() Fields {
	return Fields{Category: domain.Categories[0], Difficulty: string(domain.Beginner)}
}

// NewCreate starts an empty form with the instructor taken from the session.
func NewCreate(deps Deps) *Form {
	f := &Form{mode: Create, deps: deps, Fields: defaults(), sections: []string{""}, loaded: true}
	if id := f.viewer(); id != nil {
		f.Fields.Instructor = id.DisplayName
		f.Fields.InstructorImage = id.PhotoURL
	}
	return f
}

// NewEdit needs LoadForEdit before Submit.
func NewEdit(courseID string, deps Deps) *Form {
	return &Form{mode: Edit, courseID: courseID, deps: deps, Fields: defaults(), sections: []string{""}}
}

func (f *Form) Mode() Mode { return f.mode }

func (f *Form) viewer() *session.Identity {
	if f.deps.Session == nil {
		return nil
	}
	return f.deps.Session.Current()
}

func (f *Form) now() time.Time {
	if f.deps.Now != nil {
		return f.deps.Now()
	}
	return time.Now()
}

// LoadForEdit fills the form from the stored course, applying defaults for
// missing category, difficulty, curriculum and instructor. On failure the
// user is sent back to their course list.
func (f *Form) LoadForEdit(ctx context.Context) error {
	c, err := f.deps.Backend.GetCourse(ctx, f.courseID)
	if err != nil {
		if httpx.IsCancelled(err) {
			return nil
		}
		f.deps.Logger.Error().Err(err).Str("course_id", f.courseID).Msg("load course for edit failed")
		f.notify(func(n ui.Notifier) { n.Error("Error", loadFailedMessage) })
		f.navigate("/my-courses")
		return err
	}

	fl := Fields{
		Title:           c.Title,
		Category:        c.Category,
		Difficulty:      string(c.Difficulty),
		Description:     c.Description,
		Duration:        c.Duration,
		Image:           c.Image,
		Instructor:      c.Instructor,
		InstructorImage: c.InstructorImage,
		TotalSeats:      c.TotalSeats,
	}
	if fl.Category == "" {
		fl.Category = domain.Categories[0]
	}
	if fl.Difficulty == "" {
		fl.Difficulty = string(domain.Beginner)
	}
	if v := f.viewer(); v != nil {
		if fl.Instructor == "" {
			fl.Instructor = v.DisplayName
		}
		if fl.InstructorImage == "" {
			fl.InstructorImage = v.PhotoURL
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fields = fl
	f.base = c
	f.sections = append([]string(nil), c.Curriculum...)
	if len(f.sections) == 0 {
		f.sections = []string{""}
	}
	f.loaded = true
	return nil
}

func (f *Form) Sections() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sections...)
}

func (f *Form) AddSection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = append(f.sections, "")
}

// RemoveSection drops entry i. It is a no-op when only one entry is left
// or i is out of range.
func (f *Form) RemoveSection(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sections) <= 1 || i < 0 || i >= len(f.sections) {
		return false
	}
	f.sections = append(f.sections[:i], f.sections[i+1:]...)
	return true
}

func (f *Form) SetSection(i int, v string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.sections) {
		return false
	}
	f.sections[i] = v
	return true
}

// Validate returns nil or *validation.Errors.
func (f *Form) Validate() error {
	return validation.Struct(f.Fields)
}

func nonBlank(sections []string) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Submit validates, stamps metadata and creates or updates the course.
// Validation failures never reach the backend.
func (f *Form) Submit(ctx context.Context) (domain.Course, error) {
	if err := f.Validate(); err != nil {
		return domain.Course{}, err
	}
	viewer := f.viewer()
	if viewer == nil {
		return domain.Course{}, ErrLoginRequired
	}

	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return domain.Course{}, ErrInProgress
	}
	if !f.loaded {
		f.mu.Unlock()
		return domain.Course{}, ErrNotLoaded
	}
	f.submitting = true
	sections := nonBlank(f.sections)
	base := f.base
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	if f.mode == Edit {
		return f.update(ctx, base, sections)
	}
	return f.create(ctx, viewer, sections)
}

func (f *Form) apply(c *domain.Course) {
	c.Title = strings.TrimSpace(f.Fields.Title)
	c.Category = f.Fields.Category
	c.Difficulty = domain.Difficulty(f.Fields.Difficulty)
	c.Description = strings.TrimSpace(f.Fields.Description)
	c.Duration = f.Fields.Duration
	c.Image = f.Fields.Image
	c.Instructor = f.Fields.Instructor
	c.InstructorImage = f.Fields.InstructorImage
	c.TotalSeats = f.Fields.TotalSeats
}

func (f *Form) create(ctx context.Context, viewer *session.Identity, sections []string) (domain.Course, error) {
	now := f.now()
	c := domain.Course{
		DateAdded:  domain.Date{Time: now},
		Rating:     0,
		Students:   0,
		Reviews:    []domain.Review{},
		Curriculum: sections,
		CreatedBy: &domain.Author{
			Email:     viewer.Email,
			Name:      viewer.DisplayName,
			Image:     viewer.PhotoURL,
			Timestamp: now.UTC().Format(time.RFC3339),
		},
	}
	f.apply(&c)
	if c.Instructor == "" {
		c.Instructor = viewer.DisplayName
	}
	if c.InstructorImage == "" {
		c.InstructorImage = viewer.PhotoURL
	}

	created, err := f.deps.Backend.CreateCourse(ctx, c)
	if err != nil {
		return domain.Course{}, f.failed(err, createFailedMessage)
	}
	f.deps.Logger.Info().Str("course_id", created.ID).Msg("course created")
	f.notify(func(n ui.Notifier) { n.Success("Success", createdMessage) })
	f.navigate("/courses/" + created.ID)
	return created, nil
}

func (f *Form) update(ctx context.Context, base domain.Course, sections []string) (domain.Course, error) {
	c := base
	f.apply(&c)
	if len(sections) == 0 {
		sections = []string{""}
	}
	c.Curriculum = sections
	if c.Reviews == nil {
		c.Reviews = []domain.Review{}
	}
	c.LastUpdated = f.now().UTC().Format(time.RFC3339)

	if err := f.deps.Backend.UpdateCourse(ctx, f.courseID, c); err != nil {
		return domain.Course{}, f.failed(err, updateFailedMessage)
	}
	c.ID = f.courseID
	f.mu.Lock()
	f.base = c
	f.mu.Unlock()

	f.deps.Logger.Info().Str("course_id", f.courseID).Msg("course updated")
	f.notify(func(n ui.Notifier) { n.Success("Success", updatedMessage) })
	f.navigate("/courses/" + f.courseID)
	return c, nil
}

func (f *Form) failed(err error, fallback string) error {
	if httpx.IsCancelled(err) {
		return err
	}
	f.deps.Logger.Error().Err(err).Str("course_id", f.courseID).Msg("course save failed")
	f.notify(func(n ui.Notifier) { n.Error("Error", httpx.Message(err, fallback)) })
	return err
}

func (f *Form) notify(fn func(ui.Notifier)) {
	if f.deps.Notifier != nil {
		fn(f.deps.Notifier)
	}
}

func (f *Form) navigate(path string) {
	if f.deps.Navigator != nil {
		f.deps.Navigator.Navigate(path)
	}
}
