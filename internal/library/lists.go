package library

import (
	"context"

	"coursion/internal/domain"
	"coursion/internal/ui"
)

var (
	DeleteIntent = ui.Intent{
		Title:   "Are you sure?",
		Text:    "This course will be permanently deleted!",
		Confirm: "Yes, delete it!",
		Cancel:  "Cancel",
	}
	RemoveIntent = ui.Intent{
		Title:   "Remove this enrollment?",
		Text:    "You will lose access to the course materials.",
		Confirm: "Yes, remove it!",
		Cancel:  "Cancel",
	}
)

// Owned is the list of courses created by the signed-in user.
type Owned struct {
	shelf[domain.Course]
}

func NewOwned(deps Deps) *Owned {
	return &Owned{shelf[domain.Course]{
		deps:     deps,
		key:      func(c domain.Course) string { return c.ID },
		fetch:    deps.Backend.MyCourses,
		drop:     deps.Backend.DeleteCourse,
		failText: "Failed to load your courses",
		state:    Loading,
	}}
}

// Delete removes a course after confirmation.
func (o *Owned) Delete(ctx context.Context, courseID string) (Outcome, error) {
	return o.remove(ctx, courseID, DeleteIntent,
		ui.Note{Title: "Deleted!", Text: "Course has been deleted."},
		ui.Note{Title: "Error!", Text: "Failed to delete course."})
}

// Learning is the list of enrollments of the signed-in user.
type Learning struct {
	shelf[domain.Enrollment]
}

func NewLearning(deps Deps) *Learning {
	return &Learning{shelf[domain.Enrollment]{
		deps:     deps,
		key:      func(e domain.Enrollment) string { return e.ID },
		fetch:    deps.Backend.MyEnrollments,
		drop:     deps.Backend.RemoveEnrollment,
		failText: "Failed to load your enrolled courses",
		state:    Loading,
	}}
}

// Remove drops an enrollment by its own id after confirmation.
func (l *Learning) Remove(ctx context.Context, enrollmentID string) (Outcome, error) {
	return l.remove(ctx, enrollmentID, RemoveIntent,
		ui.Note{Title: "Removed!", Text: "Your enrollment has been deleted."},
		ui.Note{Title: "Error!", Text: "Failed to remove enrollment."})
}
