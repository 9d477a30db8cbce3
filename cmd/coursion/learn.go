package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"coursion/internal/coursedetail"
	"coursion/internal/devutil"
	"coursion/internal/enrollment"
	"coursion/internal/library"
	"coursion/internal/validation"
)

var errLoginRequired = errors.New("login required")

func cmdEnroll(ctx context.Context, a *app, args []string) error {
	return a.runEnrollment(ctx, "enroll", args, (*enrollment.Controller).Enroll)
}

func cmdUnenroll(ctx context.Context, a *app, args []string) error {
	return a.runEnrollment(ctx, "unenroll", args, (*enrollment.Controller).Unenroll)
}

func (a *app) runEnrollment(ctx context.Context, name string, args []string,
	action func(*enrollment.Controller, context.Context) (enrollment.Outcome, error)) error {
	fs := newFlags(name, a.out)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := oneArg(fs, "course id")
	if err != nil {
		return err
	}

	course, err := a.api.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	ctrl := enrollment.New(id, enrollment.SeatsOf(course), enrollment.Deps{
		Backend:   a.api,
		Session:   a.store,
		Confirmer: a.confirmer(*yes),
		Notifier:  a.term,
		Logger:    a.log,
	})
	defer ctrl.OnUnmount()
	if err := ctrl.OnMount(ctx); err != nil {
		return fmt.Errorf("enrollment status: %w", err)
	}

	outcome, err := action(ctrl, ctx)
	switch outcome {
	case enrollment.LoginRequired:
		return errLoginRequired
	case enrollment.SeatsFull:
		return errors.New("no seats left")
	case enrollment.Failed:
		return err
	case enrollment.Declined:
		a.printf("Cancelled.\n")
	case enrollment.Ignored:
		a.printf("Nothing to do.\n")
	}
	if err != nil {
		return err
	}
	b := ctrl.Button()
	a.printf("[%s] %s\n", b.Label, b.Badge)
	return nil
}

func cmdReview(ctx context.Context, a *app, args []string) error {
	fs := newFlags("review", a.out)
	rating := fs.Int("rating", 0, "1 to 5 stars")
	comment := fs.String("comment", "", "review text")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := oneArg(fs, "course id")
	if err != nil {
		return err
	}
	if a.store.Current() == nil {
		return errLoginRequired
	}

	page := coursedetail.NewPage(id, coursedetail.Deps{Backend: a.api, Session: a.store, Notifier: a.term, Logger: a.log})
	defer page.OnUnmount()
	if err := page.OnMount(ctx); err != nil {
		return fmt.Errorf("%s: %w", coursedetail.LoadFailedMessage, err)
	}

	_, err = page.SubmitReview(ctx, coursedetail.ReviewDraft{Comment: *comment, Rating: *rating})
	var verrs *validation.Errors
	switch {
	case errors.Is(err, coursedetail.ErrNotEnrolled):
		return errors.New(coursedetail.ReviewGateMessage)
	case errors.As(err, &verrs):
		for _, f := range verrs.Fields {
			a.printf("  %s\n", f.Error)
		}
		return usageError("invalid review")
	}
	return err
}

func (a *app) libraryDeps(yes bool) library.Deps {
	return library.Deps{
		Backend:   a.api,
		Session:   a.store,
		Confirmer: a.confirmer(yes),
		Notifier:  a.term,
		Logger:    a.log,
	}
}

func cmdMyEnrollments(ctx context.Context, a *app, args []string) error {
	fs := newFlags("my-enrollments", a.out)
	remove := fs.String("remove", "", "enrollment id to remove")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	fields := fs.String("fields", "", "comma separated JSON fields to print instead of the table")
	if err := parse(fs, args); err != nil {
		return err
	}

	l := library.NewLearning(a.libraryDeps(*yes))
	defer l.OnUnmount()
	if err := l.OnMount(ctx); err != nil {
		return fmt.Errorf("%s: %w", l.Message(), err)
	}
	if l.State() == library.LoginRequired {
		return errLoginRequired
	}
	if *remove != "" {
		if _, err := l.Remove(ctx, *remove); err != nil {
			return err
		}
	}

	items := l.Items()
	if keys := devutil.ParseFields(*fields); len(keys) > 0 {
		return emitEach(a, items, keys)
	}
	if len(items) == 0 {
		a.printf("You haven't enrolled in any courses yet\n")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENROLLMENT\tCOURSE\tTITLE\tENROLLED AT")
	for _, e := range items {
		title := ""
		if e.Course != nil {
			title = e.Course.Title
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.CourseID, title, e.EnrolledAt)
	}
	return tw.Flush()
}
