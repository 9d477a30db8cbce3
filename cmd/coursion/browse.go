package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"coursion/internal/catalog"
	"coursion/internal/coursedetail"
	"coursion/internal/devutil"
	"coursion/internal/domain"
	"coursion/internal/enrollment"
	"coursion/internal/ui"
)

func cmdCourses(ctx context.Context, a *app, args []string) error {
	fs := newFlags("courses", a.out)
	search := fs.String("search", "", "match title or instructor")
	difficulty := fs.String("difficulty", catalog.DifficultyAll, "All, Beginner, Intermediate or Advanced")
	sortBy := fs.String("sort", string(catalog.SortNewest), "Newest, Enrollment or Rating")
	fields := fs.String("fields", "", "comma separated JSON fields to print instead of the table")
	if err := parse(fs, args); err != nil {
		return err
	}

	q, err := buildQuery(*search, *difficulty, *sortBy)
	if err != nil {
		return err
	}

	list := catalog.NewList(a.api, a.log)
	defer list.OnUnmount()
	if err := list.OnMount(ctx); err != nil {
		return fmt.Errorf("%s: %w", catalog.LoadFailedMessage, err)
	}
	list.SetQuery(q)
	view := list.View()

	if keys := devutil.ParseFields(*fields); len(keys) > 0 {
		courses := make([]domain.Course, 0, len(view.Rows))
		for _, r := range view.Rows {
			courses = append(courses, r.Course)
		}
		return emitEach(a, courses, keys)
	}

	a.printf("%s · %s courses · %s learners\n\n", view.Banner,
		ui.FormatCount(view.Stats.Courses), ui.FormatCount(view.Stats.Learners))
	if len(view.Rows) == 0 {
		a.printf("No courses match.\n")
		return nil
	}
	buttons := a.cardButtons(ctx, view.Rows)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tTITLE\tDIFFICULTY\tINSTRUCTOR\tSEATS\tRATING\tENROLLMENT")
	for i, r := range view.Rows {
		c := r.Course
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Rank, c.ID, c.Title, c.Difficulty, c.Instructor,
			buttons[i].Badge, ui.Stars(c.Rating), buttons[i].Label)
	}
	return tw.Flush()
}

// cardButtons probes every row for the signed-in user and returns one
// enroll button per row. Rows whose probe failed keep the pending button.
func (a *app) cardButtons(ctx context.Context, rows []catalog.Row) []enrollment.Button {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Course.ID
	}
	email := ""
	if id := a.store.Current(); id != nil {
		email = id.Email
	}
	probes := enrollment.ProbeAll(ctx, a.api, email, ids, 4)

	out := make([]enrollment.Button, len(rows))
	for i, r := range rows {
		ctrl := enrollment.New(r.Course.ID, enrollment.SeatsOf(r.Course), enrollment.Deps{
			Backend: a.api,
			Session: a.store,
			Logger:  a.log,
		})
		switch {
		case email == "":
		case probes[i].Err != nil:
			a.log.Warn().Err(probes[i].Err).Str("course_id", r.Course.ID).Msg("enrollment probe failed")
		default:
			ctrl.Seed(probes[i].Status)
		}
		out[i] = ctrl.Button()
	}
	return out
}

func buildQuery(search, difficulty, sortBy string) (catalog.Query, error) {
	q := catalog.DefaultQuery()
	q.Search = search

	key, ok := catalog.ParseSort(sortBy)
	if !ok {
		return q, usageError(fmt.Sprintf("unknown sort %q", sortBy))
	}
	q.Sort = key

	if d := strings.TrimSpace(difficulty); d != "" && !strings.EqualFold(d, catalog.DifficultyAll) {
		parsed, ok := domain.ParseDifficulty(d)
		if !ok {
			return q, usageError(fmt.Sprintf("unknown difficulty %q", difficulty))
		}
		q.Difficulty = string(parsed)
	}
	return q, nil
}

func cmdHome(ctx context.Context, a *app, args []string) error {
	fs := newFlags("home", a.out)
	if err := parse(fs, args); err != nil {
		return err
	}

	home := catalog.LoadHome(ctx, a.api)
	a.printSection("Latest courses", home.Latest, home.LatestErr)
	a.printSection("Popular courses", home.Popular, home.PopularErr)
	if home.LatestErr != nil && home.PopularErr != nil {
		return errors.Join(home.LatestErr, home.PopularErr)
	}
	return nil
}

func (a *app) printSection(title string, courses []domain.Course, err error) {
	a.printf("%s\n", title)
	switch {
	case err != nil:
		a.printf("  Failed to load %s\n\n", strings.ToLower(title))
		return
	case len(courses) == 0:
		a.printf("  Nothing here yet\n\n")
		return
	}
	for _, c := range courses {
		a.printf("  %-24s %s  %s students\n", c.ID, c.Title, ui.FormatCount(c.Students))
	}
	a.printf("\n")
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	fs := newFlags("show", a.out)
	fields := fs.String("fields", "", "comma separated JSON fields to print instead of the page")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := oneArg(fs, "course id")
	if err != nil {
		return err
	}

	page := coursedetail.NewPage(id, coursedetail.Deps{Backend: a.api, Session: a.store, Notifier: a.term, Logger: a.log})
	defer page.OnUnmount()
	if err := page.OnMount(ctx); err != nil {
		return fmt.Errorf("%s: %w", coursedetail.LoadFailedMessage, err)
	}
	c, ok := page.Course()
	if !ok {
		return errors.New(coursedetail.LoadFailedMessage)
	}
	if keys := devutil.ParseFields(*fields); len(keys) > 0 {
		return a.emit(c, keys)
	}

	a.printf("%s\n", c.Title)
	a.printf("%s · %s · %s · by %s\n", c.Category, c.Difficulty, c.Duration, c.Instructor)
	a.printf("%s (%d reviews) · %s\n\n", ui.Stars(page.AverageRating()), page.ReviewCount(),
		enrollment.Badge(enrollment.SeatsOf(c)))
	if c.Description != "" {
		a.printf("%s\n\n", c.Description)
	}
	if len(c.Curriculum) > 0 {
		a.printf("Curriculum\n")
		for i, s := range c.Curriculum {
			if strings.TrimSpace(s) != "" {
				a.printf("  %d. %s\n", i+1, s)
			}
		}
		a.printf("\n")
	}

	a.printf("Reviews\n")
	if len(c.Reviews) == 0 {
		a.printf("  No reviews yet\n")
	}
	for _, r := range c.Reviews {
		a.printf("  %s %s: %s\n", ui.Stars(float64(r.Rating)), r.Name, r.Comment)
	}
	if msg := page.GateMessage(); msg != "" {
		a.printf("\n%s\n", msg)
	}
	return nil
}
