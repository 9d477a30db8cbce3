package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"

	"coursion/internal/authoring"
	"coursion/internal/devutil"
	"coursion/internal/enrollment"
	"coursion/internal/library"
	"coursion/internal/validation"
)

// courseFlags are shared by add-course and edit-course. On edit only the
// flags actually passed override the loaded course.
type courseFlags struct {
	title, category, difficulty, description string
	duration, image, instructorImage         string
	seats                                    int
	sections                                 stringList
}

func (cf *courseFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&cf.title, "title", "", "course title")
	fs.StringVar(&cf.category, "category", "", "Design, Development, Marketing or Business")
	fs.StringVar(&cf.difficulty, "difficulty", "", "Beginner, Intermediate or Advanced")
	fs.StringVar(&cf.description, "description", "", "course description")
	fs.StringVar(&cf.duration, "duration", "", "e.g. \"6 weeks\"")
	fs.StringVar(&cf.image, "image", "", "cover image URL")
	fs.StringVar(&cf.instructorImage, "instructor-image", "", "instructor avatar URL")
	fs.IntVar(&cf.seats, "seats", 0, "total seats")
	fs.Var(&cf.sections, "section", "curriculum section (repeatable)")
}

func (cf *courseFlags) apply(fs *flag.FlagSet, f *authoring.Form) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "title":
			f.Fields.Title = cf.title
		case "category":
			f.Fields.Category = cf.category
		case "difficulty":
			f.Fields.Difficulty = cf.difficulty
		case "description":
			f.Fields.Description = cf.description
		case "duration":
			f.Fields.Duration = cf.duration
		case "image":
			f.Fields.Image = cf.image
		case "instructor-image":
			f.Fields.InstructorImage = cf.instructorImage
		case "seats":
			f.Fields.TotalSeats = cf.seats
		}
	})
	if len(cf.sections) == 0 {
		return
	}
	for len(f.Sections()) > 1 {
		f.RemoveSection(len(f.Sections()) - 1)
	}
	for i, s := range cf.sections {
		if i > 0 {
			f.AddSection()
		}
		f.SetSection(i, s)
	}
}

func (a *app) authoringDeps() authoring.Deps {
	return authoring.Deps{
		Backend:   a.api,
		Session:   a.store,
		Navigator: a.term,
		Notifier:  a.term,
		Logger:    a.log,
	}
}

func cmdAddCourse(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add-course", a.out)
	var cf courseFlags
	cf.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if a.store.Current() == nil {
		return errLoginRequired
	}

	f := authoring.NewCreate(a.authoringDeps())
	cf.apply(fs, f)
	return a.submit(ctx, f)
}

func cmdEditCourse(ctx context.Context, a *app, args []string) error {
	fs := newFlags("edit-course", a.out)
	var cf courseFlags
	cf.register(fs)
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

	f := authoring.NewEdit(id, a.authoringDeps())
	if err := f.LoadForEdit(ctx); err != nil {
		return err
	}
	cf.apply(fs, f)
	return a.submit(ctx, f)
}

func (a *app) submit(ctx context.Context, f *authoring.Form) error {
	c, err := f.Submit(ctx)
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		a.printf("%s\n", authoring.RequiredMessage)
		for _, fe := range verrs.Fields {
			a.printf("  %s\n", fe.Error)
		}
		return usageError("invalid course")
	}
	if err != nil {
		return err
	}
	a.printf("%s\n", c.ID)
	return nil
}

func cmdMyCourses(ctx context.Context, a *app, args []string) error {
	fs := newFlags("my-courses", a.out)
	del := fs.String("delete", "", "course id to delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	fields := fs.String("fields", "", "comma separated JSON fields to print instead of the table")
	if err := parse(fs, args); err != nil {
		return err
	}

	o := library.NewOwned(a.libraryDeps(*yes))
	defer o.OnUnmount()
	if err := o.OnMount(ctx); err != nil {
		return fmt.Errorf("%s: %w", o.Message(), err)
	}
	if o.State() == library.LoginRequired {
		return errLoginRequired
	}
	if *del != "" {
		if _, err := o.Delete(ctx, *del); err != nil {
			return err
		}
	}

	items := o.Items()
	if keys := devutil.ParseFields(*fields); len(keys) > 0 {
		return emitEach(a, items, keys)
	}
	if len(items) == 0 {
		a.printf("You haven't created any courses yet\n")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTUDENTS\tSEATS")
	for _, c := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Title, c.Students, enrollment.Badge(enrollment.SeatsOf(c)))
	}
	return tw.Flush()
}
