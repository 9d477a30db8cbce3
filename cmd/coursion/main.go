package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

const usage = `usage: coursion <command> [flags] [args]

browse:
  home                         latest and popular courses
  courses                      list courses (-search, -difficulty, -sort)
  show <course-id>             course details and reviews

learn:
  enroll <course-id>           reserve a seat
  unenroll <course-id>         release a seat
  review <course-id>           post a review (-rating, -comment)
  my-enrollments               courses you are enrolled in (-remove <enrollment-id>)

teach:
  add-course                   create a course
  edit-course <course-id>      update a course you created
  my-courses                   courses you created (-delete <course-id>)

account:
  login                        sign in (-email/-password or -provider google|github)
  register                     create an account
  reset                        send a password reset email
  logout                       drop the local session
  whoami                       show the signed-in user
`

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"home":           cmdHome,
	"courses":        cmdCourses,
	"search":         cmdCourses,
	"show":           cmdShow,
	"enroll":         cmdEnroll,
	"unenroll":       cmdUnenroll,
	"review":         cmdReview,
	"my-enrollments": cmdMyEnrollments,
	"add-course":     cmdAddCourse,
	"edit-course":    cmdEditCourse,
	"my-courses":     cmdMyCourses,
	"login":          cmdLogin,
	"register":       cmdRegister,
	"reset":          cmdReset,
	"logout":         cmdLogout,
	"whoami":         cmdWhoami,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 ok, 1 command failure, 2 usage error.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stdout, usage)
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	a, err := newApp(ctx, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "coursion: %v\n", err)
		return 1
	}
	if err := cmd(ctx, a, args[1:]); err != nil {
		if ue, ok := err.(usageError); ok {
			fmt.Fprintf(stderr, "coursion %s: %s\n", args[0], string(ue))
			return 2
		}
		a.log.Debug().Err(err).Str("command", args[0]).Msg("command failed")
		fmt.Fprintf(stderr, "coursion %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return string(e) }

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
