package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursion/internal/devutil"
	"coursion/internal/session"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	provider := fs.String("provider", "", "google or github")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		id  *session.Identity
		err error
	)
	switch kind := session.ProviderKind(strings.ToLower(strings.TrimSpace(*provider))); kind {
	case "":
		if *email == "" {
			return usageError("-email or -provider is required")
		}
		pw, perr := a.secret(ctx, *password, "Password: ")
		if perr != nil {
			return perr
		}
		id, err = a.store.SignIn(ctx, *email, pw)
	case session.Google, session.GitHub:
		id, err = a.store.SignInWithProvider(ctx, kind)
	default:
		return usageError(fmt.Sprintf("unknown provider %q", *provider))
	}
	if err != nil {
		return errors.New(session.UserMessage(err, session.FlowSignIn))
	}
	a.printf("Signed in as %s\n", id.Email)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	confirm := fs.String("confirm", "", "password again (prompted when empty)")
	name := fs.String("name", "", "display name")
	photo := fs.String("photo", "", "avatar URL")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		return usageError("-email is required")
	}

	pw, err := a.secret(ctx, *password, "Password: ")
	if err != nil {
		return err
	}
	again, err := a.secret(ctx, *confirm, "Confirm password: ")
	if err != nil {
		return err
	}
	if problems := session.ValidatePassword(pw, again, *email); len(problems) > 0 {
		for _, p := range problems {
			a.printf("  %s\n", p)
		}
		return usageError("password rejected")
	}

	id, err := a.store.CreateAccount(ctx, *email, pw, session.Profile{DisplayName: *name, PhotoURL: *photo})
	if id == nil {
		return errors.New(session.UserMessage(err, session.FlowRegister))
	}
	if err != nil {
		a.log.Warn().Err(err).Msg("profile update after sign up failed")
		a.term.Info("Profile not saved", "Your account was created but the name and photo could not be saved.")
	}
	a.printf("Welcome, %s\n", firstNonEmpty(id.DisplayName, id.Email))
	return nil
}

func cmdReset(ctx context.Context, a *app, args []string) error {
	fs := newFlags("reset", a.out)
	email := fs.String("email", "", "account email")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		return usageError("-email is required")
	}
	if err := a.store.ResetPassword(ctx, *email); err != nil {
		return errors.New(session.UserMessage(err, session.FlowReset))
	}
	a.term.Success("Email sent", "Check your inbox for the reset link.")
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlags("logout", a.out), args); err != nil {
		return err
	}
	if err := a.store.SignOut(ctx); err != nil {
		return err
	}
	a.printf("Signed out\n")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	fs := newFlags("whoami", a.out)
	fields := fs.String("fields", "email,displayName,photoURL", "comma separated JSON fields")
	if err := parse(fs, args); err != nil {
		return err
	}
	id := a.store.Current()
	if id == nil {
		return errLoginRequired
	}
	return a.emit(id, devutil.ParseFields(*fields))
}

// secret returns given, or prompts for it.
func (a *app) secret(ctx context.Context, given, prompt string) (string, error) {
	if given != "" {
		return given, nil
	}
	a.printf("%s", prompt)
	line, err := a.term.ReadLine(ctx)
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
