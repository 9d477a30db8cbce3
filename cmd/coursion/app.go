package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"coursion/internal/api"
	"coursion/internal/config"
	"coursion/internal/devutil"
	"coursion/internal/httpx"
	"coursion/internal/logging"
	"coursion/internal/session"
	"coursion/internal/session/firebase"
	"coursion/internal/ui"
)

type app struct {
	cfg   config.Config
	log   zerolog.Logger
	store *session.Store
	api   *api.Client
	term  *ui.Terminal
	out   io.Writer
}

func newApp(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	cfg := config.Load()
	log := logging.NewWithWriter(stderr, cfg.Env, cfg.LogLevel)
	term := ui.NewTerminal(stdin, stdout)

	// identity toolkit calls authenticate with the API key, not the session
	authHTTP := httpx.New(cfg.FirebaseAuthURL, cfg.RequestTimeout, nil, log.With().Str("client", "firebase").Logger())
	provider := firebase.New(authHTTP, cfg.FirebaseAPIKey, pastedCredential{term: term})

	store := session.New(provider,
		session.WithPersister(session.FilePersister{Path: cfg.SessionFile}),
		session.WithLogger(log.With().Str("component", "session").Logger()),
	)
	if _, err := store.Restore(ctx); err != nil {
		log.Warn().Err(err).Str("path", cfg.SessionFile).Msg("session restore failed")
	}

	backend := httpx.New(cfg.APIBaseURL, cfg.RequestTimeout, store, log.With().Str("client", "api").Logger())
	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		api:   api.New(backend),
		term:  term,
		out:   stdout,
	}, nil
}

// confirmer is the terminal prompt, or an unconditional yes with -yes.
func (a *app) confirmer(yes bool) ui.Confirmer {
	if yes {
		return ui.AutoConfirm(ui.Accept)
	}
	return a.term
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// emit prints v as indented JSON, reduced to fields when any are given.
func (a *app) emit(v any, fields []string) error {
	var out any = v
	if len(fields) > 0 {
		out = devutil.Pick(v, fields...)
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func emitEach[T any](a *app, items []T, fields []string) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if len(fields) == 0 {
		return enc.Encode(items)
	}
	return enc.Encode(devutil.PickEach(items, fields...))
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parse maps flag errors to usage errors.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	return nil
}

func oneArg(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", usageError("expected exactly one " + what)
	}
	return fs.Arg(0), nil
}

// pastedCredential asks for an OAuth token obtained in a browser. A blank
// answer backs out of the flow.
type pastedCredential struct {
	term *ui.Terminal
}

func (p pastedCredential) Credential(ctx context.Context, kind session.ProviderKind) (firebase.Credential, error) {
	fmt.Fprintf(p.term.Out, "Paste the %s id token (blank to cancel): ", kind)
	line, err := p.term.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return firebase.Credential{}, firebase.ErrFlowCancelled
	}
	if err != nil {
		return firebase.Credential{}, err
	}
	tok := strings.TrimSpace(line)
	if tok == "" {
		return firebase.Credential{}, firebase.ErrFlowCancelled
	}
	if kind == session.GitHub {
		return firebase.Credential{AccessToken: tok}, nil
	}
	return firebase.Credential{IDToken: tok}, nil
}
