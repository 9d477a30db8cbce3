package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"coursion/internal/api"
	"coursion/internal/catalog"
	"coursion/internal/config"
	"coursion/internal/domain"
	"coursion/internal/export"
	"coursion/internal/httpx"
	"coursion/internal/logging"
	"coursion/internal/sftpclient"
)

type options struct {
	out             string
	format          string
	search          string
	difficulty      string
	sort            string
	withDescription bool
	upload          bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logging.New(cfg.Env, cfg.LogLevel)
	if err := run(ctx, cfg, log, os.Args[1:], os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("exportcatalog", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&o.out, "out", "coursion-catalog.csv", "output path")
	fs.StringVar(&o.format, "format", "", "csv or xml (default from -out extension)")
	fs.StringVar(&o.search, "search", "", "match title or instructor")
	fs.StringVar(&o.difficulty, "difficulty", catalog.DifficultyAll, "All, Beginner, Intermediate or Advanced")
	fs.StringVar(&o.sort, "sort", string(catalog.SortNewest), "Newest, Enrollment or Rating")
	fs.BoolVar(&o.withDescription, "with-description", false, "include descriptions (xml only)")
	fs.BoolVar(&o.upload, "sftp", false, "upload the generated file via SFTP")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.format == "" {
		o.format = strings.TrimPrefix(strings.ToLower(filepath.Ext(o.out)), ".")
	}
	o.format = strings.ToLower(o.format)
	if o.format != "csv" && o.format != "xml" {
		return o, fmt.Errorf("unknown format %q", o.format)
	}
	return o, nil
}

func buildQuery(o options) (catalog.Query, error) {
	q := catalog.DefaultQuery()
	q.Search = o.search
	key, ok := catalog.ParseSort(o.sort)
	if !ok {
		return q, fmt.Errorf("unknown sort %q", o.sort)
	}
	q.Sort = key
	if d := strings.TrimSpace(o.difficulty); d != "" && !strings.EqualFold(d, catalog.DifficultyAll) {
		parsed, ok := domain.ParseDifficulty(d)
		if !ok {
			return q, fmt.Errorf("unknown difficulty %q", o.difficulty)
		}
		q.Difficulty = string(parsed)
	}
	return q, nil
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string, errOut io.Writer) error {
	o, err := parseFlags(args, errOut)
	if err != nil {
		return err
	}
	q, err := buildQuery(o)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(o.out); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	client := api.New(httpx.New(cfg.APIBaseURL, cfg.RequestTimeout, nil, log))
	list := catalog.NewList(client, log)
	defer list.OnUnmount()
	if err := list.OnMount(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	list.SetQuery(q)
	view := list.View()

	courses := make([]domain.Course, 0, len(view.Rows))
	for _, r := range view.Rows {
		courses = append(courses, r.Course)
	}

	switch o.format {
	case "xml":
		err = export.WriteCatalogXMLFile(o.out, courses, export.XMLOptions{
			Generated:       time.Now().UTC().Format(time.RFC3339),
			WithDescription: o.withDescription,
		})
	default:
		err = export.WriteCatalogCSVFile(o.out, courses)
	}
	if err != nil {
		return err
	}
	log.Info().
		Int("courses", len(courses)).
		Int("total", view.Stats.Courses).
		Str("out", o.out).
		Msg("catalog exported")

	if !o.upload {
		return nil
	}
	upCfg := sftpclient.Config{
		Host:                  cfg.SFTPHost,
		Port:                  cfg.SFTPPort,
		User:                  cfg.SFTPUser,
		Pass:                  cfg.SFTPPass,
		RemoteDir:             cfg.SFTPDir,
		KnownHosts:            cfg.SFTPKnownHosts,
		InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
	}
	upCtx, upCancel := context.WithTimeout(ctx, 5*time.Minute)
	defer upCancel()

	remoteName := filepath.Base(o.out)
	if err := sftpclient.UploadFile(upCtx, upCfg, o.out, remoteName); err != nil {
		return err
	}
	log.Info().Str("addr", upCfg.Addr()).Str("dir", upCfg.RemoteDir).Str("file", remoteName).Msg("uploaded")
	return nil
}
