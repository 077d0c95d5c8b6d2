// Package main provides spmctl, the command line front end of the request
// treatment wizard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"spm/internal/backend"
	"spm/internal/config"
	"spm/internal/derived"
	"spm/internal/draft"
	"spm/internal/events"
	"spm/internal/metrics"
	"spm/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every subcommand. Non-empty
// values override the config file.
type globalFlags struct {
	configPath    string
	logLevel      string
	baseURL       string
	token         string
	draftsBackend string
	draftsDir     string
	sinks         []string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "spmctl",
		Short:         "Treat SPM material requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.baseURL, "base-url", "", "Backend base URL")
	pf.StringVar(&g.token, "token", "", "Backend bearer token")
	pf.StringVar(&g.draftsBackend, "drafts-backend", "", "Draft backend (memory, pebble, badger, sqlite)")
	pf.StringVar(&g.draftsDir, "drafts-dir", "", "Draft storage directory")
	pf.StringSliceVar(&g.sinks, "sink", nil, "Event sinks (file, kafka, kafka-tx, nats)")

	cmd.AddCommand(treatCmd(g), draftsCmd(g), budgetNoticeCmd(g), serveCmd(g))
	return cmd
}

func (g *globalFlags) load() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if g.configPath != "" {
		fromFile, err := config.LoadFromFile(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	}
	cfg.Merge(&config.Config{
		Backend: config.BackendConfig{BaseURL: g.baseURL, Token: g.token},
		Drafts:  config.DraftsConfig{Backend: g.draftsBackend, Dir: g.draftsDir},
		Events:  config.EventsConfig{Sinks: g.sinks},
		Log:     config.LogConfig{Level: g.logLevel},
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// app holds the collaborators built from the configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Registry
	client  backend.Client
	store   draft.Store
	drafts  *draft.Drafts
	journal events.Writer
	session *session.Memory
	allow   derived.AllowList
	closers []func() error

	// inflight holds the request ids being treated by serve.
	inflight sync.Map
}

// newApp opens the draft store and the event sinks. Callers must Close it.
func newApp(ctx context.Context, g *globalFlags) (*app, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRegistry(),
		client:  backend.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, backend.WithToken(cfg.Backend.Token)),
		session: session.NewMemory(),
		allow:   derived.NewAllowList(cfg.Stock.AllowedWarehouses...),
	}
	if cfg.User.Name != "" || cfg.User.ID != 0 {
		a.session.SignIn(cfg.User)
	}

	st, closeStore, err := draft.Open(cfg.Drafts.Backend, cfg.Drafts.Dir)
	if err != nil {
		return nil, fmt.Errorf("open drafts: %w", err)
	}
	a.closers = append(a.closers, closeStore)
	a.store = st
	a.drafts = draft.NewDrafts(st, cfg.Drafts.Prefix)

	journal, closeJournal, err := events.Open(ctx, events.Options{
		Sinks:          cfg.Events.Sinks,
		Dir:            cfg.Events.Dir,
		KafkaBootstrap: cfg.Events.KafkaBootstrap,
		Topic:          cfg.Events.Topic,
		TxID:           cfg.Events.TxID,
		NATSURL:        cfg.Events.NATSURL,
		Subject:        cfg.Events.Subject,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open events: %w", err)
	}
	a.closers = append(a.closers, closeJournal)
	a.journal = journal

	logger.Debug("spmctl ready",
		slog.String("base_url", cfg.Backend.BaseURL),
		slog.String("drafts", cfg.Drafts.Backend),
		slog.Any("sinks", cfg.Events.Sinks))
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// record appends an event to the journal, logging failures only.
func (a *app) record(ctx context.Context, typ string, requestID int64, payload any) {
	ev, err := events.New(typ, requestID, session.Actor(a.session), payload)
	if err == nil {
		err = a.journal.Append(ctx, ev)
	}
	if err != nil {
		a.logger.Warn("journal append failed", slog.Int64("request_id", requestID), slog.String("type", typ), slog.String("error", err.Error()))
	}
}

const shutdownTimeout = 5 * time.Second
