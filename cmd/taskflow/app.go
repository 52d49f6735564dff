package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/alecgard/taskflow/internal/api"
	"github.com/alecgard/taskflow/internal/config"
	"github.com/alecgard/taskflow/internal/logging"
	"github.com/alecgard/taskflow/internal/metrics"
	"github.com/alecgard/taskflow/internal/session"
	"github.com/alecgard/taskflow/internal/store"
	"github.com/alecgard/taskflow/internal/view"
	"github.com/spf13/cobra"
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	session *session.Session
	metrics *metrics.Metrics
	client  *api.Client

	out     io.Writer
	prompts *prompter

	closers []io.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	st, err := store.Open(cmd.Context(), cfg.Storage.Path)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	m := metrics.New()
	m.RegisterStoreCollector(st.Stats)

	sess := session.New(st, logger)
	sess.SetMetrics(m)

	client := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Tokens:  sess,
		Breaker: api.BreakerSettings{
			MaxFailures: cfg.API.Breaker.MaxFailures,
			OpenTimeout: cfg.API.Breaker.OpenTimeout,
		},
		Logger: logger,
	})
	client.SetMetrics(m)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		session: sess,
		metrics: m,
		client:  client,
		out:     cmd.OutOrStdout(),
		prompts: newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		closers: []io.Closer{st, logCloser},
	}, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		c.Close()
	}
}

// withApp builds the app, runs fn and tears the app down. With --stats the
// metrics summary is printed to stderr afterwards.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		runErr := fn(cmd.Context(), a, args)

		if showStats {
			if err := a.metrics.WriteJSON(cmd.ErrOrStderr()); err != nil {
				a.logger.Warn("failed to write metrics summary", "error", err)
			}
		}
		return runErr
	}
}

// requireLogin fails early when there is no stored credential.
func (a *app) requireLogin(ctx context.Context) error {
	cred, err := a.session.Credential(ctx)
	if err != nil {
		return err
	}
	if cred == "" {
		return errNotLoggedIn
	}
	return nil
}

var (
	errNotLoggedIn    = errors.New("not logged in, run `taskflow login` first")
	errSessionExpired = errors.New("session expired or rejected, run `taskflow login` again")
)

// loadErr turns a view load error into a user-facing error.
func loadErr(err error) error {
	if errors.Is(err, view.ErrReauthenticate) {
		return errSessionExpired
	}
	return err
}

// report prints a command result. Only Succeeded and Cancelled are not errors.
func (a *app) report(res view.Result, success string) error {
	switch res.Outcome {
	case view.Succeeded:
		fmt.Fprintln(a.out, success)
		if res.Err != nil {
			return fmt.Errorf("reloading: %w", loadErr(res.Err))
		}
		return nil
	case view.Cancelled:
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	case view.Ignored:
		return nil
	case view.Failed:
		if api.IsUnauthorized(res.Err) {
			return fmt.Errorf("%s: session ended, run `taskflow login` again", res.Message)
		}
		return errors.New(res.Message)
	}
	return errors.New(res.Message)
}
