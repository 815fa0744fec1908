package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/config"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/store"
)

// session is one command's view of the engine and its storage.
type session struct {
	eng     *engine.Engine
	backend store.Backend
	cfg     config.Config
	out     *OutputFormatter
	log     *slog.Logger
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Driver != "" {
		if err := cfg.SetDriver(opts.Driver, path); err != nil {
			return config.Config{}, err
		}
	}
	if opts.DBPath != "" {
		cfg.Storage.Path = opts.DBPath
	}
	return cfg, nil
}

// newLogger configures logging based on config and the verbose flag. Logs
// go to stderr so stdout stays parseable.
func newLogger(cmd *cobra.Command, opts *RootOptions, cfg config.Config) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// openSession loads config, opens storage and starts the engine.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	out := newFormatter(cmd, opts)

	cfg, err := loadConfig(opts)
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger := newLogger(cmd, opts, cfg)

	loc, err := cfg.Location()
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger.Debug("opening storage", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)
	backend, err := store.OpenBackend(cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.QuotaBytes)
	if err != nil {
		_ = out.Error(ErrCodeStorage, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open storage", err)
	}

	engOpts := []engine.Option{engine.WithLocation(loc), engine.WithLogger(logger)}
	if opts.Clock != nil {
		engOpts = append(engOpts, engine.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDs))
	}
	eng, err := engine.New(cmd.Context(), backend, engOpts...)
	if err != nil {
		if closeErr := backend.Close(); closeErr != nil {
			logger.Error("error closing storage", "error", closeErr)
		}
		_ = out.Error(ErrCodeStorage, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load data", err)
	}

	return &session{eng: eng, backend: backend, cfg: cfg, out: out, log: logger}, nil
}

// finish closes storage. A change that was applied but could not be saved
// turns a successful command into a command error, since the process is
// about to exit and the in-memory state with it.
func (s *session) finish(errp *error) {
	if closeErr := s.backend.Close(); closeErr != nil {
		s.log.Error("error closing storage", "error", closeErr)
	}
	if *errp != nil {
		return
	}
	if perr := s.eng.PersistErr(); perr != nil {
		*errp = s.out.Fail("change was not saved", perr)
	}
}
