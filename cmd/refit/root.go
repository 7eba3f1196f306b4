package main

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/cmd/refit/opts"
	"github.com/modelworks/refit/pkg/cadhost"
	_ "github.com/modelworks/refit/pkg/cadhost/filehost"
	"github.com/modelworks/refit/pkg/config"
	"github.com/modelworks/refit/pkg/operation"
	"github.com/modelworks/refit/pkg/report"
	"github.com/modelworks/refit/pkg/session"
)

var (
	// Flags
	configFile string
	debug      bool
)

// newRootOpts creates a new RootOpts with initialized dependencies
func newRootOpts(ctx context.Context) (*opts.RootOpts, error) {
	// Load config. The default config file is optional; an explicitly
	// named one must exist.
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	host, err := cadhost.GetHost(cfg.Host)
	if err != nil {
		return nil, errors.Errorf("resolving host: %w", err)
	}

	gate := session.NewGate(time.Duration(cfg.SessionWaitSeconds) * time.Second)
	sess, err := session.New(host, gate)
	if err != nil {
		return nil, errors.Errorf("creating session: %w", err)
	}

	operator, err := operation.New(operation.Options{
		Host:    host,
		Session: sess,
	})
	if err != nil {
		return nil, errors.Errorf("creating operator: %w", err)
	}

	return &opts.RootOpts{
		Config:   cfg,
		Host:     host,
		Session:  sess,
		Operator: operator,
		Printer:  report.NewPrinter(*zerolog.Ctx(ctx)),
	}, nil
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, configFile)
	if err == nil {
		return cfg, nil
	}
	if configFile == defaultConfigFile && errors.Is(err, fs.ErrNotExist) {
		zerolog.Ctx(ctx).Debug().Msg("no config file, using defaults")
		return config.Default(), nil
	}
	return nil, errors.Errorf("loading config: %w", err)
}

const defaultConfigFile = ".refit.yaml"

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "config file path")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags and config
func setupLogging(level string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			zerolog.SetGlobalLevel(parsed)
		}
	}
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
}
