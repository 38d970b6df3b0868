// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"context"
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/config"
	"github.com/stratastor/zfskit/internal/session"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/lifecycle"
	"github.com/stratastor/zfskit/pkg/server"
)

func NewServeCmd(open session.Opener) *cobra.Command {
	var (
		port     int
		detached bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the zfskit HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			if port != 0 {
				cfg.Server.Port = port
			}
			if detached {
				return runDetached(cmd.Context(), cfg, open)
			}
			return runServe(cmd.Context(), cfg, open)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port, overrides server.port")
	cmd.Flags().BoolVarP(&detached, "detach", "d", false, "Run as a daemon")
	return cmd
}

// daemonContext re-executes the current command line in the background. The
// daemon holds a lock on the PID file for its lifetime.
func daemonContext(cfg *config.Config) *daemon.Context {
	return &daemon.Context{
		PidFileName: cfg.Server.PIDFile,
		PidFilePerm: 0644,
		LogFileName: cfg.Logs.Path,
		LogFilePerm: 0640,
		WorkDir:     "/",
		Umask:       027,
		Args:        os.Args,
	}
}

func runDetached(ctx context.Context, cfg *config.Config, open session.Opener) error {
	log, err := logger.NewTag(config.NewLoggerConfig(cfg), "serve")
	if err != nil {
		return err
	}

	dctx := daemonContext(cfg)
	child, err := dctx.Reborn()
	if err != nil {
		return errors.Wrap(err, errors.ServerStart).
			WithMetadata("pid_file", cfg.Server.PIDFile)
	}
	if child != nil {
		log.Info("zfskit is running as a daemon", "pid", child.Pid, "log", cfg.Logs.Path)
		return nil
	}
	defer dctx.Release()

	return serve(ctx, cfg, open, log)
}

func runServe(ctx context.Context, cfg *config.Config, open session.Opener) error {
	log, err := logger.NewTag(config.NewLoggerConfig(cfg), "serve")
	if err != nil {
		return err
	}

	if err := lifecycle.EnsureSingleInstance(cfg.Server.PIDFile); err != nil {
		return err
	}
	defer lifecycle.ReleaseInstance(cfg.Server.PIDFile)

	return serve(ctx, cfg, open, log)
}

func serve(parent context.Context, cfg *config.Config, open session.Opener, log logger.Logger) error {
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	reg, err := open(ctx)
	if err != nil {
		return err
	}
	lifecycle.RegisterShutdownHook(func() {
		log.Info("Closing registry", "session", reg.Session().String())
		reg.Close()
	})
	lifecycle.RegisterReloadHook(func() {
		log.Info("Reload requested; restart to apply configuration changes")
	})
	defer lifecycle.Shutdown()

	go lifecycle.HandleSignals(ctx, cancel)

	log.Info("Starting zfskit server", "port", cfg.Server.Port, "backend", reg.Backend())
	return server.Start(ctx, cfg, reg)
}
