package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcpdeck/internal/app"
)

type serveOptions struct {
	workingDir   string
	settingsPath string
	metricsAddr  string
	debug        bool
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newRootCmd() *cobra.Command {
	opts := serveOptions{}
	if wd, err := os.Getwd(); err == nil {
		opts.workingDir = wd
	}

	root := &cobra.Command{
		Use:   "mcpdeckd",
		Short: "MCP server manager with layered config and health monitoring",
	}

	root.PersistentFlags().StringVar(&opts.workingDir, "project-dir", opts.workingDir, "project directory for project-scope config")
	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", opts.settingsPath, "path to daemon settings file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "use development logging")

	root.AddCommand(
		newServeCmd(&opts),
		newValidateCmd(&opts),
	)

	return root
}

func newServeCmd(opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server manager daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			return app.New(logger).Serve(ctx, app.ServeConfig{
				WorkingDir:   opts.workingDir,
				SettingsPath: opts.settingsPath,
				MetricsAddr:  opts.metricsAddr,
			})
		},
	}

	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", opts.metricsAddr, "listen address for the /metrics endpoint (empty disables)")

	return cmd
}

func newValidateCmd(opts *serveOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the layered configuration without starting servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return app.New(logger).Validate(cmd.Context(), opts.workingDir)
		},
	}
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
