// Command app is the terminal client: sign in with a backend token, list the
// customer dashboard, or browse it interactively.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"panic-list/internal/app"
	"panic-list/internal/backend"
	"panic-list/internal/config"
	"panic-list/internal/core"
	"panic-list/internal/logger"
	"panic-list/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const sessionKey = "cli"

// env is built once by the root command and shared by every subcommand.
type env struct {
	cfg      *config.Config
	log      *logrus.Logger
	closer   io.Closer
	provider *session.Provider
	svc      app.ApplicationService
}

var (
	verbose bool
	deps    = &env{}
)

var rootCmd = &cobra.Command{
	Use:           "app",
	Short:         "Panic List customer dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return deps.init(verbose)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if deps.closer != nil {
			deps.closer.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warnings only")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, customersCmd, replCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func (e *env) init(verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	if logCfg.Output == "stdout" {
		// stdout carries command output
		logCfg.Output = "stderr"
	}
	if !verbose {
		logCfg.Level = "warn"
	}
	log, closer, err := logger.New(logCfg)
	if err != nil {
		return err
	}

	path := cfg.SessionFile
	if path == "" {
		if path, err = session.DefaultFilePath(); err != nil {
			return err
		}
	}
	store := session.NewFileStore(path)

	client, err := backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithPageSize(cfg.OrdersPageSize),
		backend.WithLogger(log),
	)
	if err != nil {
		return err
	}
	loc, _ := cfg.Location()

	e.cfg, e.log, e.closer = cfg, log, closer
	e.provider = session.NewProvider(store, sessionKey)
	e.svc = app.NewAppService(store,
		func(token string) core.Backend { return client.WithToken(token) },
		app.Options{ResolveConcurrency: cfg.ResolveConcurrency, Location: loc},
		log,
	)
	return nil
}

