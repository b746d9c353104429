// Command chainref asks the chain-of-passages backend a question and renders
// the linked passages it returns.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aitoolsintegration-prog/chainref/internal/adapters/backend"
	"github.com/aitoolsintegration-prog/chainref/internal/adapters/observer"
	"github.com/aitoolsintegration-prog/chainref/internal/adapters/transport"
	"github.com/aitoolsintegration-prog/chainref/internal/config"
	"github.com/aitoolsintegration-prog/chainref/internal/domain/usecases"
	"github.com/aitoolsintegration-prog/chainref/internal/logging"
)

// errQueryFailed marks a query whose final view is failed. The message has
// already been rendered, so main only sets the exit code.
var errQueryFailed = errors.New("query failed")

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath string
	verbose    bool
	baseURL    string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "chainref",
		Short: "Ask questions and follow chains of linked passages",
		Long: `chainref sends a question and a theme to the chain backend and renders
the ordered chain of passages it returns, with the linking phrase between
each pair and any cross-theme connections.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging, including backend traffic")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "Backend base URL (overrides config)")

	root.AddCommand(
		newAskCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.Backend.BaseURL = a.baseURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newController wires transport, backend client and observer into a
// QueryController.
func (a *app) newController() *usecases.QueryController {
	httpClient := transport.NewHTTPClient(transport.Options{
		ConnectTimeout: a.cfg.Backend.ConnectTimeoutDuration(),
		ReadTimeout:    a.cfg.Backend.ReadTimeoutDuration(),
		WriteTimeout:   a.cfg.Backend.WriteTimeoutDuration(),
		LogBodies:      a.cfg.Logging.LogBodies,
		Logger:         a.logger.Named("http"),
	})
	client := backend.NewClient(a.cfg.Backend.BaseURL, httpClient, a.logger.Named("backend"))
	return usecases.NewQueryController(client,
		usecases.WithObserver(observer.NewLogObserver(a.logger)),
	)
}

// theme picks the flag value, falling back to the configured default.
func (a *app) theme(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Query.DefaultTheme
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errQueryFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
