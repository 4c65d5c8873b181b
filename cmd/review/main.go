// Command review runs contract reviews from the terminal using the same
// services as the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clausewise-backend/bootstrap"
	"clausewise-backend/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	configPath string
	offline    bool
	verbose    bool
	timeout    time.Duration
	session    string
}

// loadApp builds the services for one command run.
func (o *options) loadApp(ctx context.Context) (*bootstrap.App, error) {
	config.LoadDotEnv()
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.offline {
		cfg.LLM.Provider = config.ProviderOffline
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if o.verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return bootstrap.New(ctx, cfg, logger)
}

// run wraps a command body with a bounded context and a built App.
func (o *options) run(fn func(ctx context.Context, app *bootstrap.App, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
		defer cancel()

		app, err := o.loadApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, app, cmd, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "review",
		Short: "Review contracts: risk, safety, precautions, Q&A and lawyer search",
		Long: `review analyzes contracts with the configured completion backend.

Use --offline to run the deterministic rule-based backend without an API key.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $CLAUSEWISE_CONFIG)")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "use the offline backend")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "overall command timeout")
	root.PersistentFlags().StringVar(&opts.session, "session", "cli", "session id for analysis and questions")

	root.AddCommand(
		newSampleCmd(),
		newAnalyzeCmd(opts),
		newScoreCmd(opts),
		newAskCmd(opts),
		newLawyersCmd(opts),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
