package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dqengine/internal"
	"dqengine/internal/config"
	"dqengine/internal/container"
	"dqengine/internal/errors"
)

// exitGateFailed is the exit status when a check ran but breached the gate
const exitGateFailed = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.IsDataQualityError(err) {
			os.Exit(exitGateFailed)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "dqcheck",
		Short:         "Data quality checks: anomaly detection and rule validation for tabular snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Optional .env file to load before reading the environment")

	app := &cliApp{envFile: &envFile}
	rootCmd.AddCommand(
		newCheckCmd(app),
		newServeCmd(app),
		newHistoryCmd(app),
		newMigrateCmd(app),
	)
	return rootCmd
}

// cliApp lazily loads configuration once flags are parsed
type cliApp struct {
	envFile *string
}

func (a *cliApp) config() (*config.Config, error) {
	var files []string
	if *a.envFile != "" {
		files = append(files, *a.envFile)
	}
	return config.Load(files...)
}

// container loads config and wires dependencies; withDB also connects to Postgres
func (a *cliApp) container(ctx context.Context, withDB bool) (*container.Container, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	c, err := container.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if withDB {
		if err := c.InitWithDatabase(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}
