package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dqengine/app"
	"dqengine/internal/errors"
	"dqengine/internal/report"
	"dqengine/internal/suite"
	"dqengine/ports"
)

func newCheckCmd(a *cliApp) *cobra.Command {
	var (
		suitePath      string
		current        string
		historical     string
		source         string
		format         string
		output         string
		failOnCritical bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a suite against a snapshot and print the report",
		Long: `Run anomaly detection and rule validation from a YAML suite against a snapshot.

Snapshots are CSV/XLSX files, or table names when --source=postgres.
The exit status is 2 when the gate fails, 1 on any other error.

Example: dqcheck check --suite suites/orders.yaml --current today.csv --historical yesterday.csv --format markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fmtKind, err := report.ParseFormat(format)
			if err != nil {
				return errors.InvalidInput(err.Error())
			}

			c, err := a.container(ctx, source == "postgres")
			if err != nil {
				return err
			}
			defer c.Close()

			var loader ports.DatasetLoader = c.FileReader
			if source == "postgres" {
				if c.TableLoader == nil {
					return errors.ConfigInvalid("--source=postgres requires DATABASE_URL")
				}
				loader = c.TableLoader
			} else if source != "file" {
				return errors.InvalidInput(fmt.Sprintf("unknown source %q (use file or postgres)", source))
			}

			st, err := suite.LoadFile(suitePath)
			if err != nil {
				return err
			}
			compiled, err := suite.Compile(st, c.CompileOptions())
			if err != nil {
				return err
			}

			if c.Config.Engine.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, c.Config.Engine.Timeout)
				defer cancel()
			}

			result, err := c.Service.LoadAndCheck(ctx, loader, compiled, current, historical)
			if err != nil {
				return err
			}

			body, err := report.Render(result.Document(), fmtKind)
			if err != nil {
				return err
			}
			if err := writeOutput(output, body); err != nil {
				return err
			}

			policy := c.Service.Policy()
			if cmd.Flags().Changed("fail-on-critical") {
				policy.FailOnCritical = failOnCritical
			}
			return app.Gate(result, policy)
		},
	}

	cmd.Flags().StringVar(&suitePath, "suite", "", "Suite YAML file")
	cmd.Flags().StringVar(&current, "current", "", "Current snapshot (file path or table name)")
	cmd.Flags().StringVar(&historical, "historical", "", "Historical snapshot for volatility checks")
	cmd.Flags().StringVar(&source, "source", "file", "Snapshot source: file|postgres")
	cmd.Flags().StringVar(&format, "format", "json", "Report format: json|markdown|html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&failOnCritical, "fail-on-critical", true, "Fail when any critical anomaly or critical rule failure is found")
	_ = cmd.MarkFlagRequired("suite")
	_ = cmd.MarkFlagRequired("current")

	return cmd
}

func writeOutput(path string, body []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(body, '\n'))
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
