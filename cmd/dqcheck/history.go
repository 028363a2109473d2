package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"dqengine/adapters/postgres"
)

func newHistoryCmd(a *cliApp) *cobra.Command {
	var (
		tableName string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored check runs for a table (requires DATABASE_URL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.container(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			records, err := c.Service.History(cmd.Context(), tableName, limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "", "Table name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list, newest first")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newMigrateCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the check run history table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}

			db, err := postgres.Open(cmd.Context(), cfg.Database.URL, postgres.DefaultPoolConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			cmd.Println("dq_check_runs is up to date")
			return nil
		},
	}
}
