package main

import (
	"github.com/spf13/cobra"
)

func newServeCmd(a *cliApp) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve the suites in DQ_SUITES_DIR over HTTP.

Run history is stored when DATABASE_URL is set.

Example: DQ_SUITES_DIR=./suites dqcheck serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.container(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			if port != "" {
				c.Config.Server.Port = port
			}
			return c.Server().Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")
	return cmd
}
