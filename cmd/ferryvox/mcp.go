package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emmett/ferryvox/internal/app"
)

func newMCPCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve ferry routes as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.NewMCPHandler(cfg, Version).Run(ctx)
		},
	}
}
