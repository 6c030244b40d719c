package main

import (
	"github.com/spf13/cobra"

	"github.com/emmett/ferryvox/internal/app"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List microphones usable with --device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.NewDeviceManager(cmd.OutOrStdout()).ListDevices()
		},
	}
}
