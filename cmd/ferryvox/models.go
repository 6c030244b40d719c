package main

import (
	"github.com/spf13/cobra"

	"github.com/emmett/ferryvox/internal/app"
	"github.com/emmett/ferryvox/internal/models"
)

func newModelsCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and download Vosk recognition models",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "models directory (default ./models)")

	manager := func(cmd *cobra.Command) (*app.ModelManager, error) {
		m, err := models.NewManager(dir)
		if err != nil {
			return nil, err
		}
		return app.NewModelManager(m, cmd.OutOrStdout()), nil
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the model catalog and what is downloaded",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mm, err := manager(cmd)
			if err != nil {
				return err
			}
			if err := mm.ListModels(); err != nil {
				return err
			}
			return mm.ListDownloaded()
		},
	}

	downloadCmd := &cobra.Command{
		Use:   "download [name]",
		Short: "Download a model (default " + models.DefaultModelName + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mm, err := manager(cmd)
			if err != nil {
				return err
			}
			name := models.DefaultModelName
			if len(args) == 1 {
				name = args[0]
			}
			return mm.Download(cmd.Context(), name)
		},
	}

	cmd.AddCommand(listCmd, downloadCmd)
	return cmd
}
