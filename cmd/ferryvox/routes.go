package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/emmett/ferryvox/internal/routes"
)

func newRoutesCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Manage the ferry route database",
	}

	cmd.AddCommand(
		newRoutesImportCmd(load),
		newRoutesLookupCmd(load),
		newRoutesListCmd(load),
	)
	return cmd
}

// withStore opens and migrates the configured database for one command
func withStore(ctx context.Context, load configLoader, fn func(*routes.SQLiteStore) error) (err error) {
	cfg, err := load()
	if err != nil {
		return err
	}
	store, err := routes.OpenSQLite(cfg.Routes.Database)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return fn(store)
}

func newRoutesImportCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "import <routes.toml>",
		Short: "Insert routes from a TOML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := routes.LoadTOML(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), load, func(store *routes.SQLiteStore) error {
				if err := store.Insert(cmd.Context(), seed...); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d route(s)\n", len(seed))
				return err
			})
		},
	}
}

func newRoutesLookupCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <departure> <arrival>",
		Short: "Show the ferry for a departure/arrival pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), load, func(store *routes.SQLiteStore) error {
				route, err := routes.NewResolver(store).Lookup(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if route == nil {
					return fmt.Errorf("no ferry route from %s to %s", args[0], args[1])
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "board at %s, land at %s\n", route.BoardingPort, route.LandingPort)
				return err
			})
		},
	}
}

func newRoutesListCmd(load configLoader) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every stored route",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), load, func(store *routes.SQLiteStore) error {
				all, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if all == nil {
						all = []routes.Route{}
					}
					return enc.Encode(all)
				}

				fmt.Fprintf(out, "routes: %d\n", len(all))
				for _, r := range all {
					fmt.Fprintf(out, "%s -> %s: %s to %s\n", r.DepartureArea, r.ArrivalArea, r.BoardingPort, r.LandingPort)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print routes as JSON")
	return cmd
}
