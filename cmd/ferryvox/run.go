package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emmett/ferryvox/internal/app"
	"github.com/emmett/ferryvox/internal/config"
	"github.com/emmett/ferryvox/internal/log"
	"github.com/emmett/ferryvox/internal/output"
)

type configLoader func() (*config.Config, error)

func newRunCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the voice assistant",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := load()
			if err != nil {
				return err
			}
			log.Init(cfg.Debug, cmd.ErrOrStderr())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)

			console := output.NewConsoleOutput(output.ConsoleConfig{
				ShowTimestamp: true,
				Writer:        cmd.OutOrStdout(),
				ErrWriter:     cmd.ErrOrStderr(),
			})
			assistant := app.NewAssistant(cfg, console)
			defer func() {
				if cerr := assistant.Close(); cerr != nil {
					log.L().Warn().Err(cerr).Msg("shutdown incomplete")
				}
			}()

			started := make(chan struct{})
			go handleSignals(ctx, sigs, started, cancel, assistant.Stop)

			if err := assistant.Start(ctx); err != nil {
				console.Error(err.Error())
				return err
			}
			close(started)

			if err := assistant.Run(ctx); err != nil {
				return fmt.Errorf("assistant stopped: %w", err)
			}
			console.Info("Goodbye.")
			return nil
		},
	}
}

// handleSignals aborts startup if a signal arrives before started is
// closed. Once running, a signal only asks the assistant to stop, so the
// current utterance and capture window finish.
func handleSignals(ctx context.Context, sigs <-chan os.Signal, started <-chan struct{},
	cancel context.CancelFunc, stop func()) {
	select {
	case <-sigs:
		select {
		case <-started:
			stop()
		default:
			cancel()
		}
		return
	case <-started:
	case <-ctx.Done():
		return
	}

	select {
	case <-sigs:
		stop()
	case <-ctx.Done():
	}
}
