package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/org/rfidconsole/internal/clock"
	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/tui"
	"github.com/org/rfidconsole/internal/view"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the live console dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			ctx := cmd.Context()

			// Log lines would tear the alternate screen.
			logger := zerolog.Nop()
			client := newClient(logger)
			store := view.NewStore()
			bridge := tui.NewBridge(store)
			clk := clock.Real()

			syncer := console.NewSynchronizer(client, store, bridge, clk, logger)
			scan := console.NewScanCoordinator(client, bridge, clk, console.ScanConfig{}, logger)
			gateway := console.NewGateway(client, syncer, bridge, bridge, store, logger)
			sched := console.NewScheduler(syncer, interval, logger)
			if err := sched.Start(ctx); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer sched.Stop()
			defer scan.Cancel()

			bridge.Notify(console.LevelInfo, "Console ready")
			model := tui.NewModel(ctx, tui.Options{
				Store:   store,
				Bridge:  bridge,
				Syncer:  syncer,
				Scanner: scan,
				Deleter: gateway,
			})
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().Duration("interval", console.DefaultSyncInterval, "Background sync interval")
	return cmd
}
