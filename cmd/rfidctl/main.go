package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/org/rfidconsole/internal/clock"
	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/device"
	"github.com/org/rfidconsole/internal/view"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errReported marks a failure the user has already been told about.
var errReported = errors.New("reported")

var (
	deviceFlag string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:           "rfidctl",
	Short:         "RFID access console CLI",
	Long:          "A CLI for inspecting and managing the card registry of an RFID access reader.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			printError(err.Error())
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with --format=raw)")
	rootCmd.PersistentFlags().StringVar(&deviceFlag, "device", "", "Device base URL (overrides RFID_DEVICE_URL and the config file)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log device requests to stderr")

	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(cardsCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(configCmd())
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if debugFlag {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func newClient(logger zerolog.Logger) *device.Client {
	return device.New(device.Config{BaseURL: deviceURL(), Timeout: cfg.RequestTimeout}, logger)
}

// engine is the console engine wired for one command invocation.
type engine struct {
	client  *device.Client
	store   *view.Store
	sync    *console.Synchronizer
	scan    *console.ScanCoordinator
	gateway *console.Gateway
}

func newEngine(logger zerolog.Logger, notify console.Notifier, confirm console.Confirmer, scanTimeout time.Duration) *engine {
	client := newClient(logger)
	store := view.NewStore()
	clk := clock.Real()
	syncer := console.NewSynchronizer(client, store, notify, clk, logger)
	return &engine{
		client:  client,
		store:   store,
		sync:    syncer,
		scan:    console.NewScanCoordinator(client, notify, clk, console.ScanConfig{Timeout: scanTimeout}, logger),
		gateway: console.NewGateway(client, syncer, notify, confirm, nil, logger),
	}
}
