package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/org/rfidconsole/internal/api"
	"github.com/org/rfidconsole/internal/clock"
	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/internal/device"
	"github.com/org/rfidconsole/internal/events"
	"github.com/org/rfidconsole/internal/journal"
	"github.com/org/rfidconsole/internal/view"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfgFile := "config.yaml"
	if v := os.Getenv("RFIDCONSOLE_CONFIG"); v != "" {
		cfgFile = v
	}
	cfg, found, err := loadConfig(cfgFile, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if !found {
		log.Warn().Str("file", cfgFile).Msg("config file not found, using defaults")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.Logger
	client := device.New(device.Config{BaseURL: cfg.DeviceURL, Timeout: cfg.RequestTimeout}, logger)

	store := view.NewStore()
	hub := events.NewHub(logger)
	go hub.Run(ctx)
	out := events.NewBroadcaster(hub, logger)
	store.Subscribe(out.StateUpdated)
	notes := journal.New(cfg.JournalSize)
	notify := events.NewNotifier(notes, out, logger)

	clk := clock.Real()
	syncer := console.NewSynchronizer(client, store, notify, clk, logger)
	scan := console.NewScanCoordinator(client, notify, clk, console.ScanConfig{
		Interval: cfg.ScanInterval,
		Timeout:  cfg.ScanTimeout,
	}, logger)
	scan.OnStateChange(out.ScanStateChanged)
	gateway := console.NewGateway(client, syncer, notify, console.StaticConfirmer(false), store, logger)
	sched := console.NewScheduler(syncer, cfg.SyncInterval, logger)

	srv := api.NewServer(ctx, api.Config{
		ListenAddr: cfg.ListenAddr,
		DeviceURL:  cfg.DeviceURL,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
	}, api.Console{
		Sync:      syncer,
		Scheduler: sched,
		Scan:      scan,
		Gateway:   gateway,
		View:      store,
		Journal:   notes,
		Hub:       hub,
		Events:    out,
	})

	notify.Notify(console.LevelInfo, "Console ready")
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start sync scheduler")
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Dur("sync_interval", cfg.SyncInterval).Msg("console started")
	<-ctx.Done()

	log.Info().Msg("shutting down...")
	scan.Cancel()
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("console stopped")
}
