// Command powermon tracks mains-power availability on a device without
// an RTC: it reconstructs absolute time at boot, records outage events
// across reboots, and serves rolling uptime statistics over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/powermon/internal/archive"
	"codeberg.org/mutker/powermon/internal/clock"
	"codeberg.org/mutker/powermon/internal/config"
	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/led"
	"codeberg.org/mutker/powermon/internal/logger"
	"codeberg.org/mutker/powermon/internal/monitor"
	"codeberg.org/mutker/powermon/internal/notify"
	"codeberg.org/mutker/powermon/internal/pid"
	"codeberg.org/mutker/powermon/internal/store"
	"codeberg.org/mutker/powermon/internal/web"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	errFactory := errors.New()

	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer pid.Remove()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	controller, cleanup, err := initApp(ctx)
	if err != nil {
		logger.Fatal().Err(errFactory.Wrap(errors.ErrInitApp, err)).Msg("failed to initialize application")
	}
	defer cleanup()

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, controller)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP status server listening")
	}

	loop(ctx, controller)

	controller.Shutdown()
	logger.Info().Msg("Exiting...")
}

func initApp(ctx context.Context) (*monitor.Controller, func(), error) {
	blobs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	feed := clock.NewHTTPFeed(cfg.TimeURL, time.Duration(cfg.TimeTimeout)*time.Second)
	reconciler := clock.New(feed)

	blinker := newBlinker()

	var publisher notify.Publisher
	if cfg.Broker != "" {
		publisher, err = notify.NewRealPublisher(cfg.Broker)
		if err != nil {
			// Best-effort: the monitor runs fine without a broker
			logger.Warn().Err(err).Msg("MQTT unavailable, continuing without notifications")
			publisher = nil
		}
	}

	collector, err := archive.NewService(archive.Config{
		Enabled: cfg.Archive,
		DBPath:  cfg.ArchiveDB,
	})
	if err != nil {
		return nil, nil, err
	}

	controller := monitor.New(monitor.Config{
		StateBlob:   cfg.StateFile,
		HistoryDays: cfg.HistoryDays,
		EventLimit:  cfg.EventLimit,
		Autosave:    time.Duration(cfg.Autosave) * time.Second,
		Retention:   monitor.Retention(cfg.Retention),
	}, reconciler, blobs, blinker, publisher, collector)

	// The bounded time sync must not hold up the rest of boot forever
	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	controller.Boot(bootCtx)

	cleanup := func() {
		blinker.Close()
		if publisher != nil {
			publisher.Close()
		}
	}

	return controller, cleanup, nil
}

func newBlinker() led.Blinker {
	if !cfg.LED {
		return led.NopBlinker{}
	}

	blinker, err := led.NewRealBlinker(cfg.LEDChip, cfg.LEDPin)
	if err != nil {
		logger.Warn().Err(err).Msg("Status LED unavailable")
		return led.NopBlinker{}
	}

	return blinker
}

func loop(ctx context.Context, controller *monitor.Controller) {
	interval := time.Duration(cfg.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			controller.Tick(ctx)
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
