// Package monitor bootstraps and runs the dacsync daemon: it resolves the
// target output device, wires the detection sources to the controller and
// runs everything until the process is told to stop.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkarvinen/dacsync/internal/catalog"
	"github.com/pkarvinen/dacsync/internal/conf"
	"github.com/pkarvinen/dacsync/internal/controller"
	"github.com/pkarvinen/dacsync/internal/device"
	"github.com/pkarvinen/dacsync/internal/logging"
	"github.com/pkarvinen/dacsync/internal/logstream"
	"github.com/pkarvinen/dacsync/internal/player"
)

// Run starts the daemon and blocks until SIGINT or SIGTERM. A non-nil
// error means startup failed and the process should exit non-zero.
func Run(settings *conf.Settings) error {
	registry := device.NewRegistry()

	target, err := resolveDevice(registry, settings.Device.UID)
	if err != nil {
		return err
	}

	logStartupBanner(settings, &target)

	var fileLogger *slog.Logger
	if settings.Main.Log.Enabled {
		var closeLogger func() error
		fileLogger, closeLogger, err = logging.NewFileLogger(
			settings.Main.Log.Path, settings.Main.Name, slog.LevelDebug)
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", settings.Main.Log.Path, err)
		}
		defer func() {
			if err := closeLogger(); err != nil {
				slog.Warn("failed to close log file", "error", err)
			}
		}()
	}

	scripter := player.NewAppleScript(settings.Player.Name)
	poller := player.NewPoller(settings.Player.Name, settings.Player.PollInterval)

	var resolver catalog.Resolver
	if settings.Catalog.Enabled {
		resolver = catalog.NewService(&settings.Catalog)
	}

	var stream *logstream.Monitor
	if settings.LogStream.Enabled {
		stream = logstream.NewMonitor(settings.LogStream.Binary, settings.Player.Name)
	}

	var rates <-chan int
	if stream != nil {
		rates = stream.Rates()
	}
	ctrl := controller.New(controller.Config{
		Settings:      settings,
		Registry:      registry,
		Device:        target,
		Transport:     scripter,
		Querier:       scripter,
		Resolver:      resolver,
		Notifications: poller.Notifications(),
		StreamRates:   rates,
		Logger:        fileLogger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("playback poller stopped", "error", err)
		}
	}()
	if stream != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := stream.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("log stream monitor stopped", "error", err)
			}
		}()
	}

	err = ctrl.Run(ctx)
	wg.Wait()

	if err != nil && ctx.Err() != nil {
		slog.Info("shutting down")
		return nil
	}
	return err
}

// resolveDevice picks the switch target: the configured UID if set, the
// system default output otherwise.
func resolveDevice(registry device.Registry, uid string) (device.Device, error) {
	if uid != "" {
		d, err := registry.FindByUID(uid)
		if err != nil {
			return device.Device{}, fmt.Errorf("no output device with UID %q, run 'dacsync devices' to list candidates: %w", uid, err)
		}
		return d, nil
	}
	d, err := registry.DefaultOutput()
	if err != nil {
		return device.Device{}, fmt.Errorf("resolving default output device: %w", err)
	}
	return d, nil
}

// logStartupBanner reports what the daemon is about to watch and drive.
func logStartupBanner(settings *conf.Settings, target *device.Device) {
	slog.Info("watching output device",
		"device", target.Name,
		"uid", target.UID,
		"current_rate", target.NominalRate,
		"supported_rates", formatRanges(target.SupportedRates),
		"settable", target.Settable)
	slog.Info("watching player",
		"player", settings.Player.Name,
		"running", player.IsRunning(settings.Player.Name),
		"pause_during_switch", settings.Switch.PauseDuringSwitch)
	if settings.Catalog.Enabled && settings.Catalog.Token == "" {
		slog.Warn("catalog lookups limited to free-text search, no developer token configured")
	}
}

func formatRanges(ranges []device.RateRange) []string {
	out := make([]string, 0, len(ranges))
	for _, r := range ranges {
		if r.Min == r.Max {
			out = append(out, fmt.Sprintf("%d", r.Min))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", r.Min, r.Max))
		}
	}
	return out
}
