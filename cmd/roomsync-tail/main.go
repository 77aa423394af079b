// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// roomsync-tail follows the joined rooms of one Matrix account and
// prints every live event as it is dispatched.
//
// Live mode (default) logs in or loads an access token as configured,
// catches up silently on the first /sync, then prints events until
// interrupted. With tap.path set, every stored event is also recorded
// to a CBOR tap file.
//
// Replay mode (--replay) reads a tap file instead of a homeserver and
// prints the recorded live events through the same dispatch pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/roomsync/client"
	"github.com/bureau-foundation/roomsync/lib/config"
	"github.com/bureau-foundation/roomsync/lib/metrics"
	"github.com/bureau-foundation/roomsync/lib/ref"
	"github.com/bureau-foundation/roomsync/lib/version"
	"github.com/bureau-foundation/roomsync/messaging"
	"github.com/bureau-foundation/roomsync/observer"
	"github.com/bureau-foundation/roomsync/tap"
	"github.com/bureau-foundation/roomsync/timeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	replayPath string
	room       string
	raw        bool
	noColor    bool
	scrub      bool
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("roomsync-tail", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to roomsync.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&opts.replayPath, "replay", "", "replay a tap file instead of syncing")
	flagSet.StringVar(&opts.room, "room", "", "only print events from this room ID")
	flagSet.BoolVar(&opts.raw, "raw", false, "print each event as highlighted JSON")
	flagSet.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flagSet.BoolVar(&opts.scrub, "scrub", false, "replace message bodies in the tap file")
	flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion, _ := flagSet.GetBool("version"); showVersion {
		fmt.Printf("roomsync-tail %s\n", version.Full())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	roomsyncMetrics := metrics.New(registry)
	if cfg.Metrics.Listen != "" {
		shutdown := serveMetrics(cfg.Metrics.Listen, registry, logger)
		defer shutdown()
	}

	out := newPrinter(os.Stdout, opts.raw, opts.noColor)

	if opts.replayPath != "" {
		return replay(ctx, opts, out, roomsyncMetrics, logger)
	}
	return follow(ctx, cfg, opts, out, roomsyncMetrics, logger)
}

// loadConfig reads --config or $ROOMSYNC_CONFIG. Replay mode runs with
// defaults when neither is set and skips credential validation.
func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case os.Getenv(config.EnvironmentVariable) != "" || opts.replayPath == "":
		cfg, err = config.Load()
	default:
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.replayPath != "" {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// follow runs the live sync loop until interrupted.
func follow(ctx context.Context, cfg *config.Config, opts options, out *printer, roomsyncMetrics *metrics.Metrics, logger *slog.Logger) error {
	homeserver, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver,
		Logger:        logger,
		Metrics:       roomsyncMetrics,
	})
	if err != nil {
		return err
	}
	session, err := openSession(ctx, homeserver, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	filter, err := cfg.LoadSyncFilter()
	if err != nil {
		return err
	}

	var recorder client.Recorder
	if cfg.Tap.Path != "" {
		writer, err := tap.Create(cfg.Tap.Path, opts.scrub)
		if err != nil {
			return err
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("closing tap", "path", cfg.Tap.Path, "error", err)
			}
		}()
		recorder = writer
		logger.Info("recording events", "path", cfg.Tap.Path, "compression", tap.CompressionForPath(cfg.Tap.Path))
	}

	c, err := client.New(client.Config{
		Session:     session,
		SyncTimeout: cfg.Sync.Timeout,
		Filter:      string(filter),
		Media:       homeserver,
		Recorder:    recorder,
		Logger:      logger,
		Metrics:     roomsyncMetrics,
	})
	if err != nil {
		return err
	}
	if err := subscribe(c, opts, out); err != nil {
		return err
	}

	logger.Info("following rooms", "user_id", session.UserID(), "homeserver", homeserver.HomeserverURL())
	runErr := c.Run(ctx)
	c.Close()
	return runErr
}

// replay feeds a tap file through a client with no homeserver.
func replay(ctx context.Context, opts options, out *printer, roomsyncMetrics *metrics.Metrics, logger *slog.Logger) error {
	reader, err := tap.Open(opts.replayPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	c, err := client.New(client.Config{
		Session: offlineSession{},
		Logger:  logger,
		Metrics: roomsyncMetrics,
	})
	if err != nil {
		return err
	}
	defer c.Close()
	if err := subscribe(c, opts, out); err != nil {
		return err
	}

	if err := c.Replay(ctx, reader.All()); err != nil {
		return err
	}
	if err := c.Queues().Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("replay complete", "events", len(c.Events()), "rooms", c.Queues().Len())
	return nil
}

// subscribe registers the printing handler.
func subscribe(c *client.Client, opts options, out *printer) error {
	var subscribeOptions []observer.Option
	if opts.room != "" {
		roomID, err := ref.ParseRoomID(opts.room)
		if err != nil {
			return fmt.Errorf("--room: %w", err)
		}
		subscribeOptions = append(subscribeOptions, observer.InRoom(roomID))
	}
	c.Subscriber().Event(func(_ context.Context, event timeline.Event) error {
		room, _ := c.Room(event.Room())
		return out.Print(event, room)
	}, subscribeOptions...)
	return nil
}

// serveMetrics exposes registry on listen and returns a shutdown
// function.
func serveMetrics(listen string, registry *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "listen", listen, "error", err)
		}
	}()
	logger.Info("serving metrics", "listen", listen)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `roomsync-tail - follow Matrix rooms from the terminal

Usage:
  roomsync-tail [flags]
  roomsync-tail --replay events.tap.zst [flags]

Flags:
%s
Configuration is read from --config or $%s. Replay mode needs no
configuration; log settings fall back to defaults.
`, flagSet.FlagUsages(), config.EnvironmentVariable)
}
