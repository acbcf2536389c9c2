package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iot-go-sdk/simulated-device/pkg/config"
	"github.com/iot-go-sdk/simulated-device/pkg/errors"
	"github.com/iot-go-sdk/simulated-device/pkg/journal"
	"github.com/iot-go-sdk/simulated-device/pkg/logger"
	"github.com/iot-go-sdk/simulated-device/pkg/mqtt"
	"github.com/iot-go-sdk/simulated-device/pkg/publisher"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	if err := logger.Init(cfg.Logging.Level, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 2
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid connection string")
		return 2
	}

	recorder := journal.Discard
	if cfg.Journal.Path != "" {
		recorder, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open journal")
			return 2
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close journal")
			}
		}()
		logger.Info().Str("path", cfg.Journal.Path).Msg("Journaling submissions")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub := publisher.New(client,
		publisher.WithInterval(cfg.Telemetry.Interval),
		publisher.WithMaxInFlight(cfg.Telemetry.MaxInFlight),
		publisher.WithShutdownTimeout(cfg.Telemetry.ShutdownTimeout),
		publisher.WithJournal(recorder),
	)

	// A failed connect has already been logged by the publisher and ends
	// the process normally; nothing is retried.
	if err := pub.Run(ctx); err != nil && !errors.IsConnectionError(err) {
		logger.Error().Err(err).Msg("Publisher failed")
		return 1
	}
	return 0
}
