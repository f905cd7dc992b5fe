package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	storage "github.com/next-exp/storage_go/pkg"
	_ "github.com/next-exp/storage_go/pkg/hdf5store"
	_ "github.com/next-exp/storage_go/pkg/sqlitestore"
	flag "github.com/spf13/pflag"
)

const defaultEvents = 1000

var configuration storage.Configuration

var (
	logger         storage.SlogLogger
	VerbosityLevel int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := storage.NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = storage.SlogLogger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	fileOut := flag.StringP("output", "o", "", "Event file to write (overrides file_out)")
	numEvents := flag.IntP("events", "n", -1, "Events to generate (overrides max_events)")
	numWorkers := flag.IntP("workers", "j", 0, "Generator goroutines (overrides num_workers)")
	seed := flag.Int64("seed", 0, "Random seed (overrides seed)")
	verbosity := flag.CountP("verbose", "v", "Increase verbosity")
	flag.Parse()

	var err error
	configuration, err = storage.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if *fileOut != "" {
		configuration.FileOut = *fileOut
	}
	if *numEvents >= 0 {
		configuration.MaxEvents = *numEvents
	} else if configuration.MaxEvents == storage.DefaultConfiguration().MaxEvents {
		configuration.MaxEvents = defaultEvents
	}
	if *numWorkers > 0 {
		configuration.NumWorkers = *numWorkers
	}
	if *seed != 0 {
		configuration.Seed = *seed
	}
	configuration.Verbosity += *verbosity
	if configuration.FileOut == "" {
		logger.Error("no output file given")
		os.Exit(1)
	}
	storage.SetConfiguration(configuration)
	storage.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		storage.PrintConfiguration(configuration, logger)
	}

	if err := run(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []storage.Option{storage.WithBackend(configuration.Backend)}
	var summary *storage.MetricsSummary
	if configuration.Metrics {
		var rec storage.MetricsRecorder
		var err error
		summary, rec, err = storage.NewMetricsSummary()
		if err != nil {
			return fmt.Errorf("error setting up metrics: %w", err)
		}
		opts = append(opts, storage.WithMetrics(rec))
	}

	generator := NewGenerator(configuration)
	masks, err := generator.NoiseMasks()
	if err != nil {
		return err
	}
	if configuration.NoiseMaskFile != "" {
		if err := storage.WriteNoiseMasks(configuration.NoiseMaskFile, masks); err != nil {
			return err
		}
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("Noise masks written to %s", configuration.NoiseMaskFile), "main")
		}
	}

	session, err := storage.OpenForWrite(configuration.FileOut, configuration.Sections, configuration.NumPlanes, opts...)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", configuration.FileOut, err)
	}
	defer session.Close()
	if err := configuration.Apply(session); err != nil {
		return err
	}
	if configuration.MaskMode == storage.Remove {
		if err := session.SetNoiseMasks(masks); err != nil {
			return err
		}
	}

	start := time.Now()
	results := startWorkers(ctx, generator, configuration.NumWorkers, configuration.Skip, configuration.MaxEvents)
	written, err := processWorkerResults(results, session, configuration.Skip)
	if err != nil {
		return err
	}
	if err := session.Close(); err != nil {
		return err
	}
	duration := time.Since(start)
	logger.Info(fmt.Sprintf("Events written: %d in %d ms", written, duration.Milliseconds()), "main")

	if summary != nil {
		return summary.Report(context.Background(), logger)
	}
	return nil
}
