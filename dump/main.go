package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sqlx "github.com/jmoiron/sqlx"
	storage "github.com/next-exp/storage_go/pkg"
	_ "github.com/next-exp/storage_go/pkg/hdf5store"
	_ "github.com/next-exp/storage_go/pkg/sqlitestore"
	flag "github.com/spf13/pflag"
)

var dbConn *sqlx.DB
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
	fileIn := flag.StringP("input", "i", "", "Event file to read (overrides file_in)")
	skip := flag.Int("skip", -1, "Events to skip (overrides skip)")
	maxEvents := flag.IntP("max-events", "n", -1, "Events to print (overrides max_events)")
	maskMode := flag.String("mask-mode", "", "passive or remove (overrides mask_mode)")
	verbosity := flag.CountP("verbose", "v", "Increase verbosity")
	flag.Parse()

	var err error
	configuration, err = storage.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if err := applyFlags(&configuration, *fileIn, *skip, *maxEvents, *maskMode, *verbosity); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	storage.SetConfiguration(configuration)
	storage.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		storage.PrintConfiguration(configuration, logger)
	}

	if err := run(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func applyFlags(config *storage.Configuration, fileIn string, skip int, maxEvents int, maskMode string, verbosity int) error {
	if fileIn != "" {
		config.FileIn = fileIn
	}
	if skip >= 0 {
		config.Skip = skip
	}
	if maxEvents >= 0 {
		config.MaxEvents = maxEvents
	}
	if maskMode != "" {
		mode, err := storage.ParseMaskMode(maskMode)
		if err != nil {
			return err
		}
		config.MaskMode = mode
	}
	config.Verbosity += verbosity
	if config.FileIn == "" {
		return fmt.Errorf("no input file given")
	}
	return config.Validate()
}

func run() error {
	ctx := context.Background()
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

	session, err := storage.OpenForRead(configuration.FileIn, configuration.Sections, configuration.PlaneMask(), opts...)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", configuration.FileIn, err)
	}
	defer session.Close()

	if err := configuration.Apply(session); err != nil {
		return err
	}
	masks, err := loadNoiseMasks()
	if err != nil {
		return err
	}
	if err := session.SetNoiseMasks(masks); err != nil {
		return err
	}

	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Opened %v: %d events, %d planes", session, session.NumEvents(), session.NumPlanes())
		logger.Info(message, "main")
	}

	printed := 0
	for n := configuration.Skip; n < session.NumEvents() && printed < configuration.MaxEvents; n++ {
		if VerbosityLevel > 1 {
			logger.Info(fmt.Sprintf("Reading event %d", n), "main")
		}
		ev, err := session.ReadEvent(n)
		if err != nil {
			return fmt.Errorf("error reading event %d: %w", n, err)
		}
		ev.Print(os.Stdout)
		printed++
	}
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Events printed: %d", printed), "main")
	}

	if summary != nil {
		if err := summary.Report(ctx, logger); err != nil {
			return err
		}
	}
	return session.Close()
}

// loadNoiseMasks reads the masks from the mask file if there is one,
// otherwise from the run conditions database unless it is disabled.
func loadNoiseMasks() (map[int]storage.NoiseMask, error) {
	if configuration.NoiseMaskFile != "" {
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("Reading noise masks from %s", configuration.NoiseMaskFile), "main")
		}
		return storage.ReadNoiseMasks(configuration.NoiseMaskFile)
	}
	if configuration.NoDB {
		return nil, nil
	}

	var err error
	dbConn, err = storage.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
	if err != nil {
		return nil, fmt.Errorf("Error connection to database: %w", err)
	}
	defer dbConn.Close()
	return storage.LoadNoiseMasks(dbConn, configuration.RunNumber)
}
