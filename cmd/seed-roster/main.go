package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/cityconnect/internal/domain/geo"
	"github.com/okian/cityconnect/internal/seed"
)

// Default configuration constants.
const (
	defaultTechnicians = 500
	defaultSamples     = 200
	defaultRadiusKm    = 15
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 10 * time.Minute
	defaultLatitude    = 36.8065
	defaultLongitude   = 10.1815
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		technicians = flag.Int("technicians", defaultTechnicians, "Technicians to generate")
		rosterFile  = flag.String("roster", "", "YAML roster file; replaces generation")
		lat         = flag.Float64("lat", defaultLatitude, "Latitude of the roster center")
		lng         = flag.Float64("lng", defaultLongitude, "Longitude of the roster center")
		radius      = flag.Float64("radius", defaultRadiusKm, "Radius in km of the generated roster")
		samples     = flag.Int("samples", defaultSamples, "Suggestion requests to verify")
		events      = flag.Int("events", 0, "Status events to send")
		brokers     = flag.String("kafka", "", "Comma separated Kafka brokers")
		topic       = flag.String("topic", "technician-status", "Kafka topic")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent requests")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seedValue   = flag.Uint64("seed", 1, "Random seed")
		logFile     = flag.String("log", "", "Log file (default: seed_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	center, err := geo.New(*lat, *lng)
	if err != nil {
		os.Stderr.WriteString("Invalid center: " + err.Error() + "\n")
		os.Exit(2)
	}

	closeLog, err := seed.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &seed.Config{
		BaseURL:     *baseURL,
		Technicians: *technicians,
		RosterFile:  *rosterFile,
		Center:      center,
		RadiusKm:    *radius,
		Samples:     *samples,
		Events:      *events,
		KafkaTopic:  *topic,
		Workers:     *workers,
		Timeout:     *timeout,
		Seed:        *seedValue,
		Verbose:     *verbose,
	}
	if *brokers != "" {
		cfg.KafkaBrokers = strings.Split(*brokers, ",")
	}

	if _, err := seed.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		_ = closeLog()
		cancel()
		os.Exit(1)
	}
}
