package seed

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/cityconnect/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends log output to both stdout and a file. If logFile is
// empty, a timestamped filename is generated. The returned function closes
// the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	if logFile == "" {
		logFile = "seed_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file.Close, nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`CityConnect Roster Seeder
=========================

Stores a roster in a running dispatch service, optionally sends status
events, then requests suggestions and checks that every response only lists
available technicians, keeps scores within [0, 100] and respects the ranking
order.

Usage:
  go run ./cmd/seed-roster [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -technicians int    Technicians to generate (default 500)
  -roster string      YAML roster file; replaces generation
  -lat, -lng float    Center of the generated roster (default Tunis)
  -radius float       Radius in km of the generated roster (default 15)
  -samples int        Suggestion requests to verify (default 200)
  -events int         Status events to send (default 0)
  -kafka string       Comma separated brokers; send events to Kafka instead of HTTP
  -topic string       Kafka topic (default "technician-status")
  -workers int        Concurrent requests (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 10s)
  -seed uint          Random seed (default 1)
  -log string         Log file (default: seed_log_TIMESTAMP.log)
  -verbose            Enable verbose logging
  -help               Show this help message

Examples:
  go run ./cmd/seed-roster -technicians 2000 -samples 500
  go run ./cmd/seed-roster -roster roster.yaml -events 1000
  go run ./cmd/seed-roster -events 5000 -kafka localhost:9092
`)
}
