package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogFilename    = "lsps2d.log"
	defaultMaxLogFileSize = 10
	defaultMaxLogFiles    = 3
	defaultLogLevel       = "info"
)

// config holds every daemon-wide setting parseable from the command line,
// using go-flags struct tags. No config file is read.
type config struct {
	LogDir         string `long:"logdir" description:"Directory to log output."`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in megabytes"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum number of logfiles to keep (0 for no rotation)"`
	DebugLevel     string `long:"debuglevel" description:"Logging level for all subsystems"`

	PromiseSecret string `long:"promisesecret" description:"Hex-encoded 32-byte secret used to sign opening fee promises" required:"true"`
}

// defaultConfig returns a config populated with the daemon's defaults, prior
// to flag parsing overriding any of them.
func defaultConfig() config {
	return config{
		LogDir:         filepath.Join(".", "logs"),
		MaxLogFileSize: defaultMaxLogFileSize,
		MaxLogFiles:    defaultMaxLogFiles,
		DebugLevel:     defaultLogLevel,
	}
}

// loadConfig parses command-line flags into a config seeded with defaults.
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	return &cfg, nil
}
