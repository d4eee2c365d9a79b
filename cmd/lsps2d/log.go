package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/breez/lsps2/lsps2"
)

// logWriter writes to both stdout and an (optionally nil) log rotator pipe,
// mirroring the daemon's standard two-sink logging arrangement.
type logWriter struct {
	rotatorPipe *io.PipeWriter
}

func (w *logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.rotatorPipe != nil {
		w.rotatorPipe.Write(p)
	}
	return len(p), nil
}

var (
	writer = &logWriter{}

	// backendLog is the logging backend every subsystem logger is created
	// from. It must not be used before initLogRotator runs.
	backendLog = btclog.NewBackend(writer)

	// logRotatorHandle is the active log rotator, set by initLogRotator.
	logRotatorHandle *rotator.Rotator

	lsp2Log = backendLog.Logger("LSP2")
	clicLog = backendLog.Logger("CLIC")
	chmgLog = backendLog.Logger("CHMG")

	subsystemLoggers = map[string]btclog.Logger{
		"LSP2": lsp2Log,
		"CLIC": clicLog,
		"CHMG": chmgLog,
	}
)

func init() {
	lsps2.UseLogger(lsp2Log)
}

// initLogRotator creates a rotating log file at logFile, sized in
// megabytes, and wires it into every subsystem logger's output.
func initLogRotator(logFile string, maxLogFileSizeMB int, maxLogFiles int) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	r, err := rotator.New(logFile, int64(maxLogFileSizeMB*1024*1024), false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	writer.rotatorPipe = pw
	logRotatorHandle = r
	return nil
}

// setLogLevel sets the level of a single subsystem, ignoring unknown names.
func setLogLevel(subsystemID, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels applies logLevel to every subsystem logger.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
