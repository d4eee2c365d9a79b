package lsps2

import "github.com/btcsuite/btclog"

// log is the package-wide logger used throughout the lsps2 package.
// It is disabled by default and must be wired to a backend with
// UseLogger, mirroring the subsystem-logger convention used across
// the daemon (one btclog.Logger per package, set at startup).
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by this package. It should
// be called before calling any functions from this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
