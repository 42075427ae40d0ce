// Package logging provides structured logging for dialscan.
//
// This package wraps a zap logger with package-level helpers so that the
// discovery engine, the description client and the event bridge all log
// through the same sink without passing a logger around.
//
// # Log Levels
//
//   - Debug: Datagram dumps, filtered and duplicate locations, HTTP attempts
//   - Info: Session start/stop, devices found, bridge clients
//   - Warn: Non-fatal issues (description fetch failures, rejected starts)
//   - Error: Fatal transport errors
//
// # Configuration
//
// Logging is silent by default so CLI output stays clean. Enable it with a
// flag or the environment:
//
//	DIALSCAN_LOG_LEVEL=debug dialscan scan
//
// or programmatically:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Logs are written to stderr in console format.
package logging
