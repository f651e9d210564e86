// Package logging provides structured logging for the tvlink client.
//
// This package wraps zap with convenience functions for the logging patterns
// used across the connectivity layer: connection lifecycle events, discovery
// sweep progress, command dispatch and raw protocol frames.
//
// # Log Levels
//
//   - Debug: frame hex dumps, command dispatch, handshake steps
//   - Info: connections, discovery events, state changes
//   - Warn: credential rejections, retries, socket drops
//   - Error: failed connects, fatal handshake errors
//
// # Configuration
//
// Logging is silent by default so the CLI output stays clean. Set
// TVLINK_LOG_LEVEL=debug (or info/warn/error) to enable output, or call
// Initialize with an explicit level:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
