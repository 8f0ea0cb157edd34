// Package logger provides logging facilities for the gitupdate application.
//
// Two audiences are served by one Logger:
//
//   - the debug log file (Info, Warning, Error), written with log/slog's text
//     handler when debug logging is enabled
//   - the person running the update (InfoToUser, WarningToUser, Success,
//     StatusMessage), written to stdout with colour from fatih/color
//
// Colour is turned off automatically when stdout is not a terminal or when
// NO_COLOR is set, so output captured by tests and pipes stays plain.
//
// # Usage
//
//	log := logger.New(cfg.Debug, cfg.LogFile, cfg.Verbose)
//	defer log.Close()
//
//	log.Info("fetching %s", branch)          // log file only
//	log.WarningToUser("breaking changes found") // terminal + log file
//
// # Thread Safety
//
// DefaultLogger guards its writers with a mutex and is safe for concurrent use.
package logger
