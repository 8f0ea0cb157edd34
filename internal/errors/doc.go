// Package errors provides error handling utilities for the gitupdate application.
//
// This package defines the error kinds an update session can end with, and a
// handful of structured error types that carry context about the failing git
// command, lock file, configuration value or session state.
//
// # Error kinds
//
// Every failure an update session reports matches exactly one of these
// sentinels through errors.Is:
//
//   - ErrNotGitRepository: no resolvable HEAD; nothing was touched
//   - ErrSnapshotFailed: the throwaway snapshot commit could not be created
//   - ErrFetchFailed, ErrResetFailed, ErrCleanFailed, ErrReapplyFailed
//   - ErrDivergedHistory: the user declined to continue after a divergence
//   - ErrUserDeclined: the user declined to apply breaking changes
//   - ErrRestoreFailed: rollback itself failed; the snapshot survives under
//     the backup ref and must be recovered manually
//
// All kinds except ErrNotGitRepository are reported only after the repository
// has been restored to its pre-session state.
//
// # Usage
//
// Basic error wrapping:
//
//	if err != nil {
//	    return errors.Wrap(err, "failed to open file")
//	}
//
// Checking a session outcome:
//
//	if errors.Is(err, errors.ErrUserDeclined) {
//	    // nothing changed, the user said no
//	}
//
// # Compatibility
//
// The package is fully compatible with the standard library errors package
// and can be used as a drop-in replacement with additional functionality.
package errors
