// Package lock keeps two gitupdate sessions from working on the same
// repository at once.
//
// Each repository maps to one lock file in the system temp directory,
// named after a hash of the repository's absolute path:
//
//	/tmp/gitupdate-<repo-hash>.lock
//
// The file holds the PID of its owner and is protected by an exclusive,
// non-blocking flock. A second session on the same repository fails with
// ErrAlreadyRunning. A lock file whose owner has died is detected through
// its PID and replaced.
//
// A Locker is not safe for concurrent use by multiple goroutines.
//
// Usage:
//
//	locker, err := lock.New("/path/to/repo")
//	if err != nil {
//	    // Handle error
//	}
//	if err := locker.Acquire(); err != nil {
//	    // Often means another session is running
//	}
//	defer locker.Release()
package lock
