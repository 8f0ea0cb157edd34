package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. The session wraps the cause of each failed step
// in one of these so callers can tell which phase broke.
var (
	// ErrNotGitRepository indicates the target path has no resolvable HEAD
	ErrNotGitRepository = errors.New("not a git repository")

	// ErrSnapshotFailed indicates the throwaway snapshot commit could not be created
	ErrSnapshotFailed = errors.New("failed to create snapshot commit")

	// ErrFetchFailed indicates the remote branch could not be fetched
	ErrFetchFailed = errors.New("failed to fetch remote branch")

	// ErrResetFailed indicates the hard reset to the remote head failed
	ErrResetFailed = errors.New("failed to reset to remote head")

	// ErrCleanFailed indicates untracked files could not be removed after a reset
	ErrCleanFailed = errors.New("failed to clean working tree")

	// ErrReapplyFailed indicates local changes could not be carried onto the new head
	ErrReapplyFailed = errors.New("failed to reapply local changes")

	// ErrDivergedHistory indicates the local and remote histories share no linear range
	ErrDivergedHistory = errors.New("local and remote history have diverged")

	// ErrUserDeclined indicates the user answered "no" at a confirmation prompt
	ErrUserDeclined = errors.New("update declined")

	// ErrRestoreFailed indicates the repository could not be returned to its
	// pre-session state. The snapshot is still reachable from the backup ref.
	ErrRestoreFailed = errors.New("failed to restore repository state")

	// ErrLockAcquisitionFailure indicates a lock file could not be acquired
	ErrLockAcquisitionFailure = errors.New("failed to acquire lock")

	// ErrAlreadyRunning indicates another gitupdate session holds the repository lock
	ErrAlreadyRunning = errors.New("another gitupdate session is already running for this repository")

	// ErrGitOperationFailed indicates a git command returned an error
	ErrGitOperationFailed = errors.New("git operation failed")

	// ErrInvalidConfiguration indicates an invalid or conflicting user configuration
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// New returns an error with the given text.
func New(message string) error { return errors.New(message) }

// Errorf formats an error, supporting %w.
func Errorf(format string, args ...interface{}) error { return fmt.Errorf(format, args...) }

// Wrap prefixes err with message. The result matches err under Is and As.
func Wrap(err error, message string) error {
	return &wrapped{msg: message, err: err}
}

// Wrapf is Wrap with a formatted prefix.
func Wrapf(err error, format string, args ...interface{}) error {
	return &wrapped{msg: fmt.Sprintf(format, args...), err: err}
}

type wrapped struct {
	msg string
	err error
}

func (w *wrapped) Error() string {
	if w.err == nil {
		return w.msg
	}
	return w.msg + ": " + w.err.Error()
}
func (w *wrapped) Unwrap() error { return w.err }

// Join combines errs; nil entries are dropped.
func Join(errs ...error) error { return errors.Join(errs...) }

// Is reports whether target is in err's chain.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// GitError describes a failed git invocation: the subcommand, its
// arguments, git's exit code (-1 when git never ran) and its stderr.
type GitError struct {
	Operation string
	Args      []string
	ExitCode  int
	Err       error
	Output    string
}

func (e *GitError) Error() string {
	var b strings.Builder
	b.WriteString("git ")
	b.WriteString(e.Operation)
	b.WriteString(" failed")
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString(": ")
		b.WriteString(out)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GitError) Unwrap() error { return e.Err }

// NewGitError returns a GitError with an unknown exit code. The runner fills
// ExitCode in once git has exited.
func NewGitError(operation string, args []string, err error, output string) *GitError {
	return &GitError{Operation: operation, Args: args, ExitCode: -1, Err: err, Output: output}
}

// ExitCode returns the git exit code carried by err, or -1.
func ExitCode(err error) int {
	if gitErr := (*GitError)(nil); errors.As(err, &gitErr) {
		return gitErr.ExitCode
	}
	return -1
}

// LockError is returned by the repository lock. PID is the holder's
// process ID when it could be read.
type LockError struct {
	LockFile string
	PID      int
	Err      error
}

func (e *LockError) Error() string {
	holder := e.LockFile
	if e.PID > 0 {
		holder = fmt.Sprintf("%s (PID: %d)", e.LockFile, e.PID)
	}
	return fmt.Sprintf("lock error with file %s: %v", holder, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

// NewLockError returns a LockError for lockFile.
func NewLockError(lockFile string, pid int, err error) *LockError {
	return &LockError{LockFile: lockFile, PID: pid, Err: err}
}

// ConfigError names the configuration key that failed validation.
type ConfigError struct {
	Parameter string
	Value     interface{}
	Err       error
}

func (e *ConfigError) Error() string {
	key := e.Parameter
	if e.Value != nil {
		key = fmt.Sprintf("%s = %v", e.Parameter, e.Value)
	}
	return fmt.Sprintf("configuration error for %s: %v", key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError returns a ConfigError for parameter.
func NewConfigError(parameter string, value interface{}, err error) *ConfigError {
	return &ConfigError{Parameter: parameter, Value: value, Err: err}
}

// SessionError records the update-session state in which a failure surfaced.
type SessionError struct {
	SessionID string
	State     string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("update session %s failed in state %s: %v", e.SessionID, e.State, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// NewSessionError returns a SessionError for the session's current state.
func NewSessionError(sessionID, state string, err error) *SessionError {
	return &SessionError{SessionID: sessionID, State: state, Err: err}
}
