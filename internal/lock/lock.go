package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
)

// Locker serializes update sessions on one repository with an advisory
// flock on a per-repository lock file.
type Locker struct {
	root     string
	lockFile string
	pid      int
	fd       *os.File
}

// Option configures a Locker.
type Option func(*Locker)

// WithDir places the lock file in dir instead of the system temp directory.
func WithDir(dir string) Option {
	return func(l *Locker) {
		l.lockFile = filepath.Join(dir, filepath.Base(l.lockFile))
	}
}

// New creates a Locker for the repository at repoRoot. Paths naming the same
// directory map to the same lock file.
func New(repoRoot string, opts ...Option) (*Locker, error) {
	if runtime.GOOS == "windows" {
		return nil, gitupdateErrors.NewLockError("", 0,
			gitupdateErrors.Wrap(gitupdateErrors.ErrLockAcquisitionFailure,
				"gitupdate only supports Unix-like operating systems"))
	}

	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, gitupdateErrors.NewLockError("", 0,
			gitupdateErrors.Join(gitupdateErrors.ErrLockAcquisitionFailure, err))
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	key := fmt.Sprintf("%x", sha256.Sum256([]byte(abs)))[:16]
	l := &Locker{
		root:     abs,
		lockFile: filepath.Join(os.TempDir(), "gitupdate-"+key+".lock"),
		pid:      os.Getpid(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the lock file path
func (l *Locker) Path() string {
	return l.lockFile
}

// Held reports whether this Locker currently holds the lock.
func (l *Locker) Held() bool {
	return l.fd != nil
}

// Acquire takes the lock without blocking. If another live process holds it,
// the returned error matches ErrAlreadyRunning. A lock file left behind by a
// dead process is taken over.
func (l *Locker) Acquire() error {
	if l.fd != nil {
		return nil
	}

	fd, err := os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err == nil {
		return l.claim(fd, "failed to lock new lock file")
	}
	if !os.IsExist(err) {
		return l.fail(0, err, "failed to create lock file")
	}

	fd, err = os.OpenFile(l.lockFile, os.O_RDWR, 0644)
	if err != nil {
		return l.fail(0, err, "failed to open existing lock file")
	}
	if err := flock(fd); err != nil {
		_ = fd.Close()
		if wouldBlock(err) {
			return l.contended()
		}
		return l.fail(0, err, "failed to lock existing lock file")
	}
	return l.own(fd)
}

// claim locks a freshly created lock file and records our PID in it.
func (l *Locker) claim(fd *os.File, msg string) error {
	if err := flock(fd); err != nil {
		_ = fd.Close()
		return l.fail(0, err, msg)
	}
	return l.own(fd)
}

func (l *Locker) own(fd *os.File) error {
	if err := fd.Truncate(0); err != nil {
		_ = fd.Close()
		return l.fail(l.pid, err, "failed to truncate lock file")
	}
	if _, err := fd.WriteAt([]byte(strconv.Itoa(l.pid)), 0); err != nil {
		_ = fd.Close()
		return l.fail(l.pid, err, "failed to write PID to lock file")
	}
	l.fd = fd
	return nil
}

// contended handles a lock file someone else has flocked. The holder is
// normally alive; if its PID is gone the file is replaced.
func (l *Locker) contended() error {
	holder, err := l.holderPID()
	if err != nil {
		return gitupdateErrors.NewLockError(l.lockFile, 0,
			gitupdateErrors.Wrap(gitupdateErrors.ErrAlreadyRunning, err.Error()))
	}
	if isProcessRunning(holder) {
		return gitupdateErrors.NewLockError(l.lockFile, holder, gitupdateErrors.ErrAlreadyRunning)
	}

	if err := os.Remove(l.lockFile); err != nil && !os.IsNotExist(err) {
		return l.fail(holder, err, fmt.Sprintf("failed to remove stale lock file of PID %d", holder))
	}

	fd, err := os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return gitupdateErrors.NewLockError(l.lockFile, 0, gitupdateErrors.ErrAlreadyRunning)
		}
		return l.fail(0, err, "failed to recreate lock file")
	}
	return l.claim(fd, "failed to lock recreated lock file")
}

func (l *Locker) holderPID() (int, error) {
	data, err := os.ReadFile(l.lockFile)
	if err != nil {
		return 0, gitupdateErrors.Wrap(err, "failed to read lock file")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, gitupdateErrors.Wrap(err, "invalid PID in lock file")
	}
	return pid, nil
}

func (l *Locker) fail(pid int, err error, msg string) error {
	return gitupdateErrors.NewLockError(l.lockFile, pid,
		gitupdateErrors.Join(gitupdateErrors.ErrLockAcquisitionFailure, gitupdateErrors.Wrap(err, msg)))
}

// Release unlocks and removes the lock file. Releasing a lock that is not
// held is a no-op.
func (l *Locker) Release() error {
	if l.fd == nil {
		return nil
	}

	var errs []error
	if err := syscall.Flock(int(l.fd.Fd()), syscall.LOCK_UN); err != nil {
		errs = append(errs, gitupdateErrors.Wrap(err, "failed to unlock"))
	}
	if err := l.fd.Close(); err != nil {
		errs = append(errs, gitupdateErrors.Wrap(err, "failed to close lock file"))
	}
	l.fd = nil

	if err := os.Remove(l.lockFile); err != nil && !os.IsNotExist(err) {
		errs = append(errs, gitupdateErrors.Wrap(err, "failed to remove lock file"))
	}

	if len(errs) > 0 {
		return gitupdateErrors.NewLockError(l.lockFile, l.pid, gitupdateErrors.Join(errs...))
	}
	return nil
}

func flock(fd *os.File) error {
	return syscall.Flock(int(fd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

// wouldBlock checks both EWOULDBLOCK and EAGAIN; older Unix systems report
// them as distinct codes.
func wouldBlock(err error) bool {
	return gitupdateErrors.Is(err, syscall.EWOULDBLOCK) || gitupdateErrors.Is(err, syscall.EAGAIN)
}

// isProcessRunning checks if a process exists using signal 0
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
