package git

import (
	"context"
	"os"
	"os/exec"
	"strings"

	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
)

// DefaultExecutable is the git binary looked up on PATH.
const DefaultExecutable = "git"

// Runner invokes git with explicit argument arrays against one fixed
// working directory. Nothing is ever passed through a shell, so branch names
// and URLs coming from configuration cannot inject commands.
type Runner struct {
	// Dir is the repository root every command runs in.
	Dir string

	// Executable is the git binary to run.
	Executable string

	executor CommandExecutor
}

// NewRunner creates a Runner for dir. A nil executor selects ExecExecutor.
func NewRunner(dir string, executor CommandExecutor) *Runner {
	if executor == nil {
		executor = NewExecExecutor()
	}
	return &Runner{
		Dir:        dir,
		Executable: DefaultExecutable,
		executor:   executor,
	}
}

// Run executes a git command and discards its output.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	return r.executor.Execute(ctx, r.command(ctx, args))
}

// Output executes a git command and returns its stdout with surrounding
// whitespace removed.
func (r *Runner) Output(ctx context.Context, args ...string) (string, error) {
	out, err := r.executor.ExecuteWithOutput(ctx, r.command(ctx, args))
	return strings.TrimSpace(out), err
}

// RawOutput executes a git command and returns its stdout untouched.
func (r *Runner) RawOutput(ctx context.Context, args ...string) (string, error) {
	return r.executor.ExecuteWithOutput(ctx, r.command(ctx, args))
}

func (r *Runner) command(ctx context.Context, args []string) *exec.Cmd {
	allArgs := append([]string{"-C", r.Dir}, args...)
	cmd := exec.CommandContext(ctx, r.Executable, allArgs...)
	cmd.Dir = r.Dir
	// Messages we parse (clean's "Removing ...") must not be translated.
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	return cmd
}

// IsRepository checks if the given path is inside a git work tree.
// If git reports exit code 128, the path is not a repository and (false, nil)
// is returned. For other errors (git not found, permission issues, etc.) the
// error is returned.
func IsRepository(ctx context.Context, path string) (bool, error) {
	runner := NewRunner(path, nil)
	if err := runner.Run(ctx, "rev-parse", "--is-inside-work-tree"); err != nil {
		if gitupdateErrors.ExitCode(err) == 128 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
