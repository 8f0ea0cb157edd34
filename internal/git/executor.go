package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
)

// CommandExecutor defines an interface for executing commands
type CommandExecutor interface {
	// Execute runs a command and returns an error if it exits non-zero
	Execute(ctx context.Context, cmd *exec.Cmd) error

	// ExecuteWithOutput runs a command and returns its stdout
	ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.Execute
func (e *ExecExecutor) Execute(ctx context.Context, cmd *exec.Cmd) error {
	_, err := e.ExecuteWithOutput(ctx, cmd)
	return err
}

// ExecuteWithOutput implements CommandExecutor.ExecuteWithOutput
func (e *ExecExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", commandError(cmd, err, "")
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), commandError(cmd, err, stderr.String())
	}

	return stdout.String(), nil
}

// commandError builds a GitError that matches both ErrGitOperationFailed and
// the underlying *exec.ExitError (when there is one).
func commandError(cmd *exec.Cmd, cause error, stderr string) error {
	operation, args := splitCommand(cmd.Args)

	gitErr := gitupdateErrors.NewGitError(operation, args,
		fmt.Errorf("%w: %w", gitupdateErrors.ErrGitOperationFailed, cause), stderr)

	var exitErr *exec.ExitError
	if gitupdateErrors.As(cause, &exitErr) {
		gitErr.ExitCode = exitErr.ExitCode()
	}
	return gitErr
}

// splitCommand drops the executable and the global options that precede the
// subcommand ("-C <dir>", "-c <key=value>") so errors name the real operation.
func splitCommand(argv []string) (string, []string) {
	if len(argv) == 0 {
		return "", nil
	}

	rest := argv[1:]
	for len(rest) > 1 && (rest[0] == "-C" || rest[0] == "-c") {
		rest = rest[2:]
	}
	if len(rest) == 0 {
		return argv[0], nil
	}
	return rest[0], rest[1:]
}
