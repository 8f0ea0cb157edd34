package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/logger"
	"github.com/stretchr/testify/require"
)

// MockCommandExecutor records commands without running them.
type MockCommandExecutor struct {
	Output              string
	Commands            []*exec.Cmd
	ExecuteFn           func(ctx context.Context, cmd *exec.Cmd) error
	ExecuteWithOutputFn func(ctx context.Context, cmd *exec.Cmd) (string, error)
}

func (m *MockCommandExecutor) Execute(ctx context.Context, cmd *exec.Cmd) error {
	m.Commands = append(m.Commands, cmd)
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, cmd)
	}
	return nil
}

func (m *MockCommandExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	m.Commands = append(m.Commands, cmd)
	if m.ExecuteWithOutputFn != nil {
		return m.ExecuteWithOutputFn(ctx, cmd)
	}
	return m.Output, nil
}

// subcommands returns the git subcommand of every recorded command.
func (m *MockCommandExecutor) subcommands() []string {
	var names []string
	for _, cmd := range m.Commands {
		op, _ := splitCommand(cmd.Args)
		names = append(names, op)
	}
	return names
}

// hookExecutor runs git for real, failing the commands fail selects and
// calling after with the subcommand of every command that ran.
type hookExecutor struct {
	*ExecExecutor
	fail  func(args []string) bool
	after func(op string)
}

func (h *hookExecutor) Execute(ctx context.Context, cmd *exec.Cmd) error {
	_, err := h.ExecuteWithOutput(ctx, cmd)
	return err
}

func (h *hookExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	if h.fail != nil && h.fail(cmd.Args) {
		op, args := splitCommand(cmd.Args)
		return "", gitupdateErrors.NewGitError(op, args, gitupdateErrors.ErrGitOperationFailed, "fatal: unable to write new index file")
	}
	out, err := h.ExecExecutor.ExecuteWithOutput(ctx, cmd)
	if h.after != nil {
		op, _ := splitCommand(cmd.Args)
		h.after(op)
	}
	return out, err
}

func testLogger() *logger.DefaultLogger {
	return logger.NewWithOutput(false, "", false, &bytes.Buffer{}, &bytes.Buffer{})
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// gitCmd runs git in dir and returns its trimmed stdout, failing the test on error.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func configureRepo(t *testing.T, dir string) {
	t.Helper()
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
}

// setupTestRepo creates a repository on master with one commit.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	dir := t.TempDir()
	gitCmd(t, dir, "init", "--quiet")
	gitCmd(t, dir, "symbolic-ref", "HEAD", "refs/heads/master")
	configureRepo(t, dir)

	commitFile(t, dir, "README.md", "hello\n", "Initial commit")
	return dir
}

// commitFile writes and commits one file, returning the new HEAD.
func commitFile(t *testing.T, dir, name, content, message string) string {
	t.Helper()
	writeFile(t, dir, name, content)
	gitCmd(t, dir, "add", name)
	gitCmd(t, dir, "commit", "--quiet", "-m", message)
	return gitCmd(t, dir, "rev-parse", "HEAD")
}

// setupUpstreamAndClone returns an upstream repository and a clone of it
// tracking master through the "origin" remote.
func setupUpstreamAndClone(t *testing.T) (upstream, clone string) {
	t.Helper()
	upstream = setupTestRepo(t)

	clone = filepath.Join(t.TempDir(), "clone")
	gitCmd(t, upstream, "clone", "--quiet", upstream, clone)
	configureRepo(t, clone)
	return upstream, clone
}

func newTestRepo(dir string) (*Runner, *Repo) {
	runner := NewRunner(dir, nil)
	return runner, NewRepo(runner, testLogger())
}
