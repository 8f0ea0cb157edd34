package update

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bashhack/gitupdate/internal/classify"
	"github.com/bashhack/gitupdate/internal/constants"
	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/git"
	"github.com/bashhack/gitupdate/internal/logger"
	"github.com/stretchr/testify/require"
)

// scriptedInteractor answers prompts from a fixed script and records them.
type scriptedInteractor struct {
	answers []bool
	prompts []string
}

func (s *scriptedInteractor) PromptYesNo(question string) bool {
	s.prompts = append(s.prompts, question)
	if len(s.answers) == 0 {
		return false
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer
}

// failingExecutor runs git for real except for the listed subcommands,
// which fail as if the network or disk had. after, when set, sees the
// subcommand of every command that ran.
type failingExecutor struct {
	*git.ExecExecutor
	fail  map[string]bool
	after func(op string)
}

func newFailingExecutor(subcommands ...string) *failingExecutor {
	fail := make(map[string]bool, len(subcommands))
	for _, s := range subcommands {
		fail[s] = true
	}
	return &failingExecutor{ExecExecutor: git.NewExecExecutor(), fail: fail}
}

func (f *failingExecutor) Execute(ctx context.Context, cmd *exec.Cmd) error {
	_, err := f.ExecuteWithOutput(ctx, cmd)
	return err
}

func (f *failingExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	if err := f.injected(cmd); err != nil {
		return "", err
	}
	out, err := f.ExecExecutor.ExecuteWithOutput(ctx, cmd)
	if f.after != nil {
		f.after(subcommand(cmd.Args))
	}
	return out, err
}

func (f *failingExecutor) injected(cmd *exec.Cmd) error {
	op := subcommand(cmd.Args)
	if f.fail[op] {
		return gitupdateErrors.NewGitError(op, nil, gitupdateErrors.ErrGitOperationFailed,
			"fatal: unable to access 'https://example.invalid/': Could not resolve host")
	}
	return nil
}

func subcommand(argv []string) string {
	rest := argv[1:]
	for len(rest) > 1 && (rest[0] == "-C" || rest[0] == "-c") {
		rest = rest[2:]
	}
	if len(rest) == 0 {
		return ""
	}
	return rest[0]
}

func testLogger() logger.Logger {
	return logger.NewWithOutput(false, "", false, &bytes.Buffer{}, &bytes.Buffer{})
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

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

func commitFile(t *testing.T, dir, name, content, message string) string {
	t.Helper()
	writeFile(t, dir, name, content)
	gitCmd(t, dir, "add", name)
	gitCmd(t, dir, "commit", "--quiet", "-m", message)
	return gitCmd(t, dir, "rev-parse", "HEAD")
}

// setupUpstreamAndClone returns an upstream repository on master with one
// commit and a clone of it with a committed settings file.
func setupUpstreamAndClone(t *testing.T) (upstream, clone string) {
	t.Helper()
	requireGit(t)

	upstream = t.TempDir()
	gitCmd(t, upstream, "init", "--quiet")
	gitCmd(t, upstream, "symbolic-ref", "HEAD", "refs/heads/master")
	configureRepo(t, upstream)
	commitFile(t, upstream, "settings.conf", "color = auto\n", "Initial commit")

	clone = filepath.Join(t.TempDir(), "clone")
	gitCmd(t, upstream, "clone", "--quiet", upstream, clone)
	configureRepo(t, clone)
	return upstream, clone
}

func newTestOrchestrator(dir string, executor git.CommandExecutor, interactor git.UserInteractor, opts Options) *Orchestrator {
	if opts.Patterns.Len() == 0 {
		opts.Patterns = classify.MustCompile(constants.DefaultBreakingPatterns)
	}
	return New(git.NewRunner(dir, executor), interactor, testLogger(), opts)
}

func defaultOptions() Options {
	return Options{RemoteName: "origin", Branch: "master", KeepLocalChanges: true}
}

// assertPristine checks that no session artifacts are left in the repository.
func assertPristine(t *testing.T, dir string) {
	t.Helper()
	require.Empty(t, gitCmd(t, dir, "for-each-ref", constants.BackupRef), "backup ref left behind")
	require.NotEqual(t, constants.SnapshotMessage, gitCmd(t, dir, "log", "-1", "--format=%s"), "snapshot commit left on HEAD")
	require.Equal(t, "refs/heads/master", gitCmd(t, dir, "symbolic-ref", "HEAD"), "HEAD detached")
	require.Empty(t, gitCmd(t, dir, "diff", "--cached", "--name-only"), "changes left staged")
	require.NoFileExists(t, filepath.Join(dir, ".git", constants.JournalFile), "journal left behind")
}
