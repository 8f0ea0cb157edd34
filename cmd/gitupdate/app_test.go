package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bashhack/gitupdate/internal/config"
	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/logger"
	"github.com/bashhack/gitupdate/internal/update"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// MockLocker records lock calls.
type MockLocker struct {
	AcquireErr error
	ReleaseErr error
	Acquired   int
	Released   int
}

func (m *MockLocker) Acquire() error {
	m.Acquired++
	return m.AcquireErr
}

func (m *MockLocker) Release() error {
	m.Released++
	return m.ReleaseErr
}

// MockUpdater returns canned results.
type MockUpdater struct {
	Result      *update.Result
	RunErr      error
	CheckResult *update.CheckResult
	CheckErr    error
	Repaired    bool
	RepairErr   error
	Calls       []string
}

func (m *MockUpdater) Run(context.Context) (*update.Result, error) {
	m.Calls = append(m.Calls, "run")
	return m.Result, m.RunErr
}

func (m *MockUpdater) Check(context.Context) (*update.CheckResult, error) {
	m.Calls = append(m.Calls, "check")
	return m.CheckResult, m.CheckErr
}

func (m *MockUpdater) Repair(context.Context) (bool, error) {
	m.Calls = append(m.Calls, "repair")
	return m.Repaired, m.RepairErr
}

type testApp struct {
	*App
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	locker  *MockLocker
	updater *MockUpdater
	repo    string
}

// newTestApp builds an App whose configuration comes only from flags and
// files inside a temporary directory.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	repo := t.TempDir()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	locker := &MockLocker{}
	updater := &MockUpdater{}

	app := NewApp(AppOptions{
		VersionInfo: config.VersionInfo{Version: "v1.2.3", Commit: "abc123", Date: "2024-03-01"},
		Logger:      logger.NewWithOutput(false, "", true, stdout, stderr),
		Locker:      locker,
		Updater:     updater,
		Stdin:       strings.NewReader(""),
		Stdout:      stdout,
		Stderr:      stderr,
		ExecLookPath: func(file string) (string, error) {
			return "/usr/bin/" + file, nil
		},
		IsRepository: func(context.Context, string) (bool, error) {
			return true, nil
		},
		ConfigOptions: []config.Option{
			config.WithWorkingDir(repo),
			config.WithUserConfig(filepath.Join(repo, "no-such-config.toml")),
		},
	})

	return &testApp{App: app, stdout: stdout, stderr: stderr, locker: locker, updater: updater, repo: repo}
}

func TestVersion(t *testing.T) {
	app := newTestApp(t)

	code := app.Execute(context.Background(), []string{"version"})

	assert.Equal(t, 0, code)
	assert.Equal(t, "gitupdate v1.2.3 (abc123) built on 2024-03-01\n", app.stdout.String())
	assert.Zero(t, app.locker.Acquired)
	assert.Nil(t, app.Config, "version does not load configuration")
}

func TestRunUpdateScenarios(t *testing.T) {
	tests := map[string]struct {
		setup      func(app *testApp)
		wantCode   int
		wantStdout string
		wantStderr string
		wantLocked bool
		wantCalls  []string
	}{
		"Applied": {
			setup: func(app *testApp) {
				app.updater.Result = &update.Result{Outcome: update.OutcomeApplied, Remote: "origin", Branch: "master", RemoteHead: "0123456789"}
			},
			wantCode:   0,
			wantStdout: "Updated to 01234567.",
			wantLocked: true,
			wantCalls:  []string{"run"},
		},
		"UpToDate": {
			setup: func(app *testApp) {
				app.updater.Result = &update.Result{Outcome: update.OutcomeNoChanges, UpToDate: true}
			},
			wantCode:   0,
			wantStdout: "Already up to date.",
			wantLocked: true,
			wantCalls:  []string{"run"},
		},
		"SessionFailureIsOnlyReportedOnce": {
			setup: func(app *testApp) {
				app.updater.Result = &update.Result{Err: gitupdateErrors.ErrUserDeclined}
				app.updater.RunErr = gitupdateErrors.NewSessionError("id", "declined", gitupdateErrors.ErrUserDeclined)
			},
			wantCode:   1,
			wantStdout: "Update cancelled.",
			wantLocked: true,
			wantCalls:  []string{"run"},
		},
		"MissingGit": {
			setup: func(app *testApp) {
				app.execLookPath = func(string) (string, error) {
					return "", errors.New("not found")
				}
			},
			wantCode:   1,
			wantStderr: "git is not found in PATH",
		},
		"NotARepository": {
			setup: func(app *testApp) {
				app.isRepository = func(context.Context, string) (bool, error) {
					return false, nil
				}
			},
			wantCode:   1,
			wantStderr: gitupdateErrors.ErrNotGitRepository.Error(),
		},
		"AlreadyRunning": {
			setup: func(app *testApp) {
				app.locker.AcquireErr = gitupdateErrors.NewLockError("/tmp/x.lock", 42, gitupdateErrors.ErrAlreadyRunning)
			},
			wantCode:   1,
			wantStderr: "already running",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			app := newTestApp(t)
			tc.setup(app)

			code := app.Execute(context.Background(), nil)

			assert.Equal(t, tc.wantCode, code)
			if tc.wantStdout != "" {
				assert.Contains(t, app.stdout.String(), tc.wantStdout)
			}
			if tc.wantStderr != "" {
				assert.Contains(t, app.stderr.String(), tc.wantStderr)
			} else {
				assert.NotContains(t, app.stderr.String(), "Error:")
			}
			if tc.wantLocked {
				assert.Equal(t, 1, app.locker.Acquired)
				assert.Equal(t, 1, app.locker.Released)
			} else {
				assert.Zero(t, app.locker.Released)
			}
			assert.Equal(t, tc.wantCalls, app.updater.Calls)
		})
	}
}

func TestFlagsOverrideConfiguration(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(app.repo, config.ProjectConfigFile),
		[]byte("[remote]\nname = \"upstream\"\nbranch = \"stable\"\n"), 0o644))
	app.updater.Result = &update.Result{Outcome: update.OutcomeNoChanges, UpToDate: true}

	code := app.Execute(context.Background(), []string{
		"--branch", "main", "--non-interactive", "--quiet", "--keep-local-changes=false",
	})
	require.Equal(t, 0, code, app.stderr.String())

	cfg := app.Config
	assert.Equal(t, app.repo, cfg.RepoPath)
	assert.Equal(t, "upstream", cfg.RemoteName, "project file applies when the flag is absent")
	assert.Equal(t, "main", cfg.Branch)
	assert.True(t, cfg.NonInteractive)
	assert.False(t, cfg.Verbose)
	assert.False(t, cfg.KeepLocalChanges)
	assert.Equal(t, "v1.2.3", cfg.VersionInfo.Version)
}

func TestUserConfigFlag(t *testing.T) {
	app := newTestApp(t)
	userConfig := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(userConfig, []byte("[remote]\nurl = \"https://example.com/repo.git\"\n"), 0o644))
	app.updater.CheckResult = &update.CheckResult{Source: "https://example.com/repo.git", Branch: "master"}

	code := app.Execute(context.Background(), []string{"check", "--config", userConfig})
	require.Equal(t, 0, code, app.stderr.String())

	assert.Equal(t, "https://example.com/repo.git", app.Config.RemoteURL)
}

func TestInvalidConfiguration(t *testing.T) {
	app := newTestApp(t)

	code := app.Execute(context.Background(), []string{"--branch", "bad..name"})

	assert.Equal(t, 1, code)
	assert.Contains(t, app.stderr.String(), gitupdateErrors.ErrInvalidConfiguration.Error())
	assert.Empty(t, app.updater.Calls)
	assert.Zero(t, app.locker.Acquired)
}

func TestCheckCommand(t *testing.T) {
	app := newTestApp(t)
	app.updater.CheckResult = &update.CheckResult{
		Source: "origin", Branch: "master",
		LocalHead: "aaaaaaaaaa", RemoteHead: "bbbbbbbbbb", UpdateAvailable: true,
	}

	code := app.Execute(context.Background(), []string{"check"})

	assert.Equal(t, 0, code)
	assert.Contains(t, app.stdout.String(), "Update available: aaaaaaaa -> bbbbbbbb")
	assert.Zero(t, app.locker.Acquired, "check is read-only and takes no lock")
	assert.Equal(t, []string{"check"}, app.updater.Calls)
}

func TestCheckCommandFailure(t *testing.T) {
	app := newTestApp(t)
	app.updater.CheckErr = gitupdateErrors.Wrap(gitupdateErrors.ErrFetchFailed, "branch master not found on origin")

	code := app.Execute(context.Background(), []string{"check"})

	assert.Equal(t, 1, code)
	assert.Contains(t, app.stderr.String(), "branch master not found on origin")
}

func TestRepairCommand(t *testing.T) {
	tests := map[string]struct {
		repaired bool
		err      error
		wantCode int
		want     string
	}{
		"Repaired":    {repaired: true, want: "Repository repaired"},
		"NothingToDo": {want: "Nothing to repair"},
		"Failed":      {err: gitupdateErrors.ErrRestoreFailed, wantCode: 1, want: gitupdateErrors.ErrRestoreFailed.Error()},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			app := newTestApp(t)
			app.updater.Repaired = tc.repaired
			app.updater.RepairErr = tc.err

			code := app.Execute(context.Background(), []string{"repair"})

			assert.Equal(t, tc.wantCode, code)
			assert.Contains(t, app.stdout.String()+app.stderr.String(), tc.want)
			assert.Equal(t, 1, app.locker.Acquired)
			assert.Equal(t, 1, app.locker.Released)
		})
	}
}

func TestUnknownArguments(t *testing.T) {
	app := newTestApp(t)

	code := app.Execute(context.Background(), []string{"extra"})

	assert.Equal(t, 1, code)
	assert.Empty(t, app.updater.Calls)
}

func TestCloseReportsReleaseFailure(t *testing.T) {
	app := newTestApp(t)
	app.locker.ReleaseErr = errors.New("disk gone")
	app.updater.Result = &update.Result{Outcome: update.OutcomeNoChanges, UpToDate: true}

	code := app.Execute(context.Background(), nil)

	assert.Equal(t, 0, code)
	assert.Contains(t, app.stderr.String(), "Error during cleanup")
	assert.Contains(t, app.stderr.String(), "disk gone")
}
