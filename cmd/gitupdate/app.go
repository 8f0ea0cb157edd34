package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/bashhack/gitupdate/internal/config"
	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/git"
	"github.com/bashhack/gitupdate/internal/lock"
	"github.com/bashhack/gitupdate/internal/logger"
	"github.com/bashhack/gitupdate/internal/report"
	"github.com/bashhack/gitupdate/internal/update"
)

// Updater runs update sessions against one repository.
type Updater interface {
	Run(ctx context.Context) (*update.Result, error)
	Check(ctx context.Context) (*update.CheckResult, error)
	Repair(ctx context.Context) (bool, error)
}

// Locker manages file locking
type Locker interface {
	Acquire() error
	Release() error
}

// AppOptions contains app dependencies.
// Every field is optional; nil fields get a default during initialization.
type AppOptions struct {
	// VersionInfo is reported by the version command.
	VersionInfo config.VersionInfo

	// Logger provides logging functionality for internal and user-facing messages.
	Logger logger.Logger

	// Locker prevents two sessions from updating the same repository.
	Locker Locker

	// Updater performs the update sessions.
	Updater Updater

	// Interactor answers the yes/no prompts. When nil, prompts are read from
	// Stdin, or always declined in non-interactive mode.
	Interactor git.UserInteractor

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// ExecLookPath is used to find the git executable (defaults to exec.LookPath).
	ExecLookPath func(file string) (string, error)

	// IsRepository checks if a path is a Git repository (defaults to git.IsRepository).
	IsRepository func(ctx context.Context, path string) (bool, error)

	// ConfigOptions are applied before the command-line overrides when
	// loading configuration.
	ConfigOptions []config.Option
}

// App is the main gitupdate application.
// It loads configuration, wires the components together and runs one command.
type App struct {
	// Config is loaded when a command runs.
	Config *config.Config

	Logger     logger.Logger
	Locker     Locker
	Updater    Updater
	Interactor git.UserInteractor
	Reporter   *report.Reporter

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	versionInfo   config.VersionInfo
	configOptions []config.Option
	flags         flagValues
	locked        bool

	// done is closed when the command's context is cancelled.
	done <-chan struct{}

	execLookPath func(file string) (string, error)
	isRepository func(ctx context.Context, path string) (bool, error)
}

// NewDefaultApp creates an App wired to the process's standard streams.
func NewDefaultApp(versionInfo config.VersionInfo) *App {
	return NewApp(AppOptions{
		VersionInfo:  versionInfo,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		ExecLookPath: exec.LookPath,
		IsRepository: git.IsRepository,
	})
}

// NewApp creates an App with custom dependencies specified in opts.
func NewApp(opts AppOptions) *App {
	app := &App{
		Logger:        opts.Logger,
		Locker:        opts.Locker,
		Updater:       opts.Updater,
		Interactor:    opts.Interactor,
		Stdin:         opts.Stdin,
		Stdout:        opts.Stdout,
		Stderr:        opts.Stderr,
		versionInfo:   opts.VersionInfo,
		configOptions: opts.ConfigOptions,
		execLookPath:  opts.ExecLookPath,
		isRepository:  opts.IsRepository,
	}

	if app.Stdin == nil {
		app.Stdin = os.Stdin
	}
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.execLookPath == nil {
		app.execLookPath = exec.LookPath
	}
	if app.isRepository == nil {
		app.isRepository = git.IsRepository
	}
	if app.versionInfo == (config.VersionInfo{}) {
		app.versionInfo = config.New().VersionInfo
	}

	return app
}

// Initialize finalizes the configuration and sets up components not
// provided during construction.
func (a *App) Initialize() error {
	if a.Config == nil {
		a.Config = config.New()
	}
	a.Config.VersionInfo = a.versionInfo

	if err := a.Config.Finalize(); err != nil {
		if gitupdateErrors.Is(err, gitupdateErrors.ErrInvalidConfiguration) {
			return err
		}
		return gitupdateErrors.Join(gitupdateErrors.ErrInvalidConfiguration, err)
	}

	if a.Logger == nil {
		a.Logger = logger.NewWithOutput(a.Config.Debug, a.Config.LogFile, a.Config.Verbose, a.Stdout, a.Stderr)
	}

	if a.Interactor == nil {
		if a.Config.NonInteractive {
			a.Interactor = git.NewNonInteractiveInteractor()
		} else {
			interactor := git.NewDefaultInteractor(a.Logger)
			interactor.Reader = a.Stdin
			interactor.Writer = a.Stdout
			interactor.Done = a.done
			a.Interactor = interactor
		}
	}

	if a.Reporter == nil {
		a.Reporter = report.New(a.Stdout, a.Config.Verbose)
	}

	if a.Locker == nil {
		locker, err := lock.New(a.Config.RepoPath)
		if err != nil {
			return gitupdateErrors.Wrap(err, "failed to initialize lock")
		}
		a.Locker = locker
	}

	if a.Updater == nil {
		a.Updater = update.New(git.NewRunner(a.Config.RepoPath, nil), a.Interactor, a.Logger, update.Options{
			RemoteName:       a.Config.RemoteName,
			URL:              a.Config.RemoteURL,
			Branch:           a.Config.Branch,
			Patterns:         a.Config.Patterns,
			KeepLocalChanges: a.Config.KeepLocalChanges,
			Progress:         a.Reporter.Progress,
		})
	}

	return nil
}

// RunUpdate performs one update session and reports its result.
func (a *App) RunUpdate(ctx context.Context) error {
	if err := a.prepare(ctx); err != nil {
		return err
	}

	result, err := a.Updater.Run(ctx)
	a.Reporter.Render(result)
	return err
}

// RunCheck reports whether an update is available without changing anything.
// It does not take the repository lock.
func (a *App) RunCheck(ctx context.Context) error {
	if err := a.verifyRepository(ctx); err != nil {
		return err
	}

	result, err := a.Updater.Check(ctx)
	if err != nil {
		return err
	}
	a.Reporter.RenderCheck(result)
	return nil
}

// RunRepair cleans up after an interrupted session.
func (a *App) RunRepair(ctx context.Context) error {
	if err := a.prepare(ctx); err != nil {
		return err
	}

	repaired, err := a.Updater.Repair(ctx)
	if err != nil {
		return err
	}
	if repaired {
		a.Logger.Success("Repository repaired")
	} else {
		a.Logger.StatusMessage("Nothing to repair")
	}
	return nil
}

// ShowVersion displays version information
func (a *App) ShowVersion() {
	_, _ = fmt.Fprintf(a.Stdout, "gitupdate %s (%s) built on %s\n",
		a.versionInfo.Version,
		a.versionInfo.Commit,
		a.versionInfo.Date)
}

// prepare verifies prerequisites and takes the repository lock.
func (a *App) prepare(ctx context.Context) error {
	if err := a.verifyRepository(ctx); err != nil {
		return err
	}

	if err := a.Locker.Acquire(); err != nil {
		if gitupdateErrors.Is(err, gitupdateErrors.ErrAlreadyRunning) ||
			gitupdateErrors.Is(err, gitupdateErrors.ErrLockAcquisitionFailure) {
			return err
		}
		return gitupdateErrors.Join(gitupdateErrors.ErrLockAcquisitionFailure, err)
	}
	a.locked = true
	return nil
}

func (a *App) verifyRepository(ctx context.Context) error {
	if err := a.checkRequiredCommands(); err != nil {
		return err
	}

	isRepo, err := a.isRepository(ctx, a.Config.RepoPath)
	if err != nil {
		a.Logger.Warning("Failed to check if path is a git repository: %v", err)
		return gitupdateErrors.Join(gitupdateErrors.ErrGitOperationFailed, err)
	}
	if !isRepo {
		return gitupdateErrors.Wrapf(gitupdateErrors.ErrNotGitRepository, "%s", a.Config.RepoPath)
	}
	a.Logger.Info("Git repository verified at %s", a.Config.RepoPath)
	return nil
}

// checkRequiredCommands verifies git is available in PATH
func (a *App) checkRequiredCommands() error {
	if _, err := a.execLookPath(git.DefaultExecutable); err != nil {
		return gitupdateErrors.Errorf("git is not found in PATH. Please install it and try again")
	}
	return nil
}

// Close releases resources held by the App
func (a *App) Close() error {
	var errs []error

	if a.Locker != nil && a.locked {
		if err := a.Locker.Release(); err != nil {
			if a.Logger != nil {
				a.Logger.Error("Failed to release lock during cleanup: %v", err)
			} else {
				_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to release lock during cleanup: %v\n", err)
			}
			errs = append(errs, err)
		}
		a.locked = false
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to close logger: %v\n", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return gitupdateErrors.Join(errs...)
	}
	return nil
}
