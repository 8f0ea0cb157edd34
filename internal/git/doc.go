// Package git provides the Git operations an update session is built from.
//
// Every operation shells out to the git executable with an explicit argument
// array through a Runner bound to one repository directory. Nothing goes
// through a shell, and branch or remote names that git could read as options
// are rejected before any command runs.
//
// # Core Components
//
// - Runner: runs git subcommands in one repository through a CommandExecutor
// - Repo: validates a repository, snapshots the working tree into a throwaway
// commit and restores it byte for byte
// - Remote: reads the remote head, fetches one branch, resets and cleans the
// working tree and reapplies local changes
// - CommitsBetween: lists the commits a fetch brought in, oldest first
// - UserInteractor: yes/no prompts, with a non-interactive variant that
// always declines
//
// # Snapshots
//
// A snapshot is an ordinary commit titled "tmp", authored as gitupdate and
// pinned under refs/gitupdate/backup until the session ends. Restore resets to
// the pre-session head, replays the snapshot without committing and unstages
// the result, so tracked, untracked and deleted files all come back as they
// were. If a process dies in between, CheckForLeftoverTmpCommit finds the
// commit on the next run and rewinds it.
//
// # Usage
//
//	runner := git.NewRunner("/path/to/repo", nil)
//	repo := git.NewRepo(runner, log)
//
//	handle, err := repo.Validate(ctx)
//	if err != nil {
//	    // Handle error
//	}
//	defer repo.Restore(ctx, handle)
//
// # Concurrency Model
//
// A Runner and the types built on it hold no mutable state, but git itself
// does not tolerate two writers on one repository. Callers serialize
// sessions per repository with the lock package.
//
// # Dependencies
//
// This package requires a functional Git installation in the system PATH.
// rev-parse --is-shallow-repository needs git 2.15 or newer.
package git
