// Package main implements gitupdate, a safe self-updater for git working trees.
//
// gitupdate brings a checked-out repository up to date with the head of a
// remote branch while keeping the user's uncommitted work. Before anything is
// touched the working tree is saved in a snapshot commit. New upstream
// commits are listed, and those whose message looks like a breaking change
// have to be confirmed. If anything goes wrong the repository is restored to
// the exact state it was in.
//
// # Basic Usage
//
//	gitupdate                          # update the current repository from origin/master
//	gitupdate --branch main            # follow another branch
//	gitupdate --url https://host/repo  # update from a URL instead of a named remote
//	gitupdate --non-interactive        # decline breaking updates without asking
//	gitupdate check                    # only report whether an update is available
//	gitupdate repair                   # clean up after an interrupted update
//	gitupdate version
//
// # Configuration
//
// Settings are read, in increasing order of precedence, from built-in
// defaults, the user file $XDG_CONFIG_HOME/gitupdate/config.toml, the project
// file .gitupdate.toml in the repository, GITUPDATE_* environment variables
// and command-line flags:
//
//	[remote]
//	name = "origin"
//	branch = "master"
//
//	[breaking]
//	patterns = ["breaking.*change", "^major:"]
//
//	[update]
//	keep-local-changes = true
//
// Environment variables replace dots and dashes with underscores, e.g.
// GITUPDATE_REMOTE_BRANCH=main.
//
// # Exit Codes
//
//   - 0: updated, already up to date, or kept the current version
//   - 1: the update failed or was declined, or the command could not run
//
// # Locking
//
// Only one update or repair may run per repository. A second one exits with
// an error naming the process that holds the lock. Locks left by processes
// that no longer exist are taken over.
package main
