// Package gitupdate updates a git working tree from its remote without
// losing local work.
//
// Tools and dotfile collections distributed as git checkouts are usually
// updated with a pull, which fails on local edits and gives no warning when
// upstream changes something incompatible. gitupdate runs each update as a
// transaction instead: the working tree is saved in a snapshot commit, the
// remote branch is fetched, the new commits are listed and screened for
// breaking changes, and only then is the tree moved to the new head with the
// local changes reapplied on top. Any failure or a "no" at a prompt puts the
// repository back exactly as it was.
//
// # Quick Start
//
//	cd /path/to/checkout
//	gitupdate
//
// # Key Features
//
//   - Snapshots: tracked, untracked and deleted files all survive an update or a rollback
//   - Breaking changes: commit messages matching configurable patterns must be confirmed
//   - Crash recovery: a snapshot left by an interrupted run is repaired on the next one
//   - Locking: only one session at a time per repository
//
// # Packages
//
//   - cmd/gitupdate: the command-line interface
//   - internal/update: the update session state machine
//   - internal/git: the git operations a session is built from
//   - internal/classify: breaking-change detection
//   - internal/config, internal/logger, internal/lock, internal/journal,
//     internal/report, internal/errors, internal/constants: supporting packages
//
// See the cmd/gitupdate package documentation for flags and configuration.
package gitupdate
