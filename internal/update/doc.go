// Package update runs the update transaction: snapshot the working tree,
// fetch the remote branch, inspect the new commits and either apply them or
// put everything back the way it was.
//
// # State machine
//
//	start → validated → snapshotted → fetched → diffed
//	      → {up-to-date | diverged | classified}
//	      → {confirmed → applied | declined → rolled-back} → done
//
// failed is reachable from every step. Once a snapshot exists, a session only
// reaches failed through rolled-back, unless the rollback itself fails, in
// which case the error also matches errors.ErrRestoreFailed and the snapshot
// is left under the backup ref.
//
// # Outcomes
//
// Run reports one of three outcomes: OutcomeApplied, OutcomeNoChanges
// (already current, or the user kept the current version after a
// divergence) and OutcomeFailed. Failures come with a *errors.SessionError
// naming the session and the state it failed in.
//
// # Prompts
//
// Two questions are asked through a git.UserInteractor: whether to keep the
// current version when history has diverged, and whether to apply breaking
// changes. A non-interactive interactor declines both, so unattended runs
// never apply breaking changes.
//
// A session is strictly sequential and an Orchestrator must not run two
// sessions at once. Callers hold the repository lock for the duration.
package update
