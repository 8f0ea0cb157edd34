package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/bashhack/gitupdate/internal/constants"
	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/logger"
)

// RepoHandle identifies the points in history one update session can return to.
// It is owned by exactly one session.
type RepoHandle struct {
	// Root is the repository working directory.
	Root string

	// CurrentHead is the commit HEAD pointed at before the session began.
	// Every rollback resets to it.
	CurrentHead string

	// BackupSHA is the snapshot commit holding the uncommitted and untracked
	// changes present when the session began. Non-empty once a snapshot exists.
	BackupSHA string

	// RemoteSHA is the fetched tip of the remote branch, once known.
	RemoteSHA string

	// Dirty reports whether the snapshot captured any changes at all.
	Dirty bool
}

// HasSnapshot reports whether a snapshot commit has been taken.
func (h *RepoHandle) HasSnapshot() bool {
	return h != nil && h.BackupSHA != ""
}

// Repo validates a repository, snapshots its working tree and restores it.
type Repo struct {
	runner *Runner
	logger logger.Logger
}

// NewRepo creates a Repo that issues commands through runner.
func NewRepo(runner *Runner, log logger.Logger) *Repo {
	return &Repo{runner: runner, logger: log}
}

// Root returns the repository directory.
func (r *Repo) Root() string {
	return r.runner.Dir
}

// LocalHead resolves HEAD. An empty string with a nil error is never returned:
// a repository without a resolvable HEAD yields ErrNotGitRepository.
func (r *Repo) LocalHead(ctx context.Context) (string, error) {
	head, err := r.runner.Output(ctx, "rev-parse", "--verify", "--quiet", "HEAD^{commit}")
	if err != nil || head == "" {
		if err == nil {
			err = gitupdateErrors.New("HEAD did not resolve")
		}
		return "", gitupdateErrors.Join(gitupdateErrors.ErrNotGitRepository, err)
	}
	return head, nil
}

// Validate resolves HEAD and immediately snapshots the working tree.
//
// When the snapshot cannot be taken, whatever was done is undone and an
// error matching both ErrNotGitRepository and ErrSnapshotFailed is returned.
func (r *Repo) Validate(ctx context.Context) (*RepoHandle, error) {
	head, err := r.LocalHead(ctx)
	if err != nil {
		r.logger.Warning("No resolvable HEAD in %s: %v", r.Root(), err)
		return nil, err
	}

	handle := &RepoHandle{Root: r.Root(), CurrentHead: head}

	if err := r.Snapshot(ctx, handle); err != nil {
		r.logger.Error("Failed to snapshot working tree: %v", err)
		if restoreErr := r.Restore(context.WithoutCancel(ctx), handle); restoreErr != nil {
			return nil, gitupdateErrors.Join(gitupdateErrors.ErrNotGitRepository, err, restoreErr)
		}
		return nil, gitupdateErrors.Join(gitupdateErrors.ErrNotGitRepository, err)
	}

	r.logger.Info("Validated %s at %s (snapshot %s, dirty=%t)", r.Root(), head, handle.BackupSHA, handle.Dirty)
	return handle, nil
}

// Snapshot commits every tracked and untracked change as a throwaway commit
// on top of handle.CurrentHead and pins it under the backup ref.
func (r *Repo) Snapshot(ctx context.Context, handle *RepoHandle) error {
	status, err := r.runner.Output(ctx, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrSnapshotFailed, err)
	}
	handle.Dirty = status != ""

	if err := r.runner.Run(ctx, "add", "--all"); err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrSnapshotFailed, err)
	}

	commitArgs := withIdentity("commit", "--quiet", "--allow-empty", "--no-verify", "--no-gpg-sign",
		"-m", constants.SnapshotMessage)
	if err := r.runner.Run(ctx, commitArgs...); err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrSnapshotFailed, err)
	}

	backup, err := r.runner.Output(ctx, "rev-parse", "--verify", "HEAD")
	if err != nil || backup == "" || backup == handle.CurrentHead {
		return gitupdateErrors.Wrapf(gitupdateErrors.ErrSnapshotFailed, "snapshot commit did not resolve: %v", err)
	}
	handle.BackupSHA = backup

	if err := r.runner.Run(ctx, "update-ref", "-m", "gitupdate snapshot", constants.BackupRef, backup); err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrSnapshotFailed, err)
	}

	return nil
}

// Restore puts the working tree back exactly as it was before Validate:
// hard reset to CurrentHead, replay the snapshot without committing, unstage.
//
// Before a snapshot commit is recorded only a mixed reset to CurrentHead is
// done: it drops a snapshot commit that landed without being recorded and
// unstages, while a hard reset would destroy changes never saved anywhere.
//
// On failure the backup ref is kept and ErrRestoreFailed is returned.
func (r *Repo) Restore(ctx context.Context, handle *RepoHandle) error {
	if handle == nil || handle.CurrentHead == "" {
		return nil
	}

	if !handle.HasSnapshot() {
		if err := r.runner.Run(ctx, "reset", "--quiet", handle.CurrentHead); err != nil {
			return r.restoreFailed(handle, "unstage", err)
		}
		return nil
	}

	r.logger.Info("Restoring %s to %s", r.Root(), handle.CurrentHead)

	if err := r.runner.Run(ctx, "reset", "--hard", "--quiet", handle.CurrentHead); err != nil {
		return r.restoreFailed(handle, "reset --hard", err)
	}

	if handle.Dirty {
		if err := r.runner.Run(ctx, withIdentity("cherry-pick", "--no-commit", handle.BackupSHA)...); err != nil {
			return r.restoreFailed(handle, "cherry-pick --no-commit", err)
		}
		if err := r.runner.Run(ctx, "reset", "--quiet"); err != nil {
			return r.restoreFailed(handle, "unstage", err)
		}
	}

	r.Discard(ctx, handle)
	return nil
}

func (r *Repo) restoreFailed(handle *RepoHandle, step string, err error) error {
	r.logger.Error("Restore failed during %s: %v", step, err)
	if handle.HasSnapshot() {
		r.logger.WarningToUser("Your uncommitted changes are preserved in %s (%s)", constants.BackupRef, handle.BackupSHA)
	}
	return gitupdateErrors.Join(
		gitupdateErrors.Wrapf(gitupdateErrors.ErrRestoreFailed, "%s (snapshot kept at %s)", step, constants.BackupRef),
		err,
	)
}

// Discard drops the backup ref once the snapshot is no longer needed.
// A missing ref is not an error.
func (r *Repo) Discard(ctx context.Context, handle *RepoHandle) {
	if err := r.runner.Run(ctx, "update-ref", "-d", constants.BackupRef); err != nil {
		r.logger.Warning("Failed to delete %s: %v", constants.BackupRef, err)
	}
}

// Keep pins the snapshot under its own ref in KeptRefPrefix so later sessions
// cannot overwrite it, and returns that ref. The backup ref is dropped.
func (r *Repo) Keep(ctx context.Context, handle *RepoHandle) (string, error) {
	ref := constants.KeptRefPrefix + handle.BackupSHA
	if err := r.runner.Run(ctx, "update-ref", "-m", "gitupdate kept snapshot", ref, handle.BackupSHA); err != nil {
		return "", err
	}
	r.Discard(ctx, handle)
	return ref, nil
}

// RecoverSnapshot puts the changes held by a snapshot that a failed restore
// left under the backup ref back into the working tree. head is the commit
// the snapshot was taken on. It only acts while HEAD is still at head, the
// snapshot's parent is head and the working tree is clean; otherwise, or if
// reapplying fails, ErrRestoreFailed is returned and the snapshot is kept.
func (r *Repo) RecoverSnapshot(ctx context.Context, head, sha string) error {
	current, err := r.LocalHead(ctx)
	if err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrRestoreFailed, err)
	}
	if current != head {
		return recoveryBlocked(sha, fmt.Sprintf("HEAD moved from %s to %s", shortSHA(head), shortSHA(current)))
	}

	status, err := r.runner.Output(ctx, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrRestoreFailed, err)
	}
	if status != "" {
		return recoveryBlocked(sha, "the working tree has uncommitted changes")
	}

	out, err := r.runner.Output(ctx, "rev-parse", sha+"^", sha+"^{tree}", sha+"^^{tree}")
	if err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrRestoreFailed, err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 3 || lines[0] != head {
		return recoveryBlocked(sha, "the snapshot was not taken on "+shortSHA(head))
	}

	handle := &RepoHandle{Root: r.Root(), CurrentHead: head, BackupSHA: sha, Dirty: lines[1] != lines[2]}
	if err := r.Restore(ctx, handle); err != nil {
		// The tree was clean before the replay started.
		if resetErr := r.runner.Run(ctx, "reset", "--hard", "--quiet", head); resetErr != nil {
			r.logger.Warning("Failed to clean up partial snapshot replay: %v", resetErr)
		}
		return err
	}
	r.logger.Info("Recovered snapshot %s onto %s", sha, head)
	return nil
}

func recoveryBlocked(sha, reason string) error {
	return gitupdateErrors.Wrapf(gitupdateErrors.ErrRestoreFailed,
		"cannot reapply snapshot %s automatically (%s); recover it with 'git cherry-pick --no-commit %s && git reset', then 'git update-ref -d %s'",
		shortSHA(sha), reason, sha, constants.BackupRef)
}

// SavedSnapshot returns the commit pinned under the backup ref, if any.
func (r *Repo) SavedSnapshot(ctx context.Context) (string, bool) {
	sha, err := r.runner.Output(ctx, "rev-parse", "--verify", "--quiet", constants.BackupRef+"^{commit}")
	if err != nil || sha == "" {
		return "", false
	}
	return sha, true
}

// IsShallow reports whether the repository is a shallow clone.
func (r *Repo) IsShallow(ctx context.Context) (bool, error) {
	out, err := r.runner.Output(ctx, "rev-parse", "--is-shallow-repository")
	if err != nil {
		return false, err
	}
	return out == "true", nil
}

// GitDir returns the absolute path of the repository's git directory.
func (r *Repo) GitDir(ctx context.Context) (string, error) {
	return r.runner.Output(ctx, "rev-parse", "--absolute-git-dir")
}

// headCommit describes the commit HEAD points at.
type headCommit struct {
	sha     string
	parent  string
	author  string
	subject string
}

func (r *Repo) readHead(ctx context.Context) (headCommit, error) {
	out, err := r.runner.Output(ctx, "log", "-1", "--format=%H%x00%P%x00%an%x00%s", "HEAD")
	if err != nil {
		return headCommit{}, err
	}

	fields := strings.SplitN(out, "\x00", 4)
	if len(fields) != 4 {
		return headCommit{}, gitupdateErrors.Errorf("unexpected log output %q", out)
	}

	var parent string
	if parents := strings.Fields(fields[1]); len(parents) > 0 {
		parent = parents[0]
	}

	return headCommit{sha: fields[0], parent: parent, author: fields[2], subject: fields[3]}, nil
}

func (r *Repo) stashCount(ctx context.Context) (int, error) {
	out, err := r.runner.Output(ctx, "stash", "list")
	if err != nil {
		return 0, err
	}
	if out == "" {
		return 0, nil
	}
	return len(strings.Split(out, "\n")), nil
}

// CheckForLeftoverTmpCommit removes a snapshot commit left behind by a session
// that died between snapshot and restore, putting its changes back in the
// working tree. Changes made since the crash are stashed first and popped back
// afterwards.
//
// knownHead is the pre-session head recorded in the session journal, or empty
// when no journal exists. Without a journal only commits carrying the snapshot
// author identity are touched. Calling it again with nothing left over is a
// no-op.
func (r *Repo) CheckForLeftoverTmpCommit(ctx context.Context, knownHead string) (bool, error) {
	head, err := r.readHead(ctx)
	if err != nil {
		// An empty repository has nothing to repair.
		return false, nil
	}

	if head.subject != constants.SnapshotMessage {
		return false, nil
	}
	if knownHead == "" && head.author != constants.SnapshotAuthorName {
		r.logger.Info("HEAD %s is titled %q but was not made by gitupdate, leaving it", head.sha, head.subject)
		return false, nil
	}
	if head.parent == "" {
		r.logger.Warning("Leftover snapshot %s has no parent, cannot rewind", head.sha)
		return false, nil
	}
	if knownHead != "" && knownHead != head.parent {
		r.logger.Warning("Journal head %s differs from snapshot parent %s, rewinding to the parent", knownHead, head.parent)
	}

	r.logger.WarningToUser("Found a leftover snapshot commit from an interrupted update, repairing")

	before, err := r.stashCount(ctx)
	if err != nil {
		return false, gitupdateErrors.Wrap(err, "failed to list stashes")
	}
	if err := r.runner.Run(ctx, withIdentity("stash", "push", "--include-untracked", "--quiet", "-m", constants.RepairStashMessage)...); err != nil {
		return false, gitupdateErrors.Wrap(err, "failed to stash pending changes")
	}
	after, err := r.stashCount(ctx)
	if err != nil {
		return false, gitupdateErrors.Wrap(err, "failed to list stashes")
	}
	stashed := after > before

	if err := r.runner.Run(ctx, "reset", "--soft", head.parent); err != nil {
		if stashed {
			if popErr := r.runner.Run(ctx, "stash", "pop", "--quiet"); popErr != nil {
				r.logger.WarningToUser("Changes made after the interrupted update remain in stash@{0}")
				err = gitupdateErrors.Join(err, popErr)
			}
		}
		return false, gitupdateErrors.Join(
			gitupdateErrors.Wrap(gitupdateErrors.ErrRestoreFailed, "failed to rewind snapshot commit"), err)
	}

	if stashed {
		if err := r.runner.Run(ctx, "stash", "pop", "--quiet"); err != nil {
			r.logger.WarningToUser("Changes made after the interrupted update remain in stash@{0}")
			return true, gitupdateErrors.Join(
				gitupdateErrors.Wrap(gitupdateErrors.ErrRestoreFailed, "failed to pop repair stash"), err)
		}
	}

	if err := r.runner.Run(ctx, "reset", "--quiet"); err != nil {
		return true, gitupdateErrors.Wrap(err, "failed to unstage repaired changes")
	}

	r.Discard(ctx, &RepoHandle{BackupSHA: head.sha})
	r.logger.Success("Removed leftover snapshot %s", shortSHA(head.sha))
	return true, nil
}

// withIdentity prefixes a subcommand with the snapshot author identity so
// commands that record commits work in repositories without user.name/user.email.
func withIdentity(args ...string) []string {
	return append([]string{
		"-c", "user.name=" + constants.SnapshotAuthorName,
		"-c", "user.email=" + constants.SnapshotAuthorEmail,
	}, args...)
}

// shortSHA abbreviates a full object id for display.
func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
