package git

import (
	"context"
	"strings"

	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/logger"
)

// ResetSummary describes what applying the remote head did to the working tree.
type ResetSummary struct {
	// Head is the commit the working tree now matches.
	Head string

	// Removed lists the untracked paths clean deleted.
	Removed []string
}

// Remote synchronizes the repository with one branch of a remote source,
// which is either a configured remote name or a URL.
type Remote struct {
	runner *Runner
	repo   *Repo
	source string
	logger logger.Logger
}

// NewRemote creates a Remote fetching from source (a remote name or URL).
func NewRemote(runner *Runner, repo *Repo, source string, log logger.Logger) *Remote {
	return &Remote{runner: runner, repo: repo, source: source, logger: log}
}

// Source returns the remote name or URL fetched from.
func (r *Remote) Source() string {
	return r.source
}

// RemoteHead asks the remote for the tip of branch without fetching any
// objects. An empty string means the remote has no such branch.
func (r *Remote) RemoteHead(ctx context.Context, branch string) (string, error) {
	if err := ValidateBranchName(branch); err != nil {
		return "", err
	}

	out, err := r.runner.Output(ctx, "ls-remote", r.source, "refs/heads/"+branch)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == "refs/heads/"+branch {
			return fields[0], nil
		}
	}
	return "", nil
}

// LocalHead resolves the local HEAD.
func (r *Remote) LocalHead(ctx context.Context) (string, error) {
	return r.repo.LocalHead(ctx)
}

// Fetch downloads branch only, pruning stale refs and skipping tags and
// submodules. A shallow clone is deepened to full history first so the
// commit range can be computed. It returns the fetched tip.
func (r *Remote) Fetch(ctx context.Context, branch string) (string, error) {
	if err := ValidateBranchName(branch); err != nil {
		return "", gitupdateErrors.Join(gitupdateErrors.ErrFetchFailed, err)
	}

	args := []string{"fetch", "--prune", "--no-tags", "--no-recurse-submodules", "--quiet"}

	shallow, err := r.repo.IsShallow(ctx)
	if err != nil {
		r.logger.Warning("Could not determine whether the clone is shallow: %v", err)
	}
	if shallow {
		r.logger.Info("Shallow clone detected, fetching full history")
		args = append(args, "--unshallow")
	}
	args = append(args, r.source, branch)

	if err := r.runner.Run(ctx, args...); err != nil {
		return "", gitupdateErrors.Join(gitupdateErrors.ErrFetchFailed, err)
	}

	tip, err := r.runner.Output(ctx, "rev-parse", "--verify", "FETCH_HEAD^{commit}")
	if err != nil || tip == "" {
		return "", gitupdateErrors.Join(gitupdateErrors.ErrFetchFailed, gitupdateErrors.New("FETCH_HEAD did not resolve"), err)
	}

	r.logger.Info("Fetched %s %s at %s", r.source, branch, tip)
	return tip, nil
}

// ResetToRemoteHead hard-resets the working tree to the fetched tip, then
// removes untracked files and directories that upstream does not have.
// Ignored files are left alone.
func (r *Remote) ResetToRemoteHead(ctx context.Context, tip string) (ResetSummary, error) {
	if err := r.runner.Run(ctx, "reset", "--hard", "--quiet", tip); err != nil {
		return ResetSummary{}, gitupdateErrors.Join(gitupdateErrors.ErrResetFailed, err)
	}

	out, err := r.runner.Output(ctx, "clean", "-d", "--force")
	if err != nil {
		return ResetSummary{Head: tip}, gitupdateErrors.Join(gitupdateErrors.ErrCleanFailed, err)
	}

	summary := ResetSummary{Head: tip}
	for _, line := range strings.Split(out, "\n") {
		if path, ok := strings.CutPrefix(line, "Removing "); ok {
			summary.Removed = append(summary.Removed, path)
		}
	}
	return summary, nil
}

// ResetToLocalHead hard-resets to the head the session started from. It is
// the clean way out of a session that decided not to update.
func (r *Remote) ResetToLocalHead(ctx context.Context, handle *RepoHandle) error {
	if err := r.runner.Run(ctx, "reset", "--hard", "--quiet", handle.CurrentHead); err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrResetFailed, err)
	}
	return nil
}

// Reapply carries the snapshot's changes (the user's local customizations)
// onto the freshly applied head without committing them.
func (r *Remote) Reapply(ctx context.Context, handle *RepoHandle) error {
	if !handle.Dirty {
		return nil
	}

	if err := r.runner.Run(ctx, withIdentity("cherry-pick", "--no-commit", handle.BackupSHA)...); err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrReapplyFailed, err)
	}
	if err := r.runner.Run(ctx, "reset", "--quiet"); err != nil {
		return gitupdateErrors.Join(gitupdateErrors.ErrReapplyFailed, err)
	}
	return nil
}

// ValidateBranchName rejects branch names git would read as an option or
// that cannot name a ref.
func ValidateBranchName(branch string) error {
	switch {
	case branch == "":
		return gitupdateErrors.New("branch name must not be empty")
	case strings.HasPrefix(branch, "-"):
		return gitupdateErrors.Errorf("branch name %q must not start with '-'", branch)
	case strings.ContainsAny(branch, " \t\n~^:?*[\\"), strings.Contains(branch, ".."):
		return gitupdateErrors.Errorf("branch name %q is not a valid ref name", branch)
	}
	return nil
}

// ValidateSource rejects a remote name or URL git would read as an option.
func ValidateSource(source string) error {
	if source == "" {
		return gitupdateErrors.New("remote must not be empty")
	}
	if strings.HasPrefix(source, "-") {
		return gitupdateErrors.Errorf("remote %q must not start with '-'", source)
	}
	return nil
}
