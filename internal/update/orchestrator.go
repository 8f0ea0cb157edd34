package update

import (
	"context"
	"fmt"
	"time"

	"github.com/bashhack/gitupdate/internal/classify"
	"github.com/bashhack/gitupdate/internal/constants"
	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/git"
	"github.com/bashhack/gitupdate/internal/journal"
	"github.com/bashhack/gitupdate/internal/logger"
)

// DivergedPrompt is asked when the commit range cannot be computed.
const DivergedPrompt = "Your local history and the remote have diverged. Skip updating and keep the current version?"

// Options selects what an Orchestrator updates from and how.
type Options struct {
	// RemoteName is fetched from when URL is empty.
	RemoteName string
	URL        string
	Branch     string

	Patterns classify.PatternSet

	// KeepLocalChanges reapplies the snapshot on top of the new head.
	KeepLocalChanges bool

	// Progress, when set, observes breaking-change classification.
	Progress func(current, total int)
}

// Orchestrator runs update sessions against one repository.
type Orchestrator struct {
	runner     *git.Runner
	repo       *git.Repo
	remote     *git.Remote
	interactor git.UserInteractor
	logger     logger.Logger
	opts       Options
	now        func() time.Time
}

// New creates an Orchestrator issuing git commands through runner.
func New(runner *git.Runner, interactor git.UserInteractor, log logger.Logger, opts Options) *Orchestrator {
	if opts.RemoteName == "" {
		opts.RemoteName = constants.DefaultRemote
	}
	if opts.Branch == "" {
		opts.Branch = constants.DefaultBranch
	}

	repo := git.NewRepo(runner, log)
	source := opts.RemoteName
	if opts.URL != "" {
		source = opts.URL
	}

	return &Orchestrator{
		runner:     runner,
		repo:       repo,
		remote:     git.NewRemote(runner, repo, source, log),
		interactor: interactor,
		logger:     log,
		opts:       opts,
		now:        time.Now,
	}
}

// Run performs one update session. The returned Result is never nil. The
// error is nil unless the outcome is OutcomeFailed, in which case it is a
// *errors.SessionError matching the failure's error kind.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	s := newSession(o.opts.Branch, o.opts.RemoteName, o.opts.URL)
	o.logger.Info("Session %s: updating %s from %s %s", s.ID, o.repo.Root(), s.Source(), s.Branch)
	o.logger.Info("Breaking-change patterns: %q", o.opts.Patterns.Sources())

	if err := ctx.Err(); err != nil {
		return o.failWithoutSnapshot(s, err)
	}

	if _, err := o.Repair(ctx); err != nil {
		return o.failWithoutSnapshot(s, err)
	}

	handle, err := o.repo.Validate(ctx)
	if err != nil {
		return o.failWithoutSnapshot(s, err)
	}
	s.Handle = handle
	s.transition(StateValidated)
	s.transition(StateSnapshotted)

	jr := o.openJournal(ctx, s)

	remoteHead, err := o.remote.RemoteHead(ctx, s.Branch)
	if err != nil {
		// Fetch will report a real failure if the remote is unreachable.
		o.logger.Warning("Could not read remote head of %s %s: %v", s.Source(), s.Branch, err)
	}
	if remoteHead != "" && remoteHead == handle.CurrentHead {
		handle.RemoteSHA = remoteHead
		return o.finishUpToDate(ctx, s, jr)
	}

	o.logger.InfoToUser("Fetching %s from %s", s.Branch, s.Source())
	tip, err := o.remote.Fetch(ctx, s.Branch)
	if err != nil {
		return o.rollback(ctx, s, jr, err)
	}
	handle.RemoteSHA = tip
	s.transition(StateFetched)

	if tip == handle.CurrentHead {
		return o.finishUpToDate(ctx, s, jr)
	}

	commits, err := git.CommitsBetween(ctx, o.runner, handle.CurrentHead, tip)
	s.transition(StateDiffed)
	if err != nil {
		s.Diverged = true
		s.transition(StateDiverged)
		o.logger.Warning("No linear history from %s to %s: %v", handle.CurrentHead, tip, err)

		if !o.interactor.PromptYesNo(DivergedPrompt) {
			return o.rollback(ctx, s, jr, err)
		}
		return o.finishWithoutChanges(ctx, s, jr)
	}
	s.Commits = commits

	s.Breaking = classify.Classify(commits, o.opts.Patterns, o.opts.Progress)
	s.transition(StateClassified)
	o.logger.Info("%d new commits, %d breaking", len(s.Commits), len(s.Breaking))

	if len(s.Breaking) > 0 {
		if !o.interactor.PromptYesNo(breakingPrompt(len(s.Breaking))) {
			s.transition(StateDeclined)
			return o.rollback(ctx, s, jr, gitupdateErrors.ErrUserDeclined)
		}
		s.transition(StateConfirmed)
	}

	return o.apply(ctx, s, jr)
}

func (o *Orchestrator) apply(ctx context.Context, s *Session, jr *journal.Journal) (*Result, error) {
	handle := s.Handle

	summary, err := o.remote.ResetToRemoteHead(ctx, handle.RemoteSHA)
	if err != nil {
		return o.rollback(ctx, s, jr, err)
	}
	s.Reset = summary

	keptSnapshot := ""
	if o.opts.KeepLocalChanges {
		if err := o.remote.Reapply(ctx, handle); err != nil {
			return o.rollback(ctx, s, jr, err)
		}
		o.repo.Discard(ctx, handle)
	} else if handle.Dirty {
		ref, err := o.repo.Keep(ctx, handle)
		if err != nil {
			return o.rollback(ctx, s, jr, gitupdateErrors.Join(gitupdateErrors.ErrReapplyFailed, err))
		}
		keptSnapshot = handle.BackupSHA
		o.logger.WarningToUser("Local changes were not reapplied; they are saved in %s", ref)
	} else {
		o.repo.Discard(ctx, handle)
	}

	s.transition(StateApplied)
	s.Outcome = OutcomeApplied
	o.closeJournal(jr)
	s.transition(StateDone)

	result := s.result()
	result.KeptSnapshot = keptSnapshot
	return result, nil
}

func (o *Orchestrator) finishUpToDate(ctx context.Context, s *Session, jr *journal.Journal) (*Result, error) {
	s.transition(StateUpToDate)
	return o.finishWithoutChanges(ctx, s, jr)
}

// finishWithoutChanges returns to the local head with the local changes
// reapplied and ends the session successfully with nothing applied. If that
// fails the session is rolled back instead.
func (o *Orchestrator) finishWithoutChanges(ctx context.Context, s *Session, jr *journal.Journal) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	if err := o.remote.ResetToLocalHead(ctx, s.Handle); err != nil {
		return o.rollback(ctx, s, jr, err)
	}
	if err := o.remote.Reapply(ctx, s.Handle); err != nil {
		return o.rollback(ctx, s, jr, err)
	}
	o.repo.Discard(ctx, s.Handle)
	o.closeJournal(jr)
	s.Outcome = OutcomeNoChanges
	s.transition(StateDone)
	return s.result(), nil
}

// rollback restores the pre-session state and fails the session with cause.
// A failed restore replaces cause with an error that also matches
// ErrRestoreFailed, and the journal is kept for the next run.
//
// Restore ignores cancellation of ctx: an interrupted session still rolls back.
func (o *Orchestrator) rollback(ctx context.Context, s *Session, jr *journal.Journal, cause error) (*Result, error) {
	s.failedIn = s.State
	s.Err = cause
	o.logger.Error("Update failed while %s: %v", s.State, cause)

	if err := o.repo.Restore(context.WithoutCancel(ctx), s.Handle); err != nil {
		s.Err = gitupdateErrors.Join(err, cause)
		s.transition(StateFailed)
		return s.result(), o.sessionError(s)
	}

	s.transition(StateRolledBack)
	o.closeJournal(jr)
	s.transition(StateFailed)
	return s.result(), o.sessionError(s)
}

func (o *Orchestrator) failWithoutSnapshot(s *Session, err error) (*Result, error) {
	s.failedIn = s.State
	s.Err = err
	s.transition(StateFailed)
	return s.result(), o.sessionError(s)
}

func (o *Orchestrator) sessionError(s *Session) error {
	return gitupdateErrors.NewSessionError(s.ID.String(), s.failedIn.String(), s.Err)
}

// openJournal records the rollback point. A journal that cannot be written
// only costs crash recovery its hint, so the session carries on.
func (o *Orchestrator) openJournal(ctx context.Context, s *Session) *journal.Journal {
	gitDir, err := o.repo.GitDir(ctx)
	if err != nil {
		o.logger.Warning("Could not locate git directory for the session journal: %v", err)
		return nil
	}

	jr := journal.New(gitDir)
	entry := journal.Entry{
		SessionID:   s.ID.String(),
		Root:        s.Handle.Root,
		CurrentHead: s.Handle.CurrentHead,
		BackupSHA:   s.Handle.BackupSHA,
		Branch:      s.Branch,
		StartedAt:   o.now(),
	}
	if err := jr.Save(entry); err != nil {
		o.logger.Warning("Could not write session journal: %v", err)
		return nil
	}
	return jr
}

func (o *Orchestrator) closeJournal(jr *journal.Journal) {
	if jr == nil {
		return
	}
	if err := jr.Remove(); err != nil {
		o.logger.Warning("Could not remove session journal: %v", err)
	}
}

// Repair cleans up after a session that was interrupted: a snapshot commit
// left on HEAD is rewound, a snapshot stranded by a failed restore is
// reapplied and a stale journal removed. It reports whether local changes
// were put back. Running it with nothing to repair is a no-op.
//
// When a stranded snapshot cannot be reapplied the error matches
// ErrRestoreFailed and the journal is kept, so Run refuses to start until the
// snapshot is recovered by hand and its ref deleted.
func (o *Orchestrator) Repair(ctx context.Context) (bool, error) {
	var (
		jr    *journal.Journal
		entry *journal.Entry
	)
	if gitDir, err := o.repo.GitDir(ctx); err == nil {
		jr = journal.New(gitDir)
		if entry, err = jr.Load(); err != nil {
			o.logger.Warning("Ignoring unreadable session journal: %v", err)
			entry = nil
		}
	}

	knownHead := ""
	if entry != nil {
		knownHead = entry.CurrentHead
		o.logger.Info("Found journal of session %s started %s", entry.SessionID, entry.StartedAt)
	}

	repaired, err := o.repo.CheckForLeftoverTmpCommit(ctx, knownHead)
	if err != nil {
		return repaired, err
	}

	// A journal next to a saved snapshot means a restore failed part way. The
	// journal stays until the snapshot's changes are back in the working tree.
	if entry != nil && !repaired {
		if sha, ok := o.repo.SavedSnapshot(ctx); ok {
			o.logger.WarningToUser("An earlier update could not restore your local changes, reapplying them from %s", constants.BackupRef)
			if err := o.repo.RecoverSnapshot(ctx, entry.CurrentHead, sha); err != nil {
				return false, err
			}
			o.logger.Success("Reapplied local changes from snapshot %.8s", sha)
			repaired = true
		}
	}

	if jr != nil && entry != nil {
		o.closeJournal(jr)
	}
	return repaired, nil
}

// CheckResult describes whether the remote branch has moved.
type CheckResult struct {
	Source     string
	Branch     string
	LocalHead  string
	RemoteHead string

	// UpdateAvailable is true when the remote head differs from the local one.
	UpdateAvailable bool
}

// Check compares the local and remote heads without touching the
// repository or fetching any objects.
func (o *Orchestrator) Check(ctx context.Context) (*CheckResult, error) {
	local, err := o.remote.LocalHead(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := o.remote.RemoteHead(ctx, o.opts.Branch)
	if err != nil {
		return nil, gitupdateErrors.Join(gitupdateErrors.ErrFetchFailed, err)
	}
	if remote == "" {
		return nil, gitupdateErrors.Wrapf(gitupdateErrors.ErrFetchFailed, "branch %s not found on %s", o.opts.Branch, o.remote.Source())
	}

	return &CheckResult{
		Source:          o.remote.Source(),
		Branch:          o.opts.Branch,
		LocalHead:       local,
		RemoteHead:      remote,
		UpdateAvailable: local != remote,
	}, nil
}

func breakingPrompt(n int) string {
	if n == 1 {
		return "1 breaking change was found. Continue updating?"
	}
	return fmt.Sprintf("%d breaking changes were found. Continue updating?", n)
}
