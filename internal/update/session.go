package update

import (
	"github.com/bashhack/gitupdate/internal/git"
	"github.com/google/uuid"
)

// Session is the state of one update attempt. It is created by Run, passed
// explicitly through every step and dropped when Run returns.
type Session struct {
	ID uuid.UUID

	Handle *git.RepoHandle

	Branch     string
	RemoteName string
	URL        string

	// Commits are the new upstream commits, oldest first.
	Commits []git.CommitRecord

	// Breaking is the subsequence of Commits that matched a breaking-change pattern.
	Breaking []git.CommitRecord

	Reset    git.ResetSummary
	Diverged bool

	State   State
	History []State
	Outcome Outcome
	Err     error

	// failedIn is the last state reached before a failure started rolling back.
	failedIn State
}

func newSession(branch, remoteName, url string) *Session {
	return &Session{
		ID:         uuid.New(),
		Branch:     branch,
		RemoteName: remoteName,
		URL:        url,
		State:      StateStart,
		History:    []State{StateStart},
		Outcome:    OutcomeFailed,
	}
}

// transition moves the session to state to. A session that has ended stays
// ended.
func (s *Session) transition(to State) {
	if s.State.Terminal() {
		return
	}
	s.State = to
	s.History = append(s.History, to)
}

// Source is what the session fetches from.
func (s *Session) Source() string {
	if s.URL != "" {
		return s.URL
	}
	return s.RemoteName
}

// Result is what Run reports about a finished session.
type Result struct {
	SessionID uuid.UUID
	Outcome   Outcome

	// State is the terminal state and History every state visited.
	State   State
	History []State

	Remote string
	Branch string
	URL    string

	LocalHead  string
	RemoteHead string

	Commits     []git.CommitRecord
	Breaking    []git.CommitRecord
	HasBreaking bool

	UpToDate bool
	Diverged bool

	// Removed lists the untracked paths the update deleted.
	Removed []string

	// KeptSnapshot is set when local changes were not reapplied and remain
	// only in the snapshot pinned under constants.KeptRefPrefix.
	KeptSnapshot string

	Summary string
	Err     error
}

func (s *Session) result() *Result {
	r := &Result{
		SessionID:   s.ID,
		Outcome:     s.Outcome,
		State:       s.State,
		History:     append([]State(nil), s.History...),
		Remote:      s.RemoteName,
		Branch:      s.Branch,
		URL:         s.URL,
		Commits:     s.Commits,
		Breaking:    s.Breaking,
		HasBreaking: len(s.Breaking) > 0,
		Diverged:    s.Diverged,
		Removed:     s.Reset.Removed,
		Err:         s.Err,
	}
	if s.Handle != nil {
		r.LocalHead = s.Handle.CurrentHead
		r.RemoteHead = s.Handle.RemoteSHA
	}
	for _, st := range s.History {
		if st == StateUpToDate {
			r.UpToDate = true
		}
	}
	r.Summary = summarize(r)
	return r
}

func summarize(r *Result) string {
	switch {
	case r.Outcome == OutcomeApplied && r.HasBreaking:
		return "updated with breaking changes"
	case r.Outcome == OutcomeApplied:
		return "updated"
	case r.UpToDate:
		return "already up to date"
	case r.Outcome == OutcomeNoChanges && r.Diverged:
		return "history diverged, kept the current version"
	case r.Outcome == OutcomeNoChanges:
		return "no changes"
	case r.Err != nil:
		return "update failed: " + r.Err.Error()
	default:
		return "update failed"
	}
}
