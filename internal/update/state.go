package update

// State is a step of an update session.
type State int

const (
	StateStart State = iota
	StateValidated
	StateSnapshotted
	StateFetched
	StateDiffed
	StateUpToDate
	StateDiverged
	StateClassified
	StateConfirmed
	StateDeclined
	StateApplied
	StateRolledBack
	StateFailed
	StateDone
)

var stateNames = [...]string{
	StateStart:       "start",
	StateValidated:   "validated",
	StateSnapshotted: "snapshotted",
	StateFetched:     "fetched",
	StateDiffed:      "diffed",
	StateUpToDate:    "up-to-date",
	StateDiverged:    "diverged",
	StateClassified:  "classified",
	StateConfirmed:   "confirmed",
	StateDeclined:    "declined",
	StateApplied:     "applied",
	StateRolledBack:  "rolled-back",
	StateFailed:      "failed",
	StateDone:        "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether a session in this state has ended.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Outcome is the three-way result of an update session.
type Outcome int

const (
	// OutcomeFailed means the session was rolled back, or could not be.
	OutcomeFailed Outcome = iota

	// OutcomeNoChanges means the repository was already current or the user
	// chose to keep the current version after a divergence.
	OutcomeNoChanges

	// OutcomeApplied means the working tree now matches the remote branch.
	OutcomeApplied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNoChanges:
		return "no changes"
	default:
		return "failed"
	}
}
