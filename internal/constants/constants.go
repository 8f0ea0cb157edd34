package constants

const (
	// SnapshotMessage is the subject of the throwaway commit that holds the
	// user's uncommitted work while the working tree is reset.
	SnapshotMessage = "tmp"

	// SnapshotAuthorName and SnapshotAuthorEmail identify snapshot commits so a
	// leftover one can be told apart from a user commit that happens to be named "tmp".
	SnapshotAuthorName  = "gitupdate"
	SnapshotAuthorEmail = "gitupdate@localhost"

	// BackupRef keeps the snapshot reachable until the session ends.
	BackupRef = "refs/gitupdate/backup"

	// KeptRefPrefix holds, one ref per snapshot, local changes an update was
	// told not to reapply.
	KeptRefPrefix = "refs/gitupdate/kept/"

	// JournalFile is created inside the git directory for the duration of a session.
	JournalFile = "gitupdate-session.toml"

	// RepairStashMessage labels the stash taken while rewinding a leftover snapshot.
	RepairStashMessage = "gitupdate: pending changes before snapshot repair"

	// DefaultRemote and DefaultBranch are used when configuration names neither.
	DefaultRemote = "origin"
	DefaultBranch = "master"
)

// DefaultBreakingPatterns is the pattern set used when none is configured.
var DefaultBreakingPatterns = []string{"breaking.*change"}

// AffirmativeAnswers are the only answers treated as "yes" at a prompt.
var AffirmativeAnswers = []string{"y", "yes"}
