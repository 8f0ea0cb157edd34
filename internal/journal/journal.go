package journal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bashhack/gitupdate/internal/constants"
	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/pelletier/go-toml/v2"
)

// Entry records where an in-flight session can be rolled back to.
type Entry struct {
	SessionID   string    `toml:"session_id"`
	Root        string    `toml:"root"`
	CurrentHead string    `toml:"current_head"`
	BackupSHA   string    `toml:"backup_sha"`
	Branch      string    `toml:"branch"`
	StartedAt   time.Time `toml:"started_at"`
}

// Journal is the session journal file inside one repository's git directory.
type Journal struct {
	path string
}

// New returns the journal for the repository whose git directory is gitDir.
func New(gitDir string) *Journal {
	return &Journal{path: filepath.Join(gitDir, constants.JournalFile)}
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.path
}

// Save writes entry, replacing any previous one. The file is written next to
// its final location and renamed into place so a crash never leaves a
// truncated journal.
func (j *Journal) Save(entry Entry) error {
	entry.StartedAt = entry.StartedAt.UTC().Truncate(time.Second)

	data, err := toml.Marshal(entry)
	if err != nil {
		return gitupdateErrors.Wrap(err, "failed to marshal journal")
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), constants.JournalFile+".*")
	if err != nil {
		return gitupdateErrors.Wrap(err, "failed to create journal")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return gitupdateErrors.Wrap(err, "failed to write journal")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return gitupdateErrors.Wrap(err, "failed to write journal")
	}

	if err := os.Rename(tmpName, j.path); err != nil {
		_ = os.Remove(tmpName)
		return gitupdateErrors.Wrap(err, "failed to write journal")
	}
	return nil
}

// Load reads the journal. A missing journal yields (nil, nil).
func (j *Journal) Load() (*Entry, error) {
	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, gitupdateErrors.Wrap(err, "failed to read journal")
	}

	var entry Entry
	if err := toml.Unmarshal(data, &entry); err != nil {
		return nil, gitupdateErrors.Wrapf(err, "failed to parse journal %s", j.path)
	}
	return &entry, nil
}

// Remove deletes the journal. A missing journal is not an error.
func (j *Journal) Remove() error {
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return gitupdateErrors.Wrap(err, "failed to remove journal")
	}
	return nil
}
