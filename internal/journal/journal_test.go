package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bashhack/gitupdate/internal/constants"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j := New(dir)
	assert.Equal(t, filepath.Join(dir, constants.JournalFile), j.Path())

	started := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.FixedZone("CEST", 2*60*60))
	entry := Entry{
		SessionID:   uuid.NewString(),
		Root:        "/home/me/dotfiles",
		CurrentHead: "1111111111111111111111111111111111111111",
		BackupSHA:   "2222222222222222222222222222222222222222",
		Branch:      "master",
		StartedAt:   started,
	}
	require.NoError(t, j.Save(entry))

	loaded, err := j.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, entry.SessionID, loaded.SessionID)
	assert.Equal(t, entry.Root, loaded.Root)
	assert.Equal(t, entry.CurrentHead, loaded.CurrentHead)
	assert.Equal(t, entry.BackupSHA, loaded.BackupSHA)
	assert.Equal(t, entry.Branch, loaded.Branch)
	assert.True(t, started.Truncate(time.Second).Equal(loaded.StartedAt), "got %s", loaded.StartedAt)

	require.NoError(t, j.Remove())
	assert.NoFileExists(t, j.Path())

	loaded, err = j.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaveReplacesAndLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j := New(dir)

	require.NoError(t, j.Save(Entry{SessionID: "first", CurrentHead: "a"}))
	require.NoError(t, j.Save(Entry{SessionID: "second", CurrentHead: "b"}))

	loaded, err := j.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.SessionID)
	assert.Equal(t, "b", loaded.CurrentHead)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoveMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, New(t.TempDir()).Remove())
}

func TestLoadCorruptJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j := New(dir)
	require.NoError(t, os.WriteFile(j.Path(), []byte("session_id = [unterminated"), 0644))

	_, err := j.Load()
	assert.Error(t, err)
}

func TestSaveIntoMissingDirectory(t *testing.T) {
	t.Parallel()

	j := New(filepath.Join(t.TempDir(), "does", "not", "exist"))
	assert.Error(t, j.Save(Entry{SessionID: "x"}))
}

func TestLoadCorruptJournalNamesFile(t *testing.T) {
	t.Parallel()

	j := New(t.TempDir())
	require.NoError(t, os.WriteFile(j.Path(), []byte("session_id = [unterminated"), 0644))

	_, err := j.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse journal "+j.Path()+": ")
}
