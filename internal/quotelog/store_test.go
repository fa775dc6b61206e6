package quotelog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxSize int64) *Store {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := Open(filepath.Join(dir, "quote-logs.log"), filepath.Join(dir, "backups"), maxSize, logger)
	require.NoError(t, err)
	return store
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	store := newTestStore(t, 0)

	first, err := store.Append(Entry{Name: "A", Email: "a@x.com", Service: "S", To: "sales@example.com", Sent: true})
	require.NoError(t, err)
	second, err := store.Append(Entry{Name: "B", To: "sales@example.com"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, first.Timestamp.IsZero())

	entries, err := store.Tail(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, "B", entries[0].Name)
}

func TestTailNewestFirstAndClamped(t *testing.T) {
	store := newTestStore(t, 0)
	for i := 0; i < 120; i++ {
		_, err := store.Append(Entry{To: "sales@example.com"})
		require.NoError(t, err)
	}

	entries, err := store.Tail(500)
	require.NoError(t, err)
	require.Len(t, entries, MaxTailLimit)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i-1].ID, entries[i].ID)
	}
	assert.Equal(t, int64(120), entries[0].ID)

	empty, err := store.Tail(0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	negative, err := store.Tail(-5)
	require.NoError(t, err)
	assert.Empty(t, negative)
}

func TestUpdateAppliesPartialPatch(t *testing.T) {
	store := newTestStore(t, 0)
	entry, err := store.Append(Entry{Name: "A", Email: "a@x.com", To: "sales@example.com"})
	require.NoError(t, err)

	handled := true
	updated, err := store.Update(entry.ID, Patch{Handled: &handled})
	require.NoError(t, err)
	assert.True(t, updated.Handled)
	assert.Equal(t, "A", updated.Name)
	assert.Empty(t, updated.Note)

	note := "called back"
	updated, err = store.Update(entry.ID, Patch{Note: &note})
	require.NoError(t, err)
	assert.True(t, updated.Handled, "handled must survive a note-only patch")
	assert.Equal(t, "called back", updated.Note)

	entries, err := store.Tail(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Handled)
	assert.Equal(t, "called back", entries[0].Note)
}

func TestUpdateUnknownID(t *testing.T) {
	store := newTestStore(t, 0)
	_, err := store.Update(42, Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesEntry(t *testing.T) {
	store := newTestStore(t, 0)
	first, err := store.Append(Entry{Name: "A", To: "sales@example.com"})
	require.NoError(t, err)
	second, err := store.Append(Entry{Name: "B", To: "sales@example.com"})
	require.NoError(t, err)

	removed, err := store.Delete(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, removed.ID)

	_, err = store.Delete(first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Update(first.ID, Patch{})
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := store.Tail(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, entries[0].ID)
}

func TestTailSkipsMalformedLines(t *testing.T) {
	store := newTestStore(t, 0)
	_, err := store.Append(Entry{Name: "A", To: "sales@example.com"})
	require.NoError(t, err)

	file, err := os.OpenFile(store.path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString("{this is not json\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	_, err = store.Append(Entry{Name: "B", To: "sales@example.com"})
	require.NoError(t, err)

	entries, err := store.Tail(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Name)
	assert.Equal(t, "A", entries[1].Name)
}

func TestTailHandlesMultiMegabyteLines(t *testing.T) {
	store := newTestStore(t, 0)

	// An inline attachment can push a single line well past any buffered
	// line size, so the read path must not cap line length.
	big := strings.Repeat("m", 2<<20)
	appended, err := store.Append(Entry{Name: "big", Message: big, To: "sales@example.com"})
	require.NoError(t, err)

	entries, err := store.Tail(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, big, entries[0].Message)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reopened, err := Open(store.path, store.backupDir, 0, logger)
	require.NoError(t, err)
	next, err := reopened.Append(Entry{Name: "small", To: "sales@example.com"})
	require.NoError(t, err)
	assert.Equal(t, appended.ID+1, next.ID)
}

func TestOpenSeedsCounterFromExistingFile(t *testing.T) {
	store := newTestStore(t, 0)
	for i := 0; i < 3; i++ {
		_, err := store.Append(Entry{To: "sales@example.com"})
		require.NoError(t, err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reopened, err := Open(store.path, store.backupDir, 0, logger)
	require.NoError(t, err)

	entry, err := reopened.Append(Entry{To: "sales@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.ID)
}

func TestRotationArchivesAndResets(t *testing.T) {
	store := newTestStore(t, 256)

	filler := strings.Repeat("x", 100)
	for {
		_, err := store.Append(Entry{Message: filler, To: "sales@example.com"})
		require.NoError(t, err)
		info, err := os.Stat(store.path)
		require.NoError(t, err)
		if info.Size() >= store.maxSize {
			break
		}
	}
	lastBefore, err := store.Tail(1)
	require.NoError(t, err)

	entry, err := store.Append(Entry{Name: "after-rotation", To: "sales@example.com"})
	require.NoError(t, err)

	// The active file must contain exactly the newly appended line.
	entries, err := store.Tail(MaxTailLimit)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, lastBefore[0].ID+1, entry.ID, "ids stay monotonic across rotation")

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 1)

	archives, err := filepath.Glob(filepath.Join(store.backupDir, "quote-logs-*.log.gz"))
	require.NoError(t, err)
	require.Len(t, archives, 1)

	// The archive must decompress to the pre-rotation contents.
	archive, err := os.Open(archives[0])
	require.NoError(t, err)
	defer archive.Close()
	gz, err := gzip.NewReader(archive)
	require.NoError(t, err)
	archived, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(archived), filler)
	assert.NotContains(t, string(archived), "after-rotation")
}

func TestAppendProceedsWhenRotationFails(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// A regular file where the backup directory should go makes MkdirAll
	// fail, so every rotation attempt errors out.
	blocker := filepath.Join(dir, "backups")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	store, err := Open(filepath.Join(dir, "quote-logs.log"), filepath.Join(blocker, "archive"), 128, logger)
	require.NoError(t, err)

	filler := strings.Repeat("x", 200)
	first, err := store.Append(Entry{Message: filler, To: "sales@example.com"})
	require.NoError(t, err)
	second, err := store.Append(Entry{Message: filler, To: "sales@example.com"})
	require.NoError(t, err, "append must not fail when rotation does")
	assert.Equal(t, first.ID+1, second.ID)

	entries, err := store.Tail(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
}

func TestRotationDisabledWhenNoThreshold(t *testing.T) {
	store := newTestStore(t, 0)
	for i := 0; i < 10; i++ {
		_, err := store.Append(Entry{Message: strings.Repeat("y", 200), To: "sales@example.com"})
		require.NoError(t, err)
	}
	archives, err := filepath.Glob(filepath.Join(store.backupDir, "*.log.gz"))
	require.NoError(t, err)
	assert.Empty(t, archives)
}
