package batchstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteGetRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	now := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	rec := &BatchRecord{
		BatchID:     "batch-1",
		State:       StatePartial,
		CommandFile: "commandlines.txt",
		Selection:   "1-3,5",
		Workers:     4,
		Total:       4,
		Succeeded:   3,
		CreatedAt:   now,
		StartedAt:   &now,
		Failures:    []Failure{{Task: 2, Code: "PROCESS_FAILURE", Reason: "java exited with status 1"}},
		LogFiles:    []string{"J48_BestFirst.log"},
	}
	require.NoError(t, s.Write(rec))

	got, err := s.Get("batch-1")
	require.NoError(t, err)
	assert.Equal(t, rec.BatchID, got.BatchID)
	assert.Equal(t, StatePartial, got.State)
	assert.Equal(t, "1-3,5", got.Selection)
	assert.Equal(t, rec.Failures, got.Failures)
	assert.Equal(t, rec.LogFiles, got.LogFiles)
	assert.True(t, now.Equal(*got.StartedAt))

	entries, err := os.ReadDir(s.BatchDir("batch-1"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "batch.json", entries[0].Name())
}

func TestStore_ListSortsNewestFirst(t *testing.T) {
	s := NewStore(t.TempDir())

	t1 := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 19, 13, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 1, 19, 11, 0, 0, 0, time.UTC)

	require.NoError(t, s.Write(&BatchRecord{BatchID: "batch-1", State: StateSuccess, CreatedAt: t1, StartedAt: &t1}))
	require.NoError(t, s.Write(&BatchRecord{BatchID: "batch-2", State: StateSuccess, CreatedAt: t2, StartedAt: &t2}))
	require.NoError(t, s.Write(&BatchRecord{BatchID: "batch-3", State: StateRunning, CreatedAt: t3}))

	require.NoError(t, os.MkdirAll(filepath.Join(s.RootDir(), "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.RootDir(), "broken", "batch.json"), []byte("{"), 0o644))

	got, err := s.List()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "batch-2", got[0].BatchID)
	assert.Equal(t, "batch-1", got[1].BatchID)
	assert.Equal(t, "batch-3", got[2].BatchID)
}

func TestStore_ListMissingRoot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent"))
	got, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_GetErrors(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("")
	assert.Error(t, err)

	_, err = s.Get("../escape")
	assert.Error(t, err)

	assert.Error(t, s.Write(nil))
	assert.Error(t, s.Write(&BatchRecord{}))
	assert.Error(t, NewStore("").Write(&BatchRecord{BatchID: "x"}))
}

func TestStore_RunningWithDeadPIDIsUnknown(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("signal 0 probing is unix-only")
	}
	s := NewStore(t.TempDir())
	now := time.Now().UTC()

	// Above any configurable pid_max.
	require.NoError(t, s.Write(&BatchRecord{BatchID: "ghost", State: StateRunning, PID: 1 << 30, CreatedAt: now, StartedAt: &now}))
	require.NoError(t, s.Write(&BatchRecord{BatchID: "self", State: StateRunning, PID: os.Getpid(), CreatedAt: now, StartedAt: &now}))

	ghost, err := s.Get("ghost")
	require.NoError(t, err)
	assert.Equal(t, StateUnknown, ghost.State)
	assert.NotNil(t, ghost.EndedAt)

	reread, err := s.Get("ghost")
	require.NoError(t, err)
	assert.Equal(t, StateUnknown, reread.State, "unknown state is persisted")

	self, err := s.Get("self")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, self.State)
}

func TestStateFor(t *testing.T) {
	assert.Equal(t, StateSuccess, StateFor(10, 10))
	assert.Equal(t, StateSuccess, StateFor(0, 0))
	assert.Equal(t, StatePartial, StateFor(10, 9))
	assert.Equal(t, StateFailed, StateFor(10, 0))

	assert.True(t, StateSuccess.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.False(t, StateUnknown.Terminal())
}
