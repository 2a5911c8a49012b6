package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveStateThenLoadStateRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job-queue.json")

	state := &fileFormat{
		Jobs: []*Entry{
			{Job: Job{ID: "J1", PrinterSystemName: "P1", DocumentType: "receipt"}, Status: StatusQueued, Priority: PriorityNormal, CreatedAt: time.Now()},
		},
		Metrics: Metrics{TotalEnqueued: 1},
		SavedAt: time.Now(),
	}

	require.NoError(t, saveState(path, state))

	loaded, err := loadState(path)
	require.NoError(t, err)
	require.Len(t, loaded.Jobs, 1)
	require.Equal(t, "J1", loaded.Jobs[0].ID)
	require.Equal(t, 1, loaded.Metrics.TotalEnqueued)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "expected the tmp file to be renamed away, not left behind")
}

func TestLoadStateFallsBackToTmpWhenMainIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job-queue.json")

	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0644))

	good := &fileFormat{Jobs: []*Entry{{Job: Job{ID: "J2", PrinterSystemName: "P1"}, Status: StatusQueued}}}
	tmpData, err := json.Marshal(good)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path+".tmp", tmpData, 0644))

	loaded, err := loadState(path)
	require.NoError(t, err)
	require.Len(t, loaded.Jobs, 1)
	require.Equal(t, "J2", loaded.Jobs[0].ID)
}

func TestLoadStateWithNoFilesIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job-queue.json")

	loaded, err := loadState(path)
	require.NoError(t, err, "loadState on first run should not error")
	require.Empty(t, loaded.Jobs)
}

func TestNewDemotesProcessingEntriesOnLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job-queue.json")

	state := &fileFormat{Jobs: []*Entry{
		{Job: Job{ID: "J1", PrinterSystemName: "P1"}, Status: StatusProcessing, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)},
	}}
	require.NoError(t, saveState(path, state))

	q, err := New(Options{Path: path})
	require.NoError(t, err)
	require.Equal(t, StatusQueued, q.entries["J1"].Status, "expected a processing entry to be demoted to queued on load")
}

func TestNewExpiresOverdueQueuedEntriesOnLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job-queue.json")

	state := &fileFormat{Jobs: []*Entry{
		{Job: Job{ID: "J1", PrinterSystemName: "P1"}, Status: StatusQueued, CreatedAt: time.Now().Add(-time.Hour), ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	require.NoError(t, saveState(path, state))

	q, err := New(Options{Path: path})
	require.NoError(t, err)
	require.Equal(t, StatusExpired, q.entries["J1"].Status, "expected an overdue queued entry to expire on load")
}
