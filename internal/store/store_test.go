package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ibeckermayer/x2notion/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordSaveAndStatus(t *testing.T) {
	s := newTestStore(t)
	saved := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordSave(&PostStatus{
		StatusID: "100",
		PostURL:  "https://x.com/bob/status/100",
		PageID:   "page-1",
		PageURL:  "https://www.notion.so/page1",
		Title:    "Hello",
		Author:   "Bob",
		Kind:     "post",
		Status:   StatusPending,
		SavedAt:  saved,
	}))

	got, err := s.GetStatus("100")
	require.NoError(t, err)
	assert.Equal(t, "page-1", got.PageID)
	assert.Equal(t, StatusPending, got.Status)
	assert.True(t, saved.Equal(got.SavedAt))

	require.NoError(t, s.SetStatus("100", StatusDone))
	got, err = s.GetStatus("100")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)

	recent, err := s.RecentSaves(10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestGetStatusMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetStatus("nope")
	assert.True(t, types.IsNotFound(err))
	assert.True(t, types.IsNotFound(s.SetStatus("nope", StatusDone)))
}

func TestSummaryQueue(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.EnqueueTask(&SummaryTask{ID: "a", StatusID: "1", PageID: "p1", Text: "first"}))
	require.NoError(t, s.EnqueueTask(&SummaryTask{ID: "b", StatusID: "2", PageID: "p2", Text: "second",
		CreatedAt: time.Now().Add(time.Minute)}))

	tasks, err := s.PendingTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)

	retries, err := s.FailTask("a", errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, 1, retries)

	require.NoError(t, s.CompleteTask("b"))
	tasks, err = s.PendingTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "boom", tasks[0].LastError)
	assert.Equal(t, 1, tasks[0].Retries)

	_, err = s.FailTask("missing", nil)
	assert.True(t, types.IsNotFound(err))
}

func TestSnapshots(t *testing.T) {
	snaps := NewSnapshots(t.TempDir())

	_, err := snaps.LatestFile(StepExtract)
	assert.Error(t, err)

	_, err = SaveJSON(snaps, StepExtract, map[string]string{"v": "1"})
	require.NoError(t, err)
	path, err := SaveJSON(snaps, StepExtract, map[string]string{"v": "2"})
	require.NoError(t, err)

	data, latest, err := LoadLatestJSON[map[string]string](snaps, StepExtract)
	require.NoError(t, err)
	assert.Equal(t, path, latest)
	assert.Equal(t, "2", data["v"])

	htmlPath, err := snaps.SaveText(StepCapture, "<html></html>", ".html")
	require.NoError(t, err)
	assert.Equal(t, ".html", filepath.Ext(htmlPath))
}
