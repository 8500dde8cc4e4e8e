package scan

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/models"
)

// textPad pads content to a given size with newline-terminated filler so it
// stays above the minimum file size and passes text detection.
func textPad(content string, size int) string {
	if len(content) >= size {
		return content
	}
	return content + strings.Repeat("x", size-len(content)-1) + "\n"
}

func newSearchWorker(t *testing.T, root string, session *models.ScanSession) (*SearchWorker, *[]models.Match) {
	t.Helper()
	matcher, err := NewMatcher("foo", models.SearchOptions{})
	require.NoError(t, err)

	matches := &[]models.Match{}
	worker := &SearchWorker{
		DriveID:     root,
		Session:     session,
		Matcher:     matcher,
		MinFileSize: 256,
		Logger:      logger.NewNoOpLogger(),
		OnMatch: func(m models.Match) bool {
			*matches = append(*matches, m)
			return true
		},
	}
	return worker, matches
}

func TestSearchWorkerFindsMatches(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"hit.txt":  textPad("the foo marker\n", 300),
		"miss.txt": textPad("nothing here\n", 300),
	})

	session := newTestSession(t, root)
	worker, matches := newSearchWorker(t, root, session)
	require.NoError(t, worker.Run(context.Background()))

	require.Len(t, *matches, 1)
	assert.Contains(t, (*matches)[0].Path, "hit.txt")
	assert.Equal(t, int64(4), (*matches)[0].Offset)
	assert.Equal(t, root, (*matches)[0].DriveID)

	state, _ := session.DriveState(root)
	assert.Equal(t, models.DriveDone, state.Drive.Status)
	assert.Equal(t, int64(2), state.Progress.FilesProcessed)
}

func TestSearchWorkerSkipsUndersizedAndBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tiny.txt": "foo", // below minimum size
		"blob.bin": strings.Repeat("\x00\x01foo", 200),
		"real.txt": textPad("a foo here\n", 300),
	})

	session := newTestSession(t, root)
	worker, matches := newSearchWorker(t, root, session)
	require.NoError(t, worker.Run(context.Background()))

	require.Len(t, *matches, 1)
	assert.Contains(t, (*matches)[0].Path, "real.txt")

	// All three files count as processed regardless of eligibility.
	state, _ := session.DriveState(root)
	assert.Equal(t, int64(3), state.Progress.FilesProcessed)
}

func TestSearchWorkerResumeSkipsAlreadyProcessed(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"01.txt": textPad("early foo\n", 300),
		"02.txt": textPad("plain\n", 300),
		"03.txt": textPad("late foo\n", 300),
	})

	// A prior pass covered the first two files.
	session := newTestSession(t, root)
	session.SetProgress(root, models.DriveProgress{
		FilesProcessed: 2,
		StartCount:     2,
		MaxFiles:       3,
	})

	worker, matches := newSearchWorker(t, root, session)
	var totals []int64
	worker.OnProcessed = func(driveID string, total int64) { totals = append(totals, total) }
	require.NoError(t, worker.Run(context.Background()))

	// Only the third file is re-examined: the early match is not re-emitted.
	require.Len(t, *matches, 1)
	assert.Contains(t, (*matches)[0].Path, "03.txt")

	assert.Equal(t, []int64{3}, totals, "processed counter is cumulative across passes")
	state, _ := session.DriveState(root)
	assert.Equal(t, models.DriveDone, state.Drive.Status)
}

func TestSearchWorkerCancellationPreservesCounter(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/1.txt": textPad("foo\n", 300),
		"b/2.txt": textPad("foo\n", 300),
		"c/3.txt": textPad("foo\n", 300),
	})

	session := newTestSession(t, root)
	worker, _ := newSearchWorker(t, root, session)

	ctx, cancel := context.WithCancel(context.Background())
	worker.OnProcessed = func(driveID string, total int64) {
		if total == 1 {
			cancel()
		}
	}
	err := worker.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	state, _ := session.DriveState(root)
	assert.GreaterOrEqual(t, state.Progress.FilesProcessed, int64(1))
	assert.Less(t, state.Progress.FilesProcessed, int64(3))
	assert.NotEqual(t, models.DriveDone, state.Drive.Status,
		"an interrupted pass must not mark the drive done")
}

func TestSearchWorkerUnknownDrive(t *testing.T) {
	session := models.NewSession("foo", models.SearchOptions{})
	matcher, err := NewMatcher("foo", models.SearchOptions{})
	require.NoError(t, err)

	worker := &SearchWorker{
		DriveID: "/nonexistent-drive",
		Session: session,
		Matcher: matcher,
		Logger:  logger.NewNoOpLogger(),
	}
	assert.Error(t, worker.Run(context.Background()))
}
