package scan

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/drivescan/internal/estimate"
	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/models"
)

func newTestSession(t *testing.T, driveID string) *models.ScanSession {
	t.Helper()
	session := models.NewSession("foo", models.SearchOptions{})
	ok := session.AddDrive(
		models.Drive{ID: driveID, Status: models.DrivePending},
		models.DriveEstimate{DriveID: driveID, Files: estimate.BaseDriveFallbackCount, Source: models.SourcePlaceholder},
	)
	require.True(t, ok)
	return session
}

func TestCountWorkerUpgradesEstimate(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt": "one", "b.txt": "two", "sub/c.txt": "three",
	})

	session := newTestSession(t, root)
	provider := estimate.NewProvider(filepath.Join(t.TempDir(), "estimates.json"), logger.NewNoOpLogger())

	var upgraded []string
	worker := &CountWorker{
		DriveID:   root,
		Session:   session,
		Estimates: provider,
		Logger:    logger.NewNoOpLogger(),
		OnUpgrade: func(driveID string) { upgraded = append(upgraded, driveID) },
	}
	require.NoError(t, worker.Run(context.Background()))

	state, ok := session.DriveState(root)
	require.True(t, ok)
	assert.Equal(t, models.SourceCachedActual, state.Estimate.Source)
	assert.Equal(t, int64(3), state.Estimate.Files)
	assert.Equal(t, int64(3), state.Progress.MaxFiles)
	assert.Equal(t, []string{root}, upgraded)
}

func TestCountWorkerPersistsActualAcrossProviders(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"only.txt": "x"})
	cachePath := filepath.Join(t.TempDir(), "estimates.json")

	session := newTestSession(t, root)
	worker := &CountWorker{
		DriveID:   root,
		Session:   session,
		Estimates: estimate.NewProvider(cachePath, logger.NewNoOpLogger()),
		Logger:    logger.NewNoOpLogger(),
	}
	require.NoError(t, worker.Run(context.Background()))

	// A fresh provider over the same cache file sees the actual count.
	fresh := estimate.NewProvider(cachePath, logger.NewNoOpLogger())
	est := fresh.Estimate(models.Drive{ID: root})
	assert.Equal(t, models.SourceCachedActual, est.Source)
	assert.Equal(t, int64(1), est.Files)
}

func TestCountWorkerCancelledLeavesEstimateUntouched(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/1.txt": "", "b/2.txt": ""})

	session := newTestSession(t, root)
	provider := estimate.NewProvider(filepath.Join(t.TempDir(), "estimates.json"), logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := &CountWorker{
		DriveID:   root,
		Session:   session,
		Estimates: provider,
		Logger:    logger.NewNoOpLogger(),
	}
	err := worker.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	state, _ := session.DriveState(root)
	assert.Equal(t, models.SourcePlaceholder, state.Estimate.Source,
		"a partial count must never masquerade as a real one")
}
