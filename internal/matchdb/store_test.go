package matchdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/drivescan/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndList(t *testing.T) {
	store := newTestStore(t)

	inserted, err := store.Insert("s1", models.Match{
		DriveID: "/", Path: "/home/a.txt", Offset: 120, Snippet: "…foo…",
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	matches, err := store.Matches("s1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(120), matches[0].Offset)
	assert.Equal(t, "/home/a.txt", matches[0].Path)
}

func TestInsertDeduplicatesResumeOverlap(t *testing.T) {
	store := newTestStore(t)
	m := models.Match{DriveID: "/", Path: "/home/a.txt", Offset: 120, Snippet: "x"}

	inserted, err := store.Insert("s1", m)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same file re-processed after a resume: no duplicate row, caller told
	// to suppress the event.
	inserted, err = store.Insert("s1", m)
	require.NoError(t, err)
	assert.False(t, inserted)

	matches, err := store.Matches("s1")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMatchesAreScopedToSession(t *testing.T) {
	store := newTestStore(t)
	m := models.Match{DriveID: "/", Path: "/home/a.txt", Offset: 1, Snippet: "x"}

	_, err := store.Insert("s1", m)
	require.NoError(t, err)
	inserted, err := store.Insert("s2", m)
	require.NoError(t, err)
	assert.True(t, inserted, "a new session records the file again")

	matches, err := store.Matches("s1")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestCountByDrive(t *testing.T) {
	store := newTestStore(t)
	for _, m := range []models.Match{
		{DriveID: "/", Path: "/a", Offset: 0, Snippet: ""},
		{DriveID: "/", Path: "/b", Offset: 0, Snippet: ""},
		{DriveID: "/mnt/d", Path: "/mnt/d/c", Offset: 0, Snippet: ""},
	} {
		_, err := store.Insert("s1", m)
		require.NoError(t, err)
	}

	counts, err := store.CountByDrive("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["/"])
	assert.Equal(t, int64(1), counts["/mnt/d"])
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Insert("s1", models.Match{DriveID: "/", Path: "/a", Offset: 0, Snippet: ""})
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession("s1"))

	matches, err := store.Matches("s1")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
