package scan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/drivescan/internal/models"
)

func TestNewMatcherRejectsEmptyPattern(t *testing.T) {
	_, err := NewMatcher("", models.SearchOptions{})
	assert.Error(t, err)
}

func TestFindInFirstOccurrenceOffset(t *testing.T) {
	m, err := NewMatcher("foo", models.SearchOptions{})
	require.NoError(t, err)

	content := strings.Repeat("x", 120) + "foo" + strings.Repeat("y", 50) + "foo"
	offset, snippet, found, err := m.FindIn(strings.NewReader(content))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(120), offset, "offset must point at the first occurrence")
	assert.Contains(t, snippet, "foo")
}

func TestFindInNoMatch(t *testing.T) {
	m, err := NewMatcher("needle", models.SearchOptions{})
	require.NoError(t, err)

	_, _, found, err := m.FindIn(strings.NewReader("plain haystack content"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindInEmptyReader(t *testing.T) {
	m, err := NewMatcher("foo", models.SearchOptions{})
	require.NoError(t, err)

	_, _, found, err := m.FindIn(strings.NewReader(""))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindInCaseSensitivity(t *testing.T) {
	content := "Prefix FOO suffix"

	insensitive, err := NewMatcher("foo", models.SearchOptions{CaseSensitive: false})
	require.NoError(t, err)
	offset, _, found, err := insensitive.FindIn(strings.NewReader(content))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(7), offset)

	sensitive, err := NewMatcher("foo", models.SearchOptions{CaseSensitive: true})
	require.NoError(t, err)
	_, _, found, err = sensitive.FindIn(strings.NewReader(content))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindInMatchStraddlingChunkBoundary(t *testing.T) {
	m, err := NewMatcher("needle", models.SearchOptions{})
	require.NoError(t, err)
	m.chunkSize = 16

	// Place the pattern so it spans the first read window boundary.
	content := strings.Repeat("a", 18) + "needle" + strings.Repeat("b", 30)
	offset, _, found, err := m.FindIn(strings.NewReader(content))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(18), offset)
}

func TestFindInMatchInLaterChunk(t *testing.T) {
	m, err := NewMatcher("zz", models.SearchOptions{})
	require.NoError(t, err)
	m.chunkSize = 8

	content := strings.Repeat("a", 100) + "zz"
	offset, _, found, err := m.FindIn(strings.NewReader(content))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(100), offset)
}

func TestExtractSnippetSanitizesControlCharacters(t *testing.T) {
	window := []byte("before\x00\x01foo\nafter")
	idx := strings.Index(string(window), "foo")

	snippet := extractSnippet(window, idx, 3)
	assert.Contains(t, snippet, "foo")
	assert.NotContains(t, snippet, "\x00")
	assert.NotContains(t, snippet, "\n")
}

func TestExtractSnippetClampsToWindow(t *testing.T) {
	window := []byte("foo")
	snippet := extractSnippet(window, 0, 3)
	assert.Equal(t, "foo", snippet)
}
