package scan

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/drivescan/internal/models"
)

const (
	// matcherChunkSize is the read buffer for streaming search.
	matcherChunkSize = 64 * 1024
	// snippetContext is how many bytes around the hit end up in the snippet.
	snippetContext = 40
)

// Matcher evaluates the literal search pattern against file content,
// streaming in chunks so arbitrarily large files never load whole.
type Matcher struct {
	pattern       []byte
	caseSensitive bool
	chunkSize     int
}

// NewMatcher creates a matcher for a literal substring pattern.
func NewMatcher(pattern string, opts models.SearchOptions) (*Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("search pattern must not be empty")
	}
	p := []byte(pattern)
	if !opts.CaseSensitive {
		p = bytes.ToLower(p)
	}
	return &Matcher{
		pattern:       p,
		caseSensitive: opts.CaseSensitive,
		chunkSize:     matcherChunkSize,
	}, nil
}

// FindIn scans r for the first occurrence of the pattern. Returns the byte
// offset of the hit and a sanitized snippet of surrounding content.
// Chunks overlap by len(pattern)-1 bytes so a hit straddling a chunk
// boundary is never missed.
func (m *Matcher) FindIn(r io.Reader) (offset int64, snippet string, found bool, err error) {
	overlap := len(m.pattern) - 1
	buf := make([]byte, m.chunkSize+overlap)
	carry := 0      // bytes carried over from the previous chunk
	base := int64(0) // stream offset of buf[0]

	for {
		n, readErr := io.ReadFull(r, buf[carry:])
		window := buf[:carry+n]
		if len(window) == 0 {
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				return 0, "", false, nil
			}
			return 0, "", false, readErr
		}

		haystack := window
		if !m.caseSensitive {
			haystack = bytes.ToLower(window)
		}
		if idx := bytes.Index(haystack, m.pattern); idx >= 0 {
			return base + int64(idx), extractSnippet(window, idx, len(m.pattern)), true, nil
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return 0, "", false, nil
		}
		if readErr != nil {
			return 0, "", false, readErr
		}

		// Keep the tail so a straddling match survives the boundary.
		if overlap > 0 && len(window) >= overlap {
			copy(buf, window[len(window)-overlap:])
			carry = overlap
		} else {
			carry = 0
		}
		base += int64(len(window) - carry)
	}
}

// extractSnippet returns printable context around a hit, with control
// characters collapsed to spaces.
func extractSnippet(window []byte, idx, patternLen int) string {
	start := idx - snippetContext
	if start < 0 {
		start = 0
	}
	end := idx + patternLen + snippetContext
	if end > len(window) {
		end = len(window)
	}

	var sb strings.Builder
	for _, b := range window[start:end] {
		if b < 0x20 || b == 0x7F {
			sb.WriteByte(' ')
		} else {
			sb.WriteByte(b)
		}
	}
	return strings.TrimSpace(sb.String())
}
