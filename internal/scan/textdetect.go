package scan

import (
	"io"
	"os"
)

const (
	// textSampleSize is how many leading bytes are sampled for detection.
	textSampleSize = 2048
	// maxNonTextRatio is the binary-byte fraction above which a file is
	// considered non-text.
	maxNonTextRatio = 0.10
)

// textBytes marks byte values expected in text content: common control
// characters plus everything from space upward (covers UTF-8 continuation
// bytes as well).
var textBytes = buildTextByteTable()

func buildTextByteTable() [256]bool {
	var table [256]bool
	for _, b := range []byte{7, 8, 9, 10, 12, 13, 27} {
		table[b] = true
	}
	for b := 0x20; b <= 0xFF; b++ {
		table[b] = true
	}
	return table
}

// isTextSample reports whether a content sample looks like text. Empty
// samples are not text.
func isTextSample(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	nonText := 0
	for _, b := range sample {
		if !textBytes[b] {
			nonText++
		}
	}
	return float64(nonText)/float64(len(sample)) < maxNonTextRatio
}

// isTextFile samples the start of the file at path. Unreadable files are
// reported as non-text; the caller decides how to account for them.
func isTextFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sample := make([]byte, textSampleSize)
	n, err := f.Read(sample)
	if err != nil && err != io.EOF {
		return false
	}
	return isTextSample(sample[:n])
}
