package logger

import (
	"fmt"
	"sync"
)

// ProgressBar renders an ASCII progress bar for scan progress, with optional
// ANSI color. Percent-based rather than count-based because the scan total
// is an estimate that can change mid-flight.
type ProgressBar struct {
	percent     float64
	width       int
	enableColor bool
	prefix      string
	mu          sync.RWMutex
}

// NewProgressBar creates a progress bar of the given character width.
func NewProgressBar(width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{
		width:       width,
		enableColor: enableColor,
	}
}

// Update sets the current percentage. Values outside [0,100] are clamped,
// never rejected: processed counts can transiently exceed an estimate.
func (pb *ProgressBar) Update(percent float64) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	pb.percent = percent
}

// Percent returns the current clamped percentage.
func (pb *ProgressBar) Percent() float64 {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.percent
}

// SetPrefix sets a custom prefix shown before the bar.
func (pb *ProgressBar) SetPrefix(prefix string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.prefix = prefix
}

// Render generates the ASCII progress bar string.
func (pb *ProgressBar) Render() string {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	filled := int(pb.percent) * pb.width / 100
	if filled > pb.width {
		filled = pb.width
	}

	bar := "["
	for i := 0; i < pb.width; i++ {
		if i < filled {
			bar += "="
		} else {
			bar += " "
		}
	}
	bar += "]"

	result := fmt.Sprintf("%s%s %.1f%%", pb.prefix, bar, pb.percent)

	if pb.enableColor && pb.percent < 100 {
		result = fmt.Sprintf("\033[36m%s\033[0m", result) // Cyan for in-progress
	} else if pb.enableColor && pb.percent >= 100 {
		result = fmt.Sprintf("\033[32m%s\033[0m", result) // Green for complete
	}

	return result
}
