// Package scan implements the concurrent, resumable scan engine: the
// deterministic drive walker, counting and searching workers, and the
// controller that orchestrates their lifecycle.
package scan

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// WalkOptions configures which parts of a drive a walk visits.
type WalkOptions struct {
	// ExcludePrefixes are absolute path prefixes skipped entirely
	// (system directories, other drives' mount points).
	ExcludePrefixes []string
	// ExcludeNames are directory base names skipped anywhere in the tree.
	ExcludeNames []string
	// IncludeHidden visits dot-directories and dot-files.
	IncludeHidden bool
}

// errWalkCancelled signals a cooperative stop; it is translated back to
// ctx.Err() at the walk boundary.
var errWalkCancelled = fs.SkipAll

// walkFiles visits every regular file under root in lexical path order,
// which makes "skip the first K files" well-defined across resumes.
//
// Cancellation is observed at directory boundaries. Unreadable subtrees are
// skipped and counted, never fatal: the walk continues and the per-drive
// error tally grows. Returns the number of skipped entries and ctx.Err()
// when the walk was cancelled.
func walkFiles(ctx context.Context, root string, opts WalkOptions, fn func(path string, d fs.DirEntry) error) (skipped int64, err error) {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Permission or I/O failure on this entry: skip the subtree.
			skipped++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			// Directory boundary: cancellation checkpoint.
			if ctx.Err() != nil {
				return errWalkCancelled
			}
			if path != root && excludeDir(path, d.Name(), opts) {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if !opts.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if hasExcludedPrefix(path, opts.ExcludePrefixes) {
			return nil
		}
		return fn(path, d)
	})

	if ctx.Err() != nil {
		return skipped, ctx.Err()
	}
	return skipped, walkErr
}

func excludeDir(path, name string, opts WalkOptions) bool {
	if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, excluded := range opts.ExcludeNames {
		if name == excluded {
			return true
		}
	}
	return hasExcludedPrefix(path, opts.ExcludePrefixes)
}

func hasExcludedPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// walkOptionsFor builds the walk options for one drive: the configured
// system exclusions plus every other drive's mount point, so concurrent
// walks never cross into each other's volumes and no file is counted twice.
func walkOptionsFor(driveID string, allDrives []string, excludeDirs []string, includeHidden bool) WalkOptions {
	opts := WalkOptions{IncludeHidden: includeHidden}
	for _, dir := range excludeDirs {
		if filepath.IsAbs(dir) {
			opts.ExcludePrefixes = append(opts.ExcludePrefixes, dir)
		} else {
			opts.ExcludeNames = append(opts.ExcludeNames, dir)
		}
	}
	for _, other := range allDrives {
		if other != driveID && nestedUnder(other, driveID) {
			opts.ExcludePrefixes = append(opts.ExcludePrefixes, other)
		}
	}
	return opts
}

// nestedUnder reports whether mount point child lies inside root's subtree.
func nestedUnder(child, root string) bool {
	if root == "/" {
		return child != "/"
	}
	return strings.HasPrefix(child, strings.TrimSuffix(root, "/")+"/")
}
