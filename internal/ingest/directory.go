package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

type FileEntry struct {
	Path string
	Name string // base name as uploaded
	Size int64
}

type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Unmatched uint32
	Failed    uint32
}

type ScanOptions struct {
	Recursive  bool
	SkipHidden bool
	// OnlySupported drops files whose extension has no extraction strategy.
	// When false they are returned so the orchestrator can report them as skipped.
	OnlySupported bool
}

// ScanDirectory lists regular files under root in lexical path order.
// Walk errors on individual entries are counted and skipped.
func ScanDirectory(root string, opts ScanOptions) ([]FileEntry, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var (
		out   []FileEntry
		stats DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			return nil // continue walking
		}
		if path != root && opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			stats.Unmatched++
			if opts.OnlySupported {
				return nil
			}
		} else {
			stats.Matched++
		}
		info, err := d.Info()
		if err != nil {
			stats.Failed++
			return nil
		}
		out = append(out, FileEntry{Path: path, Name: d.Name(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, stats, nil
}
