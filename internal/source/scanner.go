package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxScanDepth limits directory scans to the top level plus one subdirectory level.
const maxScanDepth = 2

// ScanPath resolves a ledger path into CSV files. A file path is returned as-is
// regardless of extension; a directory is walked for *.csv files. Results are
// sorted by path so merges are deterministic.
func ScanPath(path string) ([]DiscoveredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
	}
	if !info.IsDir() {
		return []DiscoveredFile{{Path: path, Name: filepath.Base(path), Size: info.Size()}}, nil
	}

	root := filepath.Clean(path)
	var files []DiscoveredFile

	err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil //nolint:nilerr // skip unreadable entries below the root
		}
		rel, _ := filepath.Rel(root, p)
		depth := len(strings.Split(rel, string(filepath.Separator)))
		if d.IsDir() {
			if p != root && depth >= maxScanDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), ".csv") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished mid-scan
		}
		files = append(files, DiscoveredFile{Path: p, Name: rel, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
