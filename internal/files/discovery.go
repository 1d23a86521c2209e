package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path string
	// RelPath is Path relative to the discovery base.
	RelPath string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance. Relative patterns
// are resolved against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindFilesByPattern finds regular files matching a glob pattern, sorted
// by path so runs are reproducible.
func (d *Discovery) FindFilesByPattern(pattern string) ([]FileInfo, error) {
	searchPattern := pattern
	if !filepath.IsAbs(pattern) && d.basePath != "" {
		searchPattern = filepath.Join(d.basePath, pattern)
	}

	matches, err := filepath.Glob(searchPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			RelPath: d.Relative(match),
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// Relative returns path relative to the base, or path itself when it lies
// outside it.
func (d *Discovery) Relative(path string) string {
	if d.basePath == "" {
		return path
	}
	rel, err := filepath.Rel(d.basePath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// Match finds files for pattern and splits off those whose path below the
// base contains any of the exclude substrings.
func (d *Discovery) Match(pattern string, exclude []string) (kept, skipped []FileInfo, err error) {
	found, err := d.FindFilesByPattern(pattern)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range found {
		if ContainsAny(f.RelPath, exclude) {
			skipped = append(skipped, f)
			continue
		}
		kept = append(kept, f)
	}
	return kept, skipped, nil
}

// ContainsAny reports whether s contains any non-empty substring in subs.
func ContainsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
