// walk.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// filePair joins a source file with its mirrored destination path. Dest is
// empty when the enumeration was not given a destination root.
type filePair struct {
	Source string
	Dest   string
}

// enumerateByDir recursively collects files under sourceDir, grouped by their
// subdirectory relative to sourceDir. Files are kept only when their name ends
// with one of extensions (nil or empty matches everything). When destDir is
// non-empty every pair carries the path of the file rebased onto destDir.
// When baseDir is non-empty, sourceDir must live inside it.
func enumerateByDir(sourceDir, destDir, baseDir string, extensions []string) (map[string][]filePair, error) {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a valid directory", errBadPath, sourceDir)
	}
	if baseDir != "" && !isWithin(baseDir, sourceDir) {
		return nil, fmt.Errorf("%w: source dir %s not inside base dir %s", errBadPath, sourceDir, baseDir)
	}

	pairs := make(map[string][]filePair)
	err = filepath.Walk(sourceDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !matchesExtension(fi.Name(), extensions) {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		relDir := filepath.Dir(rel)
		if relDir == "." {
			relDir = ""
		}
		pair := filePair{Source: path}
		if destDir != "" {
			pair.Dest = filepath.Join(destDir, rel)
		}
		pairs[relDir] = append(pairs[relDir], pair)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", sourceDir, err)
	}
	return pairs, nil
}

func matchesExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func isWithin(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// pairsToItems flattens an enumeration into runner work items, keyed by the
// source path.
func pairsToItems(pairs map[string][]filePair) []WorkItem {
	var items []WorkItem
	for _, flist := range pairs {
		for _, p := range flist {
			items = append(items, WorkItem{Key: p.Source, Source: p.Source, Dest: p.Dest})
		}
	}
	return items
}

// copyFile copies one file preserving its modification time, creating parent
// directories as needed.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	if fi, err := os.Stat(src); err == nil {
		_ = os.Chtimes(dst, fi.ModTime(), fi.ModTime())
	}
	return nil
}
