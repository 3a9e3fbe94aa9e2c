// Package walker implements the deterministic recursive enumeration of a
// backup source tree.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"

	apperror "github.com/drinkcat/simple-serac/error"
)

// Walk returns the sorted, root-relative paths of every regular file and
// symlink reachable under root without following directory symlinks.
// Directories are never emitted. Sockets, FIFOs, and device nodes abort the
// walk with UnsupportedFileKind rather than being silently skipped.
func Walk(root string) ([]string, error) {
	root = filepath.Clean(root)

	var names []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, dirent *godirwalk.Dirent) error {
			if path == root {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return fmt.Errorf("walk: %s is not under root %s: %w", path, root, err)
			}
			if rel == "." || strings.HasPrefix(rel, "..") {
				return fmt.Errorf("walk: %s escaped root %s", path, root)
			}
			rel = filepath.ToSlash(rel)

			if dirent.IsDir() {
				return nil
			}

			kind, err := classify(path, dirent)
			if err != nil {
				return err
			}
			if kind != "" {
				return &apperror.UnsupportedFileKind{Path: rel, Kind: kind}
			}

			names = append(names, rel)
			return nil
		},
		FollowSymbolicLinks: false,
		Unsorted:            true,
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// classify returns a non-empty kind name for anything that is neither a
// regular file, a directory, nor a symlink.
func classify(path string, dirent *godirwalk.Dirent) (string, error) {
	if dirent.IsRegular() || dirent.IsSymlink() {
		return "", nil
	}

	// godirwalk's Dirent type does not expose device/socket/FIFO bits
	// directly on all platforms; fall back to a Lstat to classify exactly.
	fi, err := os.Lstat(path)
	if err != nil {
		return "", err
	}

	mode := fi.Mode()
	switch {
	case mode&os.ModeSocket != 0:
		return "socket", nil
	case mode&os.ModeNamedPipe != 0:
		return "fifo", nil
	case mode&os.ModeDevice != 0:
		return "device", nil
	case mode&os.ModeIrregular != 0:
		return "irregular", nil
	default:
		return "unknown", nil
	}
}
