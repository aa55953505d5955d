// Package fileutil looks up input files without regard to letter case. Game
// data copied from DOS media is usually upper case (MUSIC.XMI) while users
// type lower case names.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FindFileCaseInsensitive searches dir on disk for a regular file whose name
// matches filename ignoring case and returns its actual path.
//
// Example:
//
//	path, err := FindFileCaseInsensitive("/games/ultima", "music.xmi")
//	// finds "MUSIC.XMI", "Music.xmi", ...
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	name, err := match(entries, dir, filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// FindFileCaseInsensitiveFS is FindFileCaseInsensitive over an fs.FS. The
// returned path uses forward slashes.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	name, err := match(entries, dir, filename)
	if err != nil {
		return "", err
	}
	return path.Join(dir, name), nil
}

func match(entries []fs.DirEntry, dir, filename string) (string, error) {
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return entry.Name(), nil
		}
	}
	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}
