package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// localFile is one (name, path) pair produced by a directory scan.
// Name is NFC-normalized so it keys consistently against remote names
// regardless of the local filesystem's normalization form.
type localFile struct {
	name string
	path string
}

// scanDir lists the regular files directly inside dir whose names pass
// the match predicate (nil matches everything). A missing directory
// yields an empty list.
func scanDir(dir string, match func(name string) bool) ([]localFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("sync: reading %s: %w", dir, err)
	}

	var files []localFile

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := norm.NFC.String(e.Name())
		if match != nil && !match(name) {
			continue
		}

		files = append(files, localFile{name: name, path: filepath.Join(dir, e.Name())})
	}

	return files, nil
}

// isTextEntry matches flat diary entry files.
func isTextEntry(name string) bool {
	return strings.HasSuffix(name, ".txt")
}

// fileModifiedTime returns a file's modification time as an RFC 3339
// UTC string, the representation stored in sync metadata.
func fileModifiedTime(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("sync: stat %s: %w", path, err)
	}

	return info.ModTime().UTC().Format(time.RFC3339), nil
}

// fileSize returns a file's size in bytes.
func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("sync: stat %s: %w", path, err)
	}

	return info.Size(), nil
}

// compareTimestamps orders two RFC 3339 timestamp strings. Returns a
// positive value when a is later than b. Unparsable values fall back
// to lexicographic comparison, which sorts RFC 3339 UTC correctly.
func compareTimestamps(a, b string) int {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)

	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}

	return ta.Compare(tb)
}
