package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	filePrefix = "index_"
	fileSuffix = ".json"
)

// FileWriter stores serialized snapshots in dataDir and keeps only the
// newest files.
type FileWriter struct {
	dataDir string
	keep    int
	now     func() time.Time
}

// NewFileWriter creates a FileWriter. keep <= 0 keeps every file.
func NewFileWriter(dataDir string, keep int) *FileWriter {
	return &FileWriter{dataDir: dataDir, keep: keep, now: time.Now}
}

// Write atomically creates a new snapshot file. It writes to a .tmp file
// first, syncs it and renames on success.
func (w *FileWriter) Write(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("cannot write empty snapshot")
	}
	dir := w.dataDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	name := fmt.Sprintf("%s%d%s", filePrefix, w.now().UnixNano(), fileSuffix)
	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp export file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming snapshot: %w", err)
	}
	if err := w.prune(dir); err != nil {
		return finalPath, fmt.Errorf("pruning old snapshots: %w", err)
	}
	return finalPath, nil
}

// Latest returns the path of the newest snapshot, or "" when none exists.
func (w *FileWriter) Latest() (string, error) {
	names, err := w.list(w.dataDir)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return filepath.Join(w.dataDir, names[len(names)-1]), nil
}

// list returns snapshot file names oldest first. Names embed a fixed-width
// nanosecond timestamp, so lexical order is chronological.
func (w *FileWriter) list(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading export directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (w *FileWriter) prune(dir string) error {
	if w.keep <= 0 {
		return nil
	}
	names, err := w.list(dir)
	if err != nil {
		return err
	}
	for len(names) > w.keep {
		if err := os.Remove(filepath.Join(dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}
