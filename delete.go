package main

import (
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// cleaner turns delete intents into physical removals and keeps the
// inventory consistent. The in-memory model is only touched after the
// outcome of the filesystem call is known.
type cleaner struct {
	root *os.Root
	inv  *Inventory
	log  *zap.Logger
}

func newCleaner(root *os.Root, inv *Inventory, log *zap.Logger) *cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &cleaner{root: root, inv: inv, log: log}
}

// DeleteFile removes one archive from disk. On success the entry is
// flagged deleted, its size is added to the reclaimed counter, and the
// owning folder's rollups are recomputed. On failure nothing in the
// model changes.
func (c *cleaner) DeleteFile(folder *BackupFolder, file *FileEntry) error {
	cleaned, err := validateDeletePath(file.RelPath)
	if err != nil {
		return err
	}
	if c.root == nil {
		return errors.New("delete: root handle is nil")
	}
	if err := c.root.Remove(cleaned); err != nil {
		c.log.Debug("file delete failed", zap.String("path", cleaned), zap.Error(err))
		return err
	}
	file.Deleted = true
	c.inv.Reclaimed += file.Size
	folder.Recompute()
	return nil
}

// DeleteFolder removes every remaining archive in the folder, best
// effort: a failure on one file does not stop the rest, reclaimed bytes
// only count the files whose removal succeeded, and the folder is marked
// deleted afterwards regardless so it drops out of the active view.
// Returns the bytes freed and the number of files that could not be
// removed.
func (c *cleaner) DeleteFolder(folder *BackupFolder) (int64, int) {
	var freed int64
	failed := 0
	for _, file := range folder.Files {
		if file.Deleted {
			continue
		}
		if err := c.DeleteFile(folder, file); err != nil {
			failed++
			continue
		}
		freed += file.Size
	}
	folder.Recompute()
	folder.Deleted = true

	// Removing the emptied directory is cosmetic; the folder is already
	// hidden either way.
	if cleaned, err := validateDeletePath(folder.RelPath); err == nil && c.root != nil {
		if err := c.root.Remove(cleaned); err != nil {
			c.log.Debug("folder remove failed", zap.String("path", cleaned), zap.Error(err))
		}
	}
	return freed, failed
}

func validateDeletePath(relPath string) (string, error) {
	if relPath == "" {
		return "", errors.New("delete: empty path")
	}
	cleaned := filepath.Clean(relPath)
	if cleaned == "." || cleaned == string(os.PathSeparator) {
		return "", errors.New("delete: refusing to delete root")
	}
	if filepath.IsAbs(cleaned) {
		return "", errors.New("delete: absolute paths are not allowed")
	}
	return cleaned, nil
}
