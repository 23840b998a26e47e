package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type ScanOptions struct {
	Root       string
	RootHandle *os.Root
	MaxDepth   int
	SkipDirs   map[string]struct{}
	Log        *zap.Logger
}

// runScanStream walks the tree under the root handle and streams one
// scanFolderMsg per discovered backup folder, plus throttled progress.
// Traversal failures are never fatal: unreadable entries are skipped and
// the walk continues with siblings. An unreadable root yields an empty
// result set.
func runScanStream(ctx context.Context, opts ScanOptions, id int, out chan<- tea.Msg) {
	defer close(out)

	logger := opts.Log
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.RootHandle == nil {
		out <- scanFinishedMsg{ID: id, Err: errors.New("scan: root handle is nil")}
		return
	}

	start := time.Now()
	visited := 0
	found := 0
	lastProgress := time.Now()

	sendProgress := func(force bool) {
		if force || time.Since(lastProgress) > 200*time.Millisecond {
			out <- scanProgressMsg{ID: id, Visited: visited, Found: found}
			lastProgress = time.Now()
		}
	}

	maxDepth := opts.MaxDepth
	rootFS := opts.RootHandle.FS()

	err := fs.WalkDir(rootFS, ".", func(p string, entry fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Debug("scan: skipping entry", zap.String("path", p), zap.Error(err))
			if p == "." {
				return fs.SkipAll
			}
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !entry.IsDir() {
			return nil
		}

		visited++
		sendProgress(false)
		name := entry.Name()
		if _, ok := opts.SkipDirs[name]; ok {
			return fs.SkipDir
		}
		if entry.Type()&os.ModeSymlink != 0 {
			return fs.SkipDir
		}
		if maxDepth > 0 && relativeDepth(p) > maxDepth {
			return fs.SkipDir
		}

		if name == backupDirName {
			if folder := readBackupFolder(rootFS, p, logger); folder != nil {
				found++
				out <- scanFolderMsg{ID: id, Folder: folder}
				sendProgress(true)
			}
			return fs.SkipDir
		}

		return nil
	})

	if errors.Is(err, context.Canceled) {
		err = nil
	}

	sendProgress(true)
	out <- scanFinishedMsg{
		ID:      id,
		Err:     err,
		Elapsed: time.Since(start),
		Visited: visited,
		Found:   found,
	}
}

// readBackupFolder shallowly lists a backup directory and collects its
// archive files. Entries that cannot be stat'ed are skipped. Returns nil
// when no archive is present, in which case the directory is not
// recorded at all.
func readBackupFolder(rootFS fs.FS, relPath string, logger *zap.Logger) *BackupFolder {
	entries, err := fs.ReadDir(rootFS, relPath)
	if err != nil {
		logger.Debug("scan: unreadable backup folder", zap.String("path", relPath), zap.Error(err))
		return nil
	}

	files := make([]*FileEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), backupExt) {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			logger.Debug("scan: skipping archive", zap.String("name", entry.Name()), zap.Error(infoErr))
			continue
		}
		files = append(files, &FileEntry{
			Name:    entry.Name(),
			RelPath: filepath.FromSlash(path.Join(relPath, entry.Name())),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	if len(files) == 0 {
		return nil
	}
	return newBackupFolder(filepath.FromSlash(relPath), files)
}

func relativeDepth(relPath string) int {
	trimmed := strings.TrimPrefix(relPath, "./")
	if trimmed == "." || trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/")
}
