package main

import (
	"sort"
	"time"
)

// FileEntry is one discovered backup archive. RelPath is relative to the
// scan root and is the stable identity used for deletion; Deleted is a
// soft flag so that entries are hidden rather than removed from their
// folder's list.
type FileEntry struct {
	Name    string
	RelPath string
	Size    int64
	ModTime time.Time
	Deleted bool
}

// BackupFolder is one discovered backup directory. Files is fixed at
// creation and sorted by modification time descending. TotalSize and
// LastModified are cached rollups over the non-deleted files and must be
// refreshed through Recompute whenever a file's Deleted flag changes.
type BackupFolder struct {
	RelPath      string
	Files        []*FileEntry
	TotalSize    int64
	LastModified time.Time
	Deleted      bool
}

func newBackupFolder(relPath string, files []*FileEntry) *BackupFolder {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	folder := &BackupFolder{RelPath: relPath, Files: files}
	folder.Recompute()
	return folder
}

// Recompute refreshes the rollups from the non-deleted files. A folder
// with nothing left is marked deleted; LastModified keeps its last known
// value in that case since no file remains to report.
func (f *BackupFolder) Recompute() {
	var total int64
	var last time.Time
	remaining := 0
	for _, file := range f.Files {
		if file.Deleted {
			continue
		}
		remaining++
		total += file.Size
		if file.ModTime.After(last) {
			last = file.ModTime
		}
	}
	f.TotalSize = total
	if remaining == 0 {
		f.Deleted = true
		return
	}
	f.LastModified = last
}

// VisibleFiles returns the non-deleted files in stored order.
func (f *BackupFolder) VisibleFiles() []*FileEntry {
	files := make([]*FileEntry, 0, len(f.Files))
	for _, file := range f.Files {
		if !file.Deleted {
			files = append(files, file)
		}
	}
	return files
}

// FileCount reports how many files are still visible.
func (f *BackupFolder) FileCount() int {
	count := 0
	for _, file := range f.Files {
		if !file.Deleted {
			count++
		}
	}
	return count
}

// Inventory holds the scan result plus the session's reclaimed-byte
// counter. Folders are sorted by size once, when the scan finishes, and
// keep that relative order for the rest of the session no matter how
// deletions shrink them.
type Inventory struct {
	Folders   []*BackupFolder
	Reclaimed int64
}

func newInventory(folders []*BackupFolder) *Inventory {
	sort.SliceStable(folders, func(i, j int) bool {
		return folders[i].TotalSize > folders[j].TotalSize
	})
	return &Inventory{Folders: folders}
}

// VisibleFolders returns the non-deleted folders in the fixed
// size-descending order. Indices into the result are only valid until
// the next mutation; callers re-derive the slice before using one.
func (inv *Inventory) VisibleFolders() []*BackupFolder {
	folders := make([]*BackupFolder, 0, len(inv.Folders))
	for _, folder := range inv.Folders {
		if !folder.Deleted {
			folders = append(folders, folder)
		}
	}
	return folders
}

// VisibleSize sums the rollups of the non-deleted folders.
func (inv *Inventory) VisibleSize() int64 {
	var total int64
	for _, folder := range inv.Folders {
		if !folder.Deleted {
			total += folder.TotalSize
		}
	}
	return total
}
