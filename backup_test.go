package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func entry(name string, size int64, mod time.Time) *FileEntry {
	return &FileEntry{Name: name, RelPath: "wp-content/ai1wm-backups/" + name, Size: size, ModTime: mod}
}

func TestNewBackupFolderSortsAndRollsUp(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	folder := newBackupFolder("wp-content/ai1wm-backups", []*FileEntry{
		entry("old.wpress", 100, base.Add(-48*time.Hour)),
		entry("new.wpress", 200, base),
		entry("mid.wpress", 50, base.Add(-24*time.Hour)),
	})

	assert.Equal(t, int64(350), folder.TotalSize)
	assert.Equal(t, base, folder.LastModified)
	assert.False(t, folder.Deleted)
	assert.Equal(t, "new.wpress", folder.Files[0].Name)
	assert.Equal(t, "mid.wpress", folder.Files[1].Name)
	assert.Equal(t, "old.wpress", folder.Files[2].Name)
}

func TestRecomputeIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	folder := newBackupFolder("wp-content/ai1wm-backups", []*FileEntry{
		entry("a.wpress", 100, base),
		entry("b.wpress", 200, base.Add(-time.Hour)),
	})
	folder.Files[1].Deleted = true

	folder.Recompute()
	size, last, deleted := folder.TotalSize, folder.LastModified, folder.Deleted

	folder.Recompute()
	assert.Equal(t, size, folder.TotalSize)
	assert.Equal(t, last, folder.LastModified)
	assert.Equal(t, deleted, folder.Deleted)
	assert.Equal(t, int64(100), folder.TotalSize)
}

func TestRecomputeMarksEmptyFolderDeleted(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	folder := newBackupFolder("wp-content/ai1wm-backups", []*FileEntry{
		entry("a.wpress", 100, base),
	})
	folder.Files[0].Deleted = true
	folder.Recompute()

	assert.True(t, folder.Deleted)
	assert.Equal(t, int64(0), folder.TotalSize)
	assert.Empty(t, folder.VisibleFiles())
}

func TestVisibleFilesFiltersDeleted(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	folder := newBackupFolder("wp-content/ai1wm-backups", []*FileEntry{
		entry("a.wpress", 100, base),
		entry("b.wpress", 200, base.Add(-time.Hour)),
		entry("c.wpress", 300, base.Add(-2*time.Hour)),
	})
	folder.Files[1].Deleted = true
	folder.Recompute()

	files := folder.VisibleFiles()
	assert.Len(t, files, 2)
	assert.Equal(t, "a.wpress", files[0].Name)
	assert.Equal(t, "c.wpress", files[1].Name)
	for _, file := range files {
		assert.False(t, file.Deleted)
	}
}

func TestInventorySortedBySizeDescending(t *testing.T) {
	base := time.Now()
	small := newBackupFolder("site-b/ai1wm-backups", []*FileEntry{entry("s.wpress", 100, base)})
	big := newBackupFolder("site-a/ai1wm-backups", []*FileEntry{entry("b.wpress", 500, base)})
	mid := newBackupFolder("site-c/ai1wm-backups", []*FileEntry{entry("m.wpress", 300, base)})

	inv := newInventory([]*BackupFolder{small, big, mid})

	assert.Equal(t, []*BackupFolder{big, mid, small}, inv.Folders)
	assert.Equal(t, int64(900), inv.VisibleSize())
}

func TestVisibleFoldersFiltersDeletedAndKeepsOrder(t *testing.T) {
	base := time.Now()
	first := newBackupFolder("a/ai1wm-backups", []*FileEntry{entry("a.wpress", 300, base)})
	second := newBackupFolder("b/ai1wm-backups", []*FileEntry{entry("b.wpress", 200, base)})
	third := newBackupFolder("c/ai1wm-backups", []*FileEntry{entry("c.wpress", 100, base)})
	inv := newInventory([]*BackupFolder{third, first, second})

	second.Deleted = true
	assert.Equal(t, []*BackupFolder{first, third}, inv.VisibleFolders())
}

func TestFolderOrderStableAfterShrinking(t *testing.T) {
	base := time.Now()
	big := newBackupFolder("a/ai1wm-backups", []*FileEntry{
		entry("a1.wpress", 400, base),
		entry("a2.wpress", 100, base.Add(-time.Hour)),
	})
	small := newBackupFolder("b/ai1wm-backups", []*FileEntry{entry("b.wpress", 200, base)})
	inv := newInventory([]*BackupFolder{small, big})

	// Shrink the big folder below the small one; the relative order is
	// fixed at scan time and must not change.
	big.Files[0].Deleted = true
	big.Recompute()

	assert.Equal(t, int64(100), big.TotalSize)
	assert.Equal(t, []*BackupFolder{big, small}, inv.VisibleFolders())
}

func TestMonotonicEmptiness(t *testing.T) {
	base := time.Now()
	folder := newBackupFolder("a/ai1wm-backups", []*FileEntry{entry("a.wpress", 100, base)})
	other := newBackupFolder("b/ai1wm-backups", []*FileEntry{entry("b.wpress", 50, base)})
	inv := newInventory([]*BackupFolder{folder, other})

	folder.Files[0].Deleted = true
	folder.Recompute()

	assert.True(t, folder.Deleted)
	for range 3 {
		folder.Recompute()
		assert.True(t, folder.Deleted)
		assert.Equal(t, []*BackupFolder{other}, inv.VisibleFolders())
	}
}
