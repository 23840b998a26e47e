package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func collectScan(t *testing.T, root string, maxDepth int) []*BackupFolder {
	t.Helper()
	handle, err := os.OpenRoot(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	opts := ScanOptions{
		Root:       root,
		RootHandle: handle,
		MaxDepth:   maxDepth,
		SkipDirs:   defaultSkipDirs(),
	}

	ch := make(chan tea.Msg)
	go runScanStream(context.Background(), opts, 1, ch)

	var folders []*BackupFolder
	var finished bool
	for msg := range ch {
		switch msg := msg.(type) {
		case scanFolderMsg:
			folders = append(folders, msg.Folder)
		case scanFinishedMsg:
			finished = true
			assert.NoError(t, msg.Err)
		}
	}
	require.True(t, finished)
	return folders
}

func TestScanFindsFoldersWithArchivesOnly(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "site-a", "wp-content", backupDirName)
	writeFile(t, full, "one.wpress", 100)
	writeFile(t, full, "two.wpress", 200)
	writeFile(t, full, "web.json", 9000)

	empty := filepath.Join(root, "site-b", "wp-content", backupDirName)
	writeFile(t, empty, "readme.txt", 10)

	folders := collectScan(t, root, 0)

	require.Len(t, folders, 1)
	folder := folders[0]
	assert.Equal(t, filepath.Join("site-a", "wp-content", backupDirName), folder.RelPath)
	assert.Equal(t, int64(300), folder.TotalSize)
	assert.Len(t, folder.Files, 2)
}

func TestScanSkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "pkg", backupDirName), "a.wpress", 100)
	writeFile(t, filepath.Join(root, ".git", backupDirName), "b.wpress", 100)
	writeFile(t, filepath.Join(root, "site", backupDirName), "c.wpress", 100)

	folders := collectScan(t, root, 0)

	require.Len(t, folders, 1)
	assert.Equal(t, filepath.Join("site", backupDirName), folders[0].RelPath)
}

func TestScanDoesNotDescendIntoBackupFolder(t *testing.T) {
	root := t.TempDir()
	backups := filepath.Join(root, backupDirName)
	writeFile(t, backups, "top.wpress", 100)
	// Archives below the backup folder itself are out of scope; the
	// scan is shallow.
	writeFile(t, filepath.Join(backups, "nested"), "deep.wpress", 500)

	folders := collectScan(t, root, 0)

	require.Len(t, folders, 1)
	require.Len(t, folders[0].Files, 1)
	assert.Equal(t, "top.wpress", folders[0].Files[0].Name)
	assert.Equal(t, int64(100), folders[0].TotalSize)
}

func TestScanSortsFilesByModTimeDescending(t *testing.T) {
	root := t.TempDir()
	backups := filepath.Join(root, backupDirName)
	now := time.Now()
	oldPath := writeFile(t, backups, "old.wpress", 10)
	newPath := writeFile(t, backups, "new.wpress", 20)
	midPath := writeFile(t, backups, "mid.wpress", 30)
	require.NoError(t, os.Chtimes(oldPath, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	require.NoError(t, os.Chtimes(midPath, now.Add(-24*time.Hour), now.Add(-24*time.Hour)))
	require.NoError(t, os.Chtimes(newPath, now, now))

	folders := collectScan(t, root, 0)

	require.Len(t, folders, 1)
	names := []string{}
	for _, file := range folders[0].Files {
		names = append(names, file.Name)
	}
	assert.Equal(t, []string{"new.wpress", "mid.wpress", "old.wpress"}, names)
	assert.WithinDuration(t, now, folders[0].LastModified, 2*time.Second)
}

func TestScanRespectsDepthLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", backupDirName), "near.wpress", 10)
	writeFile(t, filepath.Join(root, "a", "b", "c", "d", backupDirName), "far.wpress", 10)

	folders := collectScan(t, root, 2)

	require.Len(t, folders, 1)
	assert.Equal(t, filepath.Join("a", backupDirName), folders[0].RelPath)
}

func TestScanIsDeterministic(t *testing.T) {
	root := t.TempDir()
	for _, site := range []string{"alpha", "beta", "gamma"} {
		dir := filepath.Join(root, site, backupDirName)
		writeFile(t, dir, "one.wpress", 100)
		writeFile(t, dir, "two.wpress", 200)
	}

	first := collectScan(t, root, 0)
	second := collectScan(t, root, 0)

	require.Equal(t, len(first), len(second))
	for idx := range first {
		assert.Equal(t, first[idx].RelPath, second[idx].RelPath)
		require.Equal(t, len(first[idx].Files), len(second[idx].Files))
		for fileIdx := range first[idx].Files {
			assert.Equal(t, first[idx].Files[fileIdx].RelPath, second[idx].Files[fileIdx].RelPath)
		}
	}
}

func TestScanEmptyTree(t *testing.T) {
	folders := collectScan(t, t.TempDir(), 0)
	assert.Empty(t, folders)
}

func TestRelativeDepth(t *testing.T) {
	assert.Equal(t, 0, relativeDepth("."))
	assert.Equal(t, 0, relativeDepth("top"))
	assert.Equal(t, 1, relativeDepth("top/child"))
	assert.Equal(t, 2, relativeDepth("top/child/leaf"))
}
