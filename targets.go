package main

// backupDirName is the folder All-in-One WP Migration writes its export
// archives into, usually under wp-content/.
const backupDirName = "ai1wm-backups"

// backupExt is the archive extension the plugin produces.
const backupExt = ".wpress"

// defaultSkipDirs are pruned during traversal without descending.
// Dependency trees are huge and version-control metadata never contains
// a live backup folder.
func defaultSkipDirs() map[string]struct{} {
	return map[string]struct{}{
		".git":             {},
		".hg":              {},
		".svn":             {},
		"node_modules":     {},
		"vendor":           {},
		"bower_components": {},
	}
}
