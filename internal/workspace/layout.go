// Package workspace implements the on-disk workspace layout and the
// backup/restore manager of C7: the `.drift/` directory tree, and
// checksum-verified, retention-enforced backups of it under a sibling
// `.drift-backups/` directory (§4.7).
package workspace

import "path/filepath"

// Layout resolves every well-known path under a workspace root (§4.7's
// ".drift/{config.json, patterns/..., lake/callgraph/files/*.json,
// views/*.json, history/snapshots/*, cache/**}").
type Layout struct {
	root string
}

// NewLayout binds a Layout to root (typically "<repo>/.drift").
func NewLayout(root string) *Layout {
	return &Layout{root: root}
}

// Root returns the workspace root directory.
func (l *Layout) Root() string { return l.root }

// ConfigPath is config.json's path.
func (l *Layout) ConfigPath() string { return filepath.Join(l.root, "config.json") }

// PatternsDir is patterns/<status>.
func (l *Layout) PatternsDir(status string) string {
	return filepath.Join(l.root, "patterns", status)
}

// CallgraphShardsDir is lake/callgraph/files.
func (l *Layout) CallgraphShardsDir() string {
	return filepath.Join(l.root, "lake", "callgraph", "files")
}

// ViewsDir is views/.
func (l *Layout) ViewsDir() string { return filepath.Join(l.root, "views") }

// SnapshotsDir is history/snapshots/.
func (l *Layout) SnapshotsDir() string { return filepath.Join(l.root, "history", "snapshots") }

// CacheDir is cache/.
func (l *Layout) CacheDir() string { return filepath.Join(l.root, "cache") }

// skipSegments names the path segments (relative to root) that a backup
// never walks into: cache and snapshots are regenerable, and .backups
// would otherwise recursively back itself up if nested under root.
var skipSegments = map[string]bool{
	"cache":             true,
	"history/snapshots": true,
	".backups":          true,
}
