package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) (*Layout, *Manager) {
	t.Helper()
	root := filepath.Join(t.TempDir(), ".drift")
	layout := NewLayout(root)
	require.NoError(t, layout.Init("1.0.0-test"))
	mgr := NewManager(layout)
	return layout, mgr
}

func TestLayoutInitCreatesTreeAndConfig(t *testing.T) {
	layout, _ := newTestWorkspace(t)

	assert.DirExists(t, layout.PatternsDir("approved"))
	assert.DirExists(t, layout.CallgraphShardsDir())
	assert.DirExists(t, layout.ViewsDir())
	assert.DirExists(t, layout.SnapshotsDir())
	assert.DirExists(t, layout.CacheDir())
	assert.FileExists(t, layout.ConfigPath())

	cfg, err := layout.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-test", cfg.DriftVersion)
	assert.True(t, cfg.AutoBackup)
	assert.Equal(t, 10, cfg.MaxBackups)
}

func TestCreateBackupProducesVerifiableManifest(t *testing.T) {
	layout, mgr := newTestWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(layout.PatternsDir("approved"), "p1.json"), []byte(`{"id":"p1"}`), 0o644))

	result, err := mgr.CreateBackup("manual", "1.0.0-test")
	require.NoError(t, err)
	assert.NotEmpty(t, result.BackupID)
	assert.Len(t, result.BackupID, 8)
	assert.Greater(t, result.FileCount, 0)
	assert.NotEmpty(t, result.Checksum)

	var manifest BackupManifest
	require.NoError(t, readJSON(filepath.Join(result.Path, manifestFileName), &manifest))
	assert.Equal(t, result.Checksum, manifest.Checksum)
	assert.Contains(t, manifest.Files, "config.json")
}

func TestCreateBackupSkipsCacheAndSnapshots(t *testing.T) {
	layout, mgr := newTestWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(layout.CacheDir(), "scratch.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(layout.SnapshotsDir(), "s1.json"), []byte("{}"), 0o644))

	result, err := mgr.CreateBackup("manual", "1.0.0-test")
	require.NoError(t, err)

	var manifest BackupManifest
	require.NoError(t, readJSON(filepath.Join(result.Path, manifestFileName), &manifest))
	for _, f := range manifest.Files {
		assert.NotContains(t, f, "cache/")
		assert.NotContains(t, f, "history/snapshots/")
	}
}

func TestRestoreRejectsTamperedBackup(t *testing.T) {
	layout, mgr := newTestWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(layout.PatternsDir("approved"), "p1.json"), []byte(`{"id":"p1"}`), 0o644))
	result, err := mgr.CreateBackup("manual", "1.0.0-test")
	require.NoError(t, err)

	manifestPath := filepath.Join(result.Path, manifestFileName)
	var manifest BackupManifest
	require.NoError(t, readJSON(manifestPath, &manifest))
	manifest.Checksum = "deadbeef"
	require.NoError(t, writeJSON(manifestPath, manifest))

	_, err = mgr.Restore(result.BackupID, "1.0.0-test")
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestRestoreRoundTripsContentAndTakesSafetyBackup(t *testing.T) {
	layout, mgr := newTestWorkspace(t)
	patternPath := filepath.Join(layout.PatternsDir("approved"), "p1.json")
	require.NoError(t, os.WriteFile(patternPath, []byte(`{"id":"p1"}`), 0o644))

	result, err := mgr.CreateBackup("manual", "1.0.0-test")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(patternPath, []byte(`{"id":"corrupted"}`), 0o644))

	restoreResult, err := mgr.Restore(result.BackupID, "1.0.0-test")
	require.NoError(t, err)
	assert.NotEmpty(t, restoreResult.SafetyBackupID)
	assert.Greater(t, restoreResult.RestoredFiles, 0)

	content, err := os.ReadFile(patternPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p1"}`, string(content))

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(backups), 2)
}

func TestCreateBackupEnforcesRetention(t *testing.T) {
	layout, mgr := newTestWorkspace(t)
	cfg, err := layout.LoadConfig()
	require.NoError(t, err)
	cfg.MaxBackups = 2
	require.NoError(t, layout.SaveConfig(cfg))

	var lastID string
	for i := 0; i < 4; i++ {
		result, err := mgr.CreateBackup("manual", "1.0.0-test")
		require.NoError(t, err)
		lastID = result.BackupID
	}

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 2)
	assert.Equal(t, lastID, backups[0].BackupID)
}

func TestDeleteBackupRequiresLiteralToken(t *testing.T) {
	_, mgr := newTestWorkspace(t)
	result, err := mgr.CreateBackup("manual", "1.0.0-test")
	require.NoError(t, err)

	err = mgr.DeleteBackup(result.BackupID, "yes please")
	assert.ErrorIs(t, err, ErrDeleteTokenRequired)

	err = mgr.DeleteBackup(result.BackupID, "DELETE")
	assert.NoError(t, err)

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestShouldBackupMatchesDefaultReasons(t *testing.T) {
	assert.True(t, ShouldBackup(true, "migrate-patterns"))
	assert.True(t, ShouldBackup(true, "reset:cache"))
	assert.False(t, ShouldBackup(true, "scan"))
	assert.False(t, ShouldBackup(false, "delete-all"))
}

func TestConcurrentBackupCreationIsLocked(t *testing.T) {
	_, mgr := newTestWorkspace(t)
	release, err := mgr.acquireLock()
	require.NoError(t, err)
	defer release()

	_, err = mgr.CreateBackup("manual", "1.0.0-test")
	assert.ErrorIs(t, err, ErrBackupLocked)
}
