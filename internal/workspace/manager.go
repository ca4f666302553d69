package workspace

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// lockFileName is the exclusive-create lock guarding concurrent backup
// creation under Manager.backupsRoot.
const lockFileName = ".backup.lock"

// manifestFileName is the per-backup manifest, excluded from its own
// checksum computation.
const manifestFileName = "backup-manifest.json"

// indexFileName is the top-level record of every backup taken.
const indexFileName = "index.json"

// Manager creates, restores, and retires backups of a workspace's
// .drift/ tree, mirroring the teacher's checksum-then-verify discipline
// from CalculateProofHash but applied to an entire directory snapshot
// instead of a single proof record.
type Manager struct {
	layout      *Layout
	backupsRoot string
}

// NewManager binds a backup Manager to layout, storing backups in a
// ".drift-backups" directory that is a sibling of layout.Root() rather
// than nested inside it (so a backup never has to back itself up).
func NewManager(layout *Layout) *Manager {
	parent := filepath.Dir(layout.Root())
	return &Manager{
		layout:      layout,
		backupsRoot: filepath.Join(parent, ".drift-backups"),
	}
}

// BackupsRoot is the directory backups are written under.
func (m *Manager) BackupsRoot() string { return m.backupsRoot }

func (m *Manager) lockPath() string { return filepath.Join(m.backupsRoot, lockFileName) }
func (m *Manager) indexPath() string { return filepath.Join(m.backupsRoot, indexFileName) }

// acquireLock takes the exclusive .drift-backups/.backup.lock file,
// returning ErrBackupLocked if another creation already holds it.
func (m *Manager) acquireLock() (func(), error) {
	if err := os.MkdirAll(m.backupsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create backups root: %w", err)
	}
	f, err := os.OpenFile(m.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrBackupLocked
		}
		return nil, fmt.Errorf("workspace: acquire backup lock: %w", err)
	}
	_ = f.Close()
	release := func() { _ = os.Remove(m.lockPath()) }
	return release, nil
}

// CreateBackup snapshots the workspace tree under a new backup directory
// and returns its result. It follows the eight-step sequence of §4.7:
// generate an id, walk the tree skipping regenerable/backup directories,
// gzip-compress each file while accumulating its size, hash the sorted
// file set into a single checksum, write the manifest, append the
// top-level index, and finally enforce retention.
func (m *Manager) CreateBackup(reason, driftVersion string) (BackupResult, error) {
	release, err := m.acquireLock()
	if err != nil {
		return BackupResult{}, err
	}
	defer release()

	backupID := uuid.New().String()[:8]
	backupName := fmt.Sprintf("backup-%s-%s", time.Now().UTC().Format("20060102-150405"), backupID)
	backupDir := filepath.Join(m.backupsRoot, backupName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return BackupResult{}, fmt.Errorf("workspace: create backup dir: %w", err)
	}

	relFiles, sizeBytes, err := m.snapshotTree(m.layout.Root(), backupDir)
	if err != nil {
		return BackupResult{}, err
	}

	checksum := m.checksumFiles(backupDir, relFiles)

	manifest := BackupManifest{
		BackupID:     backupID,
		BackupName:   backupName,
		Reason:       reason,
		DriftVersion: driftVersion,
		CreatedAt:    time.Now().UTC(),
		Files:        relFiles,
		SizeBytes:    sizeBytes,
		Checksum:     checksum,
	}
	if err := writeJSON(filepath.Join(backupDir, manifestFileName), manifest); err != nil {
		return BackupResult{}, err
	}

	entry := IndexEntry{
		BackupID:   backupID,
		BackupName: backupName,
		Reason:     reason,
		CreatedAt:  manifest.CreatedAt,
		SizeBytes:  sizeBytes,
	}
	if err := m.appendIndex(entry); err != nil {
		return BackupResult{}, err
	}

	cfg, cfgErr := m.layout.LoadConfig()
	maxBackups := 10
	if cfgErr == nil && cfg.MaxBackups > 0 {
		maxBackups = cfg.MaxBackups
	}
	if err := m.enforceRetention(maxBackups); err != nil {
		return BackupResult{}, err
	}

	return BackupResult{
		BackupID:   backupID,
		BackupName: backupName,
		Path:       backupDir,
		SizeBytes:  sizeBytes,
		Checksum:   checksum,
		FileCount:  len(relFiles),
	}, nil
}

// snapshotTree walks src, gzip-compressing every regular file that is
// not under a skipped segment into dst/<relpath>.gz, and returns the
// sorted list of relative paths (without the .gz suffix) plus the total
// uncompressed size written.
func (m *Manager) snapshotTree(src, dst string) ([]string, int64, error) {
	var relFiles []string
	var sizeBytes int64

	err := filepath.Walk(src, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		relSlash := filepath.ToSlash(rel)
		if info.IsDir() {
			if isSkipped(relSlash) {
				return filepath.SkipDir
			}
			return nil
		}
		if isSkipped(relSlash) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("workspace: read %s: %w", rel, err)
		}
		destPath := filepath.Join(dst, rel+".gz")
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		if err := writeGzip(destPath, content); err != nil {
			return err
		}
		relFiles = append(relFiles, relSlash)
		sizeBytes += int64(len(content))
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Strings(relFiles)
	return relFiles, sizeBytes, nil
}

// isSkipped reports whether a root-relative, slash-separated path falls
// under one of the non-backed-up segments (cache, history/snapshots, any
// nested .backups directory).
func isSkipped(relSlash string) bool {
	for seg := range skipSegments {
		if relSlash == seg || strings.HasPrefix(relSlash, seg+"/") {
			return true
		}
	}
	return false
}

// checksumFiles hashes the (uncompressed, pre-gzip) content of every
// named file together with its relative path, sequentially, in
// filename-sorted order, following the teacher's CalculateProofHash
// sequential hash.Write pattern generalized from a handful of proof
// fields to an arbitrary file set.
func (m *Manager) checksumFiles(backupDir string, relFiles []string) string {
	sorted := append([]string(nil), relFiles...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, rel := range sorted {
		content, err := readGzip(filepath.Join(backupDir, rel+".gz"))
		if err != nil {
			continue
		}
		h.Write([]byte(rel))
		h.Write(content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (m *Manager) appendIndex(entry IndexEntry) error {
	entries, err := m.readIndex()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return writeJSON(m.indexPath(), entries)
}

func (m *Manager) readIndex() ([]IndexEntry, error) {
	raw, err := os.ReadFile(m.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workspace: read backup index: %w", err)
	}
	var entries []IndexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("workspace: parse backup index: %w", err)
	}
	return entries, nil
}

// enforceRetention removes the oldest backups, by CreatedAt, once the
// index exceeds maxBackups entries.
func (m *Manager) enforceRetention(maxBackups int) error {
	entries, err := m.readIndex()
	if err != nil {
		return err
	}
	if len(entries) <= maxBackups {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	toRemove := entries[:len(entries)-maxBackups]
	kept := entries[len(entries)-maxBackups:]
	for _, e := range toRemove {
		_ = os.RemoveAll(filepath.Join(m.backupsRoot, e.BackupName))
	}
	return writeJSON(m.indexPath(), kept)
}

// ListBackups returns every backup currently recorded, newest first.
func (m *Manager) ListBackups() ([]IndexEntry, error) {
	entries, err := m.readIndex()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

// Restore verifies a backup's checksum, takes a safety backup of the
// live workspace, and overwrites the workspace tree with the backup's
// contents.
func (m *Manager) Restore(backupID, driftVersion string) (RestoreResult, error) {
	entries, err := m.readIndex()
	if err != nil {
		return RestoreResult{}, err
	}
	var found *IndexEntry
	for i := range entries {
		if entries[i].BackupID == backupID {
			found = &entries[i]
			break
		}
	}
	if found == nil {
		return RestoreResult{}, ErrBackupNotFound
	}
	backupDir := filepath.Join(m.backupsRoot, found.BackupName)

	var manifest BackupManifest
	if err := readJSON(filepath.Join(backupDir, manifestFileName), &manifest); err != nil {
		return RestoreResult{}, fmt.Errorf("workspace: read manifest: %w", err)
	}

	if got := m.checksumFiles(backupDir, manifest.Files); got != manifest.Checksum {
		return RestoreResult{}, ErrChecksumMismatch
	}

	safety, err := m.CreateBackup(preRestoreReason, driftVersion)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("workspace: pre-restore safety backup: %w", err)
	}

	for _, rel := range manifest.Files {
		content, err := readGzip(filepath.Join(backupDir, rel+".gz"))
		if err != nil {
			return RestoreResult{}, fmt.Errorf("workspace: decompress %s: %w", rel, err)
		}
		destPath := filepath.Join(m.layout.Root(), filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return RestoreResult{}, err
		}
		if err := os.WriteFile(destPath, content, 0o644); err != nil {
			return RestoreResult{}, fmt.Errorf("workspace: write %s: %w", rel, err)
		}
	}

	return RestoreResult{
		BackupID:       backupID,
		RestoredFiles:  len(manifest.Files),
		SafetyBackupID: safety.BackupID,
	}, nil
}

// DeleteBackup permanently removes a backup, requiring the caller to
// pass the literal confirmation token "DELETE" so an accidental call
// with a bare backup id cannot destroy history.
func (m *Manager) DeleteBackup(backupID, token string) error {
	if token != deleteToken {
		return ErrDeleteTokenRequired
	}
	entries, err := m.readIndex()
	if err != nil {
		return err
	}
	kept := entries[:0]
	var target *IndexEntry
	for i := range entries {
		if entries[i].BackupID == backupID {
			e := entries[i]
			target = &e
			continue
		}
		kept = append(kept, entries[i])
	}
	if target == nil {
		return ErrBackupNotFound
	}
	if err := os.RemoveAll(filepath.Join(m.backupsRoot, target.BackupName)); err != nil {
		return fmt.Errorf("workspace: remove backup directory: %w", err)
	}
	return writeJSON(m.indexPath(), kept)
}

// ShouldBackup reports whether op matches one of the default
// backup-triggering operation names (upgrade, migrate, reset, clean,
// delete) when autoBackup is enabled. Matching is a case-insensitive
// substring test, so "reset-patterns" and "clean:cache" both trigger.
func ShouldBackup(autoBackup bool, op string) bool {
	if !autoBackup {
		return false
	}
	lower := strings.ToLower(op)
	for _, needle := range defaultBackupReasons {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("workspace: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("workspace: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func writeGzip(path string, content []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("workspace: create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(content); err != nil {
		return fmt.Errorf("workspace: gzip write %s: %w", filepath.Base(path), err)
	}
	return gz.Close()
}

func readGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("workspace: gzip reader %s: %w", filepath.Base(path), err)
	}
	defer gz.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, gz); err != nil {
		return nil, fmt.Errorf("workspace: gzip read %s: %w", filepath.Base(path), err)
	}
	return buf.Bytes(), nil
}
