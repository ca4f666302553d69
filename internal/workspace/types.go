package workspace

import "time"

// Config is the persisted .drift/config.json document.
type Config struct {
	Version       string            `json:"version"`
	DriftVersion  string            `json:"driftVersion"`
	AutoBackup    bool              `json:"autoBackup"`
	MaxBackups    int               `json:"maxBackups"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	Settings      map[string]string `json:"settings,omitempty"`
}

// DefaultConfig matches a freshly initialized workspace.
func DefaultConfig(driftVersion string) Config {
	now := time.Now().UTC()
	return Config{
		Version:      "1",
		DriftVersion: driftVersion,
		AutoBackup:   true,
		MaxBackups:   10,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// BackupManifest describes one backup's contents and integrity checksum,
// written as backup-manifest.json inside the backup's own directory.
type BackupManifest struct {
	BackupID     string    `json:"backupId"`
	BackupName   string    `json:"backupName"`
	Reason       string    `json:"reason"`
	DriftVersion string    `json:"driftVersion"`
	CreatedAt    time.Time `json:"createdAt"`
	Files        []string  `json:"files"`
	SizeBytes    int64     `json:"sizeBytes"`
	Checksum     string    `json:"checksum"`
}

// IndexEntry is one row of the top-level .drift-backups/index.json list.
type IndexEntry struct {
	BackupID   string    `json:"backupId"`
	BackupName string    `json:"backupName"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
	SizeBytes  int64     `json:"sizeBytes"`
}

// BackupResult is returned from CreateBackup.
type BackupResult struct {
	BackupID   string
	BackupName string
	Path       string
	SizeBytes  int64
	Checksum   string
	FileCount  int
}

// RestoreResult is returned from Restore.
type RestoreResult struct {
	BackupID         string
	RestoredFiles    int
	SafetyBackupID   string
}

// defaultBackupReasons are the reasons that, substring-matched
// case-insensitively against an operation name, trigger an automatic
// backup when AutoBackup is enabled (§4.7 "shouldBackup policy").
var defaultBackupReasons = []string{"upgrade", "migrate", "reset", "clean", "delete"}

// deleteToken is the literal confirmation string DeleteBackup requires,
// guarding against an accidental one-argument call wiping a backup.
const deleteToken = "DELETE"

// preRestoreReason tags the safety backup Restore takes of the live
// workspace before overwriting it.
const preRestoreReason = "pre_destructive_operation"
