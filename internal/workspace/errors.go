package workspace

import "errors"

// ErrBackupLocked is returned when a backup is requested while another
// backup creation already holds the .drift-backups/ exclusive lock.
var ErrBackupLocked = errors.New("workspace: a backup is already in progress")

// ErrChecksumMismatch is returned by Restore when a backup's recomputed
// tree checksum disagrees with its manifest, signalling corruption or
// tampering since the backup was written.
var ErrChecksumMismatch = errors.New("workspace: backup checksum mismatch")

// ErrBackupNotFound is returned when an operation names a backup id that
// is not present in the index.
var ErrBackupNotFound = errors.New("workspace: backup not found")

// ErrDeleteTokenRequired is returned by DeleteBackup when the caller did
// not pass the literal confirmation token.
var ErrDeleteTokenRequired = errors.New("workspace: delete requires the literal confirmation token \"DELETE\"")
