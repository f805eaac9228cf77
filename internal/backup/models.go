package backup

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Record describes one backup file in the backup directory
type Record struct {
	Path        string          `json:"path"`
	Database    string          `json:"database"`
	Size        int64           `json:"size"`
	CreatedAt   time.Time       `json:"created_at"`
	Compression CompressionType `json:"compression,omitempty"`
	Encrypted   bool            `json:"encrypted,omitempty"`
}

// Stats aggregates the current backup inventory
type Stats struct {
	Count     int       `json:"count"`
	TotalSize int64     `json:"total_size"`
	Oldest    time.Time `json:"oldest,omitempty"`
	Newest    time.Time `json:"newest,omitempty"`
}

// HealthStatus is the result of a backup health check
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Reason  string `json:"reason,omitempty"`
}

// backupTimeLayout is the sortable timestamp embedded in backup file names
const backupTimeLayout = "20060102150405"

// backupFilename renders the canonical backup name. Compression and
// encryption each append their own suffix, so an encrypted gzip backup ends
// in .sql.gz.enc.
func backupFilename(t time.Time, compression CompressionType, encrypted bool) string {
	name := fmt.Sprintf("backup_%s.sql", t.Format(backupTimeLayout))
	if ext := compression.Extension(); ext != "" {
		name += ext
	}
	if encrypted {
		name += ".enc"
	}
	return name
}

// ParseBackupName extracts the creation timestamp and applied transforms from
// a backup file name. ok is false when the name does not look like a backup
// file at all. A backup name whose embedded stamp does not parse returns ok
// with a zero time; callers fall back to file modification time.
func ParseBackupName(path string) (createdAt time.Time, compression CompressionType, encrypted bool, ok bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "backup_") {
		return time.Time{}, CompressionNone, false, false
	}

	rest := strings.TrimPrefix(base, "backup_")
	if encrypted = strings.HasSuffix(rest, ".enc"); encrypted {
		rest = strings.TrimSuffix(rest, ".enc")
	}

	compression = CompressionNone
	for _, candidate := range []CompressionType{CompressionGzip, CompressionLZ4, CompressionZstd} {
		if strings.HasSuffix(rest, candidate.Extension()) {
			compression = candidate
			rest = strings.TrimSuffix(rest, candidate.Extension())
			break
		}
	}

	if !strings.HasSuffix(rest, ".sql") {
		return time.Time{}, CompressionNone, false, false
	}
	stamp := strings.TrimSuffix(rest, ".sql")

	createdAt, err := time.ParseInLocation(backupTimeLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, compression, encrypted, true
	}

	return createdAt, compression, encrypted, true
}
