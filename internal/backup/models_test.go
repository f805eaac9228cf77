package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFilename(t *testing.T) {
	createdAt := time.Date(2026, 8, 23, 14, 30, 5, 0, time.Local)

	tests := []struct {
		compression CompressionType
		encrypted   bool
		want        string
	}{
		{CompressionNone, false, "backup_20260823143005.sql"},
		{CompressionGzip, false, "backup_20260823143005.sql.gz"},
		{CompressionLZ4, false, "backup_20260823143005.sql.lz4"},
		{CompressionZstd, false, "backup_20260823143005.sql.zst"},
		{CompressionNone, true, "backup_20260823143005.sql.enc"},
		{CompressionGzip, true, "backup_20260823143005.sql.gz.enc"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backupFilename(createdAt, tt.compression, tt.encrypted))
	}
}

func TestParseBackupNameRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 8, 23, 14, 30, 5, 0, time.Local)

	for _, compression := range []CompressionType{CompressionNone, CompressionGzip, CompressionLZ4, CompressionZstd} {
		for _, encrypted := range []bool{false, true} {
			name := backupFilename(createdAt, compression, encrypted)

			gotTime, gotCompression, gotEncrypted, ok := ParseBackupName(name)
			require.True(t, ok, "name %s must parse", name)
			assert.True(t, gotTime.Equal(createdAt), "name %s", name)
			assert.Equal(t, compression, gotCompression, "name %s", name)
			assert.Equal(t, encrypted, gotEncrypted, "name %s", name)
		}
	}
}

func TestParseBackupNameIgnoresDirectory(t *testing.T) {
	_, _, encrypted, ok := ParseBackupName("/var/backups/backup_20260823143005.sql.enc")
	require.True(t, ok)
	assert.True(t, encrypted)
}

func TestParseBackupNameRejectsForeignFiles(t *testing.T) {
	for _, name := range []string{
		"notes.txt",
		"backup_20260823143005.dump",
		"dump_20260823143005.sql",
		".backup-123456.tmp",
	} {
		_, _, _, ok := ParseBackupName(name)
		assert.False(t, ok, "name %s must not parse", name)
	}
}

func TestParseBackupNameBadStampYieldsZeroTime(t *testing.T) {
	for _, name := range []string{
		"backup_latest.sql",
		"backup_2026082314.sql",
	} {
		createdAt, _, _, ok := ParseBackupName(name)
		require.True(t, ok, "name %s must still count as a backup", name)
		assert.True(t, createdAt.IsZero(), "name %s", name)
	}

	createdAt, compression, encrypted, ok := ParseBackupName("backup_latest.sql.gz.enc")
	require.True(t, ok)
	assert.True(t, createdAt.IsZero())
	assert.Equal(t, CompressionGzip, compression)
	assert.True(t, encrypted)
}
