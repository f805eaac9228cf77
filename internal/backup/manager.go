package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mysql-drift-guard/internal/database"
	"mysql-drift-guard/internal/errors"
	"mysql-drift-guard/internal/logging"
)

// Options configures the backup manager
type Options struct {
	Dir           string
	Compression   CompressionType
	Encryptor     *Encryptor
	MysqldumpPath string
	MysqlPath     string
}

// SetDefaults fills in default values for unset options
func (o *Options) SetDefaults() {
	if o.Dir == "" {
		o.Dir = "backups"
	}
	if o.Compression == "" {
		o.Compression = CompressionNone
	}
	if o.MysqldumpPath == "" {
		o.MysqldumpPath = "mysqldump"
	}
	if o.MysqlPath == "" {
		o.MysqlPath = "mysql"
	}
}

// Manager creates, lists, restores, and prunes backup files in a local
// directory. Every backup is a full logical dump taken with mysqldump.
type Manager struct {
	dbConfig *database.Config
	opts     Options
	logger   *logging.Logger
}

// NewManager creates a backup manager for the given database
func NewManager(dbConfig *database.Config, opts Options, logger *logging.Logger) (*Manager, error) {
	if dbConfig == nil {
		return nil, errors.NewValidationError("database configuration is required", nil)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	opts.SetDefaults()

	return &Manager{
		dbConfig: dbConfig,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Dir returns the backup directory
func (m *Manager) Dir() string {
	return m.opts.Dir
}

// Create takes a full dump of the configured database. The dump is staged in
// a temporary file and renamed into place only once fully written, so a
// failed backup never leaves a partial file behind.
func (m *Manager) Create(ctx context.Context) (*Record, error) {
	startTime := time.Now()

	if err := os.MkdirAll(m.opts.Dir, 0755); err != nil {
		return nil, errors.NewBackupIOError(fmt.Sprintf("failed to create backup directory %s", m.opts.Dir), err)
	}

	dump, err := m.runMysqldump(ctx)
	if err != nil {
		m.logger.LogBackupOperation("create", "", 0, time.Since(startTime), err)
		return nil, err
	}

	data := dump
	if data, err = Compress(data, m.opts.Compression); err != nil {
		return nil, err
	}
	encrypted := m.opts.Encryptor != nil
	if encrypted {
		if data, err = m.opts.Encryptor.Encrypt(data); err != nil {
			return nil, err
		}
	}

	createdAt := startTime
	finalPath := filepath.Join(m.opts.Dir, backupFilename(createdAt, m.opts.Compression, encrypted))

	tmp, err := os.CreateTemp(m.opts.Dir, ".backup-*.tmp")
	if err != nil {
		return nil, errors.NewBackupIOError("failed to create temporary backup file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, errors.NewBackupIOError("failed to write backup data", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, errors.NewBackupIOError("failed to close backup file", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, errors.NewBackupIOError(fmt.Sprintf("failed to move backup into place at %s", finalPath), err)
	}

	record := &Record{
		Path:        finalPath,
		Database:    m.dbConfig.Database,
		Size:        int64(len(data)),
		CreatedAt:   createdAt,
		Compression: m.opts.Compression,
		Encrypted:   encrypted,
	}

	m.logger.LogBackupOperation("create", finalPath, record.Size, time.Since(startTime), nil)
	return record, nil
}

// runMysqldump executes mysqldump and returns the dump bytes
func (m *Manager) runMysqldump(ctx context.Context) ([]byte, error) {
	args := []string{
		"--host", m.dbConfig.Host,
		"--port", fmt.Sprintf("%d", m.dbConfig.Port),
		"--user", m.dbConfig.Username,
		"--single-transaction",
		"--routines",
		"--triggers",
		m.dbConfig.Database,
	}

	cmd := exec.CommandContext(ctx, m.opts.MysqldumpPath, args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("MYSQL_PWD=%s", m.dbConfig.Password))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	m.logger.WithField("database", m.dbConfig.Database).Debug("Running mysqldump")

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, errors.NewBackupIOError(fmt.Sprintf("mysqldump failed: %s", detail), err)
	}

	if stdout.Len() == 0 {
		return nil, errors.NewBackupIOError("mysqldump produced an empty dump", nil)
	}

	return stdout.Bytes(), nil
}

// List returns the backup inventory sorted newest first. The creation time
// comes from the file name, falling back to the file modification time when
// the embedded stamp does not parse; files that are not backups are ignored.
func (m *Manager) List() ([]*Record, error) {
	entries, err := os.ReadDir(m.opts.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewBackupIOError(fmt.Sprintf("failed to read backup directory %s", m.opts.Dir), err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		createdAt, compression, encrypted, ok := ParseBackupName(entry.Name())
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			m.logger.WithField("file", entry.Name()).Warn("Failed to stat backup file, skipping")
			continue
		}
		if createdAt.IsZero() {
			createdAt = info.ModTime()
		}

		records = append(records, &Record{
			Path:        filepath.Join(m.opts.Dir, entry.Name()),
			Database:    m.dbConfig.Database,
			Size:        info.Size(),
			CreatedAt:   createdAt,
			Compression: compression,
			Encrypted:   encrypted,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

// GetStats aggregates counts and sizes over the current inventory
func (m *Manager) GetStats() (*Stats, error) {
	records, err := m.List()
	if err != nil {
		return nil, err
	}

	stats := &Stats{Count: len(records)}
	for _, record := range records {
		stats.TotalSize += record.Size
	}
	if len(records) > 0 {
		stats.Newest = records[0].CreatedAt
		stats.Oldest = records[len(records)-1].CreatedAt
	}
	return stats, nil
}

// HealthCheck evaluates the inventory against the given policy. Checks run in
// order and the first failure wins: existence, count, freshness, then
// integrity of every file.
func (m *Manager) HealthCheck(minCount int, maxAge time.Duration) (*HealthStatus, error) {
	records, err := m.List()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return &HealthStatus{Healthy: false, Reason: "no backups exist"}, nil
	}

	if len(records) < minCount {
		return &HealthStatus{
			Healthy: false,
			Reason:  fmt.Sprintf("Only %d backups exist, expected at least %d", len(records), minCount),
		}, nil
	}

	newest := records[0]
	if age := time.Since(newest.CreatedAt); age > maxAge {
		return &HealthStatus{
			Healthy: false,
			Reason:  fmt.Sprintf("newest backup is %.0f days old, exceeding the maximum age of %.0f days", age.Hours()/24, maxAge.Hours()/24),
		}, nil
	}

	// A zero-size file anywhere in the inventory is a truncated dump that
	// would be useless as a restore point
	for _, record := range records {
		if record.Size == 0 {
			return &HealthStatus{
				Healthy: false,
				Reason:  fmt.Sprintf("backup %s is empty", filepath.Base(record.Path)),
			}, nil
		}
	}

	return &HealthStatus{Healthy: true}, nil
}

// Cleanup deletes backups older than keepDays while always preserving the
// minKeep newest regardless of age. Backups without a parseable name stamp
// are never deleted automatically. Files that fail to delete are logged and
// skipped; one bad file never aborts the sweep. Returns the deleted paths.
func (m *Manager) Cleanup(keepDays int, minKeep int) ([]string, error) {
	records, err := m.List()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -keepDays)

	var deleted []string
	for i, record := range records {
		if i < minKeep {
			continue
		}
		if !record.CreatedAt.Before(cutoff) {
			continue
		}
		// Only files with a parseable stamp qualify for automatic deletion;
		// mtime is too easy to disturb to age a backup out on
		if stamp, _, _, _ := ParseBackupName(record.Path); stamp.IsZero() {
			continue
		}

		if err := os.Remove(record.Path); err != nil {
			m.logger.WithFields(map[string]interface{}{
				"file":  record.Path,
				"error": err.Error(),
			}).Warn("Failed to delete backup, skipping")
			continue
		}

		m.logger.WithField("file", record.Path).Info("Deleted expired backup")
		deleted = append(deleted, record.Path)
	}

	return deleted, nil
}

// Restore replays a backup file into the configured database through the
// mysql client. Encrypted and compressed backups are unwrapped first, based
// on the file name.
func (m *Manager) Restore(ctx context.Context, path string) error {
	startTime := time.Now()

	_, compression, encrypted, ok := ParseBackupName(path)
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("%s is not a recognized backup file", filepath.Base(path)), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewBackupIOError(fmt.Sprintf("failed to read backup file %s", path), err)
	}

	if encrypted {
		if m.opts.Encryptor == nil {
			return errors.NewValidationError("backup is encrypted but no passphrase was provided", nil)
		}
		if data, err = m.opts.Encryptor.Decrypt(data); err != nil {
			return err
		}
	}
	if data, err = Decompress(data, compression); err != nil {
		return err
	}

	args := []string{
		"--host", m.dbConfig.Host,
		"--port", fmt.Sprintf("%d", m.dbConfig.Port),
		"--user", m.dbConfig.Username,
		m.dbConfig.Database,
	}

	cmd := exec.CommandContext(ctx, m.opts.MysqlPath, args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("MYSQL_PWD=%s", m.dbConfig.Password))
	cmd.Stdin = bytes.NewReader(data)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		restoreErr := errors.NewBackupIOError(fmt.Sprintf("restore failed: %s", detail), err)
		m.logger.LogBackupOperation("restore", path, int64(len(data)), time.Since(startTime), restoreErr)
		return restoreErr
	}

	m.logger.LogBackupOperation("restore", path, int64(len(data)), time.Since(startTime), nil)
	return nil
}
