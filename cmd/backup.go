package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mysql-drift-guard/internal/backup"
	"mysql-drift-guard/internal/confirmation"
	"mysql-drift-guard/internal/display"
)

var (
	backupOutputDir   string
	backupCompression string
	backupEncrypt     bool
	backupUpload      string

	restoreYes bool

	listLimit int

	cleanupKeepDays int
	cleanupMinKeep  int

	healthMinCount int
	healthMaxAge   time.Duration
)

func init() {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Take a full backup of the database",
		Long: `Takes a full logical dump of the configured database with mysqldump. The
backup can be compressed, encrypted with a passphrase, and uploaded to cloud
storage (s3://, gs://, or azure:// targets).`,
		RunE: runBackup,
	}
	backupCmd.Flags().StringVar(&backupOutputDir, "output-dir", "", "write the backup to this directory (defaults to --backup-dir)")
	backupCmd.Flags().StringVar(&backupCompression, "compression", "none", "compression algorithm (gzip, lz4, zstd, none)")
	backupCmd.Flags().BoolVar(&backupEncrypt, "encrypt", false, "encrypt the backup with a passphrase")
	backupCmd.Flags().StringVar(&backupUpload, "upload", "", "upload target URL (s3://bucket/prefix, gs://..., azure://...)")

	restoreCmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore a backup file into the database",
		Long: `Replays a backup file into the configured database through the mysql
client, overwriting its current contents. Asks for confirmation unless --yes
is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runRestore,
	}
	restoreCmd.Flags().BoolVar(&restoreYes, "yes", false, "restore without interactive confirmation")

	listCmd := &cobra.Command{
		Use:   "list-backups",
		Short: "List backup files, newest first",
		RunE:  runListBackups,
	}
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "show at most this many backups (0 for all)")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired backups",
		Long: `Deletes backups older than --keep-days. The --min-keep newest backups are
always preserved regardless of age.`,
		RunE: runCleanup,
	}
	cleanupCmd.Flags().IntVar(&cleanupKeepDays, "keep-days", 30, "retention window in days")
	cleanupCmd.Flags().IntVar(&cleanupMinKeep, "min-keep", 5, "minimum number of backups to always keep")

	healthCmd := &cobra.Command{
		Use:   "backup-health",
		Short: "Check the health of the backup inventory",
		RunE:  runBackupHealth,
	}
	healthCmd.Flags().IntVar(&healthMinCount, "min-count", 1, "minimum expected number of backups")
	healthCmd.Flags().DurationVar(&healthMaxAge, "max-age", 48*time.Hour, "maximum acceptable age of the newest backup")

	rootCmd.AddCommand(backupCmd, restoreCmd, listCmd, cleanupCmd, healthCmd)
}

// newBackupManager wires a backup manager from the CLI flags, prompting for a
// passphrase when encryption is requested.
func newBackupManager(withEncryption bool) (*backup.Manager, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	config, err := buildDatabaseConfig()
	if err != nil {
		return nil, err
	}

	compression, err := backup.ParseCompressionType(backupCompression)
	if err != nil {
		return nil, err
	}

	dir := backupDirectory()
	if backupOutputDir != "" {
		dir = backupOutputDir
	}
	opts := backup.Options{
		Dir:         dir,
		Compression: compression,
	}
	if withEncryption {
		passphrase, err := backup.PromptPassphrase("Backup passphrase: ")
		if err != nil {
			return nil, err
		}
		if opts.Encryptor, err = backup.NewEncryptor(passphrase); err != nil {
			return nil, err
		}
	}

	return backup.NewManager(config, opts, logger)
}

func runBackup(cmd *cobra.Command, args []string) error {
	disp, _, err := newDisplay()
	if err != nil {
		return err
	}
	manager, err := newBackupManager(backupEncrypt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	record, err := manager.Create(ctx)
	if err != nil {
		return err
	}
	disp.Success(fmt.Sprintf("Backup written to %s (%d bytes)", record.Path, record.Size))

	if backupUpload != "" {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		uploader, err := backup.NewUploader(ctx, backupUpload, logger)
		if err != nil {
			return err
		}
		location, err := uploader.Upload(ctx, record.Path)
		if err != nil {
			return err
		}
		disp.Success(fmt.Sprintf("Backup uploaded to %s", location))
	}

	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	disp, _, err := newDisplay()
	if err != nil {
		return err
	}

	// An encrypted backup needs the passphrase before the manager is built
	_, _, encrypted, ok := backup.ParseBackupName(args[0])
	if !ok {
		return fmt.Errorf("%s is not a recognized backup file", filepath.Base(args[0]))
	}
	manager, err := newBackupManager(encrypted)
	if err != nil {
		return err
	}

	if !restoreYes {
		confirm := confirmation.NewService(disp)
		approved, err := confirm.Confirm(fmt.Sprintf(
			"Restore %s, overwriting the current contents of the database?", filepath.Base(args[0])))
		if err != nil {
			return err
		}
		if !approved {
			disp.Info("Restore cancelled")
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := manager.Restore(ctx, args[0]); err != nil {
		return err
	}
	disp.Success(fmt.Sprintf("Restored %s", args[0]))
	return nil
}

func runListBackups(cmd *cobra.Command, args []string) error {
	disp, format, err := newDisplay()
	if err != nil {
		return err
	}
	manager, err := newBackupManager(false)
	if err != nil {
		return err
	}

	records, err := manager.List()
	if err != nil {
		return err
	}
	stats, err := manager.GetStats()
	if err != nil {
		return err
	}
	if listLimit > 0 && len(records) > listLimit {
		records = records[:listLimit]
	}

	if format != display.FormatTable {
		return disp.Render(struct {
			Stats   *backup.Stats    `json:"stats" yaml:"stats"`
			Backups []*backup.Record `json:"backups" yaml:"backups"`
		}{stats, records}, format)
	}

	if len(records) == 0 {
		disp.Info("No backups found")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		compression := string(record.Compression)
		if record.Encrypted {
			compression += " (encrypted)"
		}
		rows = append(rows, []string{
			filepath.Base(record.Path),
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", record.Size),
			compression,
		})
	}
	disp.PrintTable([]string{"File", "Created", "Size", "Compression"}, rows)
	disp.Info(fmt.Sprintf("%d backup(s), %d bytes total", stats.Count, stats.TotalSize))
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	disp, _, err := newDisplay()
	if err != nil {
		return err
	}
	manager, err := newBackupManager(false)
	if err != nil {
		return err
	}

	before, err := manager.GetStats()
	if err != nil {
		return err
	}

	deleted, err := manager.Cleanup(cleanupKeepDays, cleanupMinKeep)
	if err != nil {
		return err
	}

	if len(deleted) == 0 {
		disp.Info(fmt.Sprintf("No backups eligible for deletion (%d kept)", before.Count))
		return nil
	}
	for _, path := range deleted {
		disp.Info(fmt.Sprintf("Deleted %s", path))
	}

	after, err := manager.GetStats()
	if err != nil {
		return err
	}
	disp.Success(fmt.Sprintf("Deleted %d backup(s): %d before, %d remaining (%d bytes)",
		len(deleted), before.Count, after.Count, after.TotalSize))
	return nil
}

func runBackupHealth(cmd *cobra.Command, args []string) error {
	disp, format, err := newDisplay()
	if err != nil {
		return err
	}
	manager, err := newBackupManager(false)
	if err != nil {
		return err
	}

	status, err := manager.HealthCheck(healthMinCount, healthMaxAge)
	if err != nil {
		return err
	}

	if format != display.FormatTable {
		if err := disp.Render(status, format); err != nil {
			return err
		}
	} else if status.Healthy {
		disp.Success("Backup inventory is healthy")
	} else {
		disp.Error(status.Reason)
	}

	if !status.Healthy {
		return fmt.Errorf("backup health check failed: %s", status.Reason)
	}
	return nil
}
