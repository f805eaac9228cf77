package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mysql-drift-guard/internal/backup"
)

var (
	schedBackupInterval  time.Duration
	schedCleanupInterval time.Duration
	schedKeepDays        int
	schedMinKeep         int
	schedCompression     string
)

func init() {
	schedulerCmd := &cobra.Command{
		Use:   "start-scheduler",
		Short: "Run periodic backups and cleanups until interrupted",
		Long: `Starts a long-running scheduler that takes a backup every backup interval
and prunes expired backups every cleanup interval. Backup and cleanup never
run concurrently. SIGINT or SIGTERM stops the scheduler after any in-flight
operation finishes.`,
		RunE: runStartScheduler,
	}
	schedulerCmd.Flags().DurationVar(&schedBackupInterval, "backup-interval", 24*time.Hour, "time between backups")
	schedulerCmd.Flags().DurationVar(&schedCleanupInterval, "cleanup-interval", 24*time.Hour, "time between cleanup sweeps")
	schedulerCmd.Flags().IntVar(&schedKeepDays, "keep-days", 30, "retention window in days")
	schedulerCmd.Flags().IntVar(&schedMinKeep, "min-keep", 5, "minimum number of backups to always keep")
	schedulerCmd.Flags().StringVar(&schedCompression, "compression", "gzip", "compression algorithm for scheduled backups")

	rootCmd.AddCommand(schedulerCmd)
}

func runStartScheduler(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	config, err := buildDatabaseConfig()
	if err != nil {
		return err
	}
	compression, err := backup.ParseCompressionType(schedCompression)
	if err != nil {
		return err
	}

	manager, err := backup.NewManager(config, backup.Options{
		Dir:         backupDirectory(),
		Compression: compression,
	}, logger)
	if err != nil {
		return err
	}

	scheduler := backup.NewScheduler(manager, backup.SchedulerConfig{
		BackupInterval:  schedBackupInterval,
		CleanupInterval: schedCleanupInterval,
		KeepDays:        schedKeepDays,
		MinKeep:         schedMinKeep,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Run(ctx)
	return nil
}
