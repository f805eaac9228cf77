package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mysql-drift-guard/internal/backup"
	"mysql-drift-guard/internal/confirmation"
	"mysql-drift-guard/internal/database"
	"mysql-drift-guard/internal/migration"
)

var (
	applyFile        string
	applyBackupFirst bool
	applyOnError     string
	applyYes         bool
)

func init() {
	applyCmd := &cobra.Command{
		Use:   "apply-migration --file PATH",
		Short: "Apply a generated migration script to the live database",
		Long: `Loads the migration script named by --file, shows its statements, and
applies them after confirmation. With --yes the confirmation prompt is
skipped.

With --backup-first, a full backup is taken before any statement runs; if the
backup fails the migration is withheld entirely. The --on-error policy
controls failure handling: abort runs everything in one transaction and rolls
back completely on any failure, continue executes each statement
independently and reports per-statement results.`,
		Args: cobra.NoArgs,
		RunE: runApplyMigration,
	}
	applyCmd.Flags().StringVar(&applyFile, "file", "", "migration script to apply")
	applyCmd.Flags().BoolVar(&applyBackupFirst, "backup-first", true, "take a full backup before applying")
	applyCmd.Flags().StringVar(&applyOnError, "on-error", "abort", "failure policy (abort, continue)")
	applyCmd.Flags().BoolVar(&applyYes, "yes", false, "apply without interactive confirmation")
	applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

func runApplyMigration(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	disp, _, err := newDisplay()
	if err != nil {
		return err
	}
	config, err := buildDatabaseConfig()
	if err != nil {
		return err
	}

	var policy migration.ErrorPolicy
	switch applyOnError {
	case "abort":
		policy = migration.PolicyAbort
	case "continue":
		policy = migration.PolicyContinue
	default:
		return fmt.Errorf("invalid --on-error value %q (expected abort or continue)", applyOnError)
	}

	artifact, err := migration.LoadArtifact(applyFile)
	if err != nil {
		return err
	}

	confirm := confirmation.NewService(disp)
	approved, err := confirm.ConfirmMigration(artifact, applyYes)
	if err != nil {
		return err
	}
	if !approved {
		disp.Info("Migration not applied")
		return nil
	}

	dbService := database.NewServiceWithLogger(logger)
	db, err := dbService.Connect(*config)
	if err != nil {
		return err
	}
	defer dbService.Close(db)

	applier := migration.NewApplier(logger)
	if applyBackupFirst {
		manager, err := backup.NewManager(config, backup.Options{Dir: backupDirectory()}, logger)
		if err != nil {
			return err
		}
		applier.SetBackupFunc(func(ctx context.Context) (string, error) {
			record, err := manager.Create(ctx)
			if err != nil {
				return "", err
			}
			return record.Path, nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout*time.Duration(len(artifact.Statements)+1))
	defer cancel()

	result, err := applier.Apply(ctx, db, artifact, migration.ApplyOptions{
		BackupFirst: applyBackupFirst,
		OnError:     policy,
	})
	if result != nil && result.BackupPath != "" {
		disp.Info(fmt.Sprintf("Pre-migration backup: %s", result.BackupPath))
	}
	if err != nil {
		if result != nil {
			for _, stmtResult := range result.Results {
				if stmtResult.Err != nil {
					disp.Error(fmt.Sprintf("Failed: %s (%v)", stmtResult.Statement, stmtResult.Err))
				}
			}
		}
		return err
	}

	disp.Success(fmt.Sprintf("Applied %d statement(s)", result.AppliedCount))
	return nil
}
