package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mysql-drift-guard/internal/backup"
	"mysql-drift-guard/internal/confirmation"
	"mysql-drift-guard/internal/database"
	"mysql-drift-guard/internal/display"
	"mysql-drift-guard/internal/errors"
	"mysql-drift-guard/internal/logging"
	"mysql-drift-guard/internal/migration"
	"mysql-drift-guard/internal/schema"
)

var (
	detectGenerate bool
	detectApply    bool
	detectBackup   bool
)

func init() {
	detectCmd := &cobra.Command{
		Use:   "detect-migrations",
		Short: "Compare the live schema against the expected schema and report drift",
		Long: `Introspects the live database, compares it against the expected schema
registry, writes a drift report, and optionally generates a migration script
correcting the drift. With --apply the generated script is applied immediately
after confirmation; --backup takes a full backup before applying.

The exit status reflects the result: 0 for no drift (or drift corrected with
--apply), 1 for drift detected or a failure.`,
		RunE: runDetectMigrations,
	}
	detectCmd.Flags().BoolVar(&detectGenerate, "generate", true, "generate a migration script when drift is found")
	detectCmd.Flags().BoolVar(&detectApply, "apply", false, "apply the generated migration after confirmation")
	detectCmd.Flags().BoolVar(&detectBackup, "backup", false, "take a full backup before applying")

	rootCmd.AddCommand(detectCmd)
}

func runDetectMigrations(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	disp, format, err := newDisplay()
	if err != nil {
		return err
	}
	config, err := buildDatabaseConfig()
	if err != nil {
		return err
	}

	dbService := database.NewServiceWithLogger(logger)
	db, err := dbService.Connect(*config)
	if err != nil {
		return err
	}
	defer dbService.Close(db)

	startTime := time.Now()
	introspector := schema.NewIntrospectorWithTimeout(config.Timeout)
	actual, err := introspector.Introspect(db, config.Database)
	if err != nil {
		return err
	}
	logger.LogSchemaIntrospection(config.Database, len(actual.Tables), time.Since(startTime), nil)

	registry := schema.NewRegistry()
	expected := registry.Expected()

	comparator := schema.NewComparator()
	report := comparator.Compare(expected, actual)
	logger.LogDriftComparison(config.Database, string(report.Severity), len(report.TableDrift), time.Since(startTime))

	reportPath, err := comparator.SaveReport(report, reportDirectory())
	if err != nil {
		return err
	}

	if format != display.FormatTable {
		if err := disp.Render(report, format); err != nil {
			return err
		}
	} else {
		disp.PrintDriftReport(report)
		disp.Info(fmt.Sprintf("Drift report written to %s", reportPath))
	}

	if !report.HasDrift() {
		return nil
	}

	if detectGenerate || detectApply {
		generator := migration.NewGenerator()
		artifact, genErr := generator.Generate(report, expected)
		if genErr != nil {
			if errors.GetErrorType(genErr) == errors.ErrorTypeMigrationGeneration {
				disp.Warning(errors.FormatUserError(genErr))
			} else {
				return genErr
			}
		} else {
			artifactPath, err := migration.WriteArtifact(artifact, schemaDirectory())
			if err != nil {
				return err
			}
			disp.Success(fmt.Sprintf("Migration script written to %s", artifactPath))

			if detectApply {
				return applyDetectedArtifact(db, artifact, config, logger, disp)
			}
		}
	}

	return fmt.Errorf("schema drift detected with severity %s", report.Severity)
}

// applyDetectedArtifact applies a just-generated migration on the open
// connection, after confirmation and an optional safety backup.
func applyDetectedArtifact(db *sql.DB, artifact *migration.Artifact, config *database.Config, logger *logging.Logger, disp *display.Service) error {
	confirm := confirmation.NewService(disp)
	approved, err := confirm.ConfirmMigration(artifact, false)
	if err != nil {
		return err
	}
	if !approved {
		disp.Info("Migration not applied")
		return fmt.Errorf("schema drift detected with severity %s", artifact.Report.Severity)
	}

	applier := migration.NewApplier(logger)
	if detectBackup {
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
		BackupFirst: detectBackup,
		OnError:     migration.PolicyAbort,
	})
	if result != nil && result.BackupPath != "" {
		disp.Info(fmt.Sprintf("Pre-migration backup: %s", result.BackupPath))
	}
	if err != nil {
		return err
	}

	disp.Success(fmt.Sprintf("Applied %d statement(s), drift corrected", result.AppliedCount))
	return nil
}
