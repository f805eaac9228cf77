package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mysql-drift-guard/internal/backup"
	"mysql-drift-guard/internal/database"
	"mysql-drift-guard/internal/display"
	"mysql-drift-guard/internal/schema"
)

// statusReport is the structured form of the status command output
type statusReport struct {
	Database        string                   `json:"database" yaml:"database"`
	ServerVersion   string                   `json:"server_version" yaml:"server_version"`
	RegistryVersion string                   `json:"registry_version" yaml:"registry_version"`
	Tables          []database.TableRowCount `json:"tables" yaml:"tables"`
	Backups         *backup.Stats            `json:"backups" yaml:"backups"`
	BackupHealth    *backup.HealthStatus     `json:"backup_health" yaml:"backup_health"`
}

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show database connectivity, table sizes, and backup health",
		RunE:  runStatus,
	}
	statusCmd.Flags().IntVar(&healthMinCount, "min-count", 1, "minimum expected number of backups")
	statusCmd.Flags().DurationVar(&healthMaxAge, "max-age", 48*time.Hour, "maximum acceptable age of the newest backup")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	serverVersion, err := dbService.GetVersion(db)
	if err != nil {
		return err
	}
	counts, err := dbService.TableRowCounts(db, config.Database)
	if err != nil {
		return err
	}

	manager, err := backup.NewManager(config, backup.Options{Dir: backupDirectory()}, logger)
	if err != nil {
		return err
	}
	stats, err := manager.GetStats()
	if err != nil {
		return err
	}
	health, err := manager.HealthCheck(healthMinCount, healthMaxAge)
	if err != nil {
		return err
	}

	report := &statusReport{
		Database:        config.Identity(),
		ServerVersion:   serverVersion,
		RegistryVersion: schema.RegistryVersion,
		Tables:          counts,
		Backups:         stats,
		BackupHealth:    health,
	}

	if format != display.FormatTable {
		return disp.Render(report, format)
	}

	disp.PrintHeader("Database")
	disp.Info(fmt.Sprintf("Connection: %s", report.Database))
	disp.Info(fmt.Sprintf("Server version: %s", report.ServerVersion))
	disp.Info(fmt.Sprintf("Expected schema revision: %s", report.RegistryVersion))

	if len(counts) > 0 {
		disp.PrintHeader("Tables")
		rows := make([][]string, 0, len(counts))
		for _, count := range counts {
			rows = append(rows, []string{count.Table, fmt.Sprintf("%d", count.Rows)})
		}
		disp.PrintTable([]string{"Table", "Approx. rows"}, rows)
	}

	disp.PrintHeader("Backups")
	disp.Info(fmt.Sprintf("Count: %d", stats.Count))
	disp.Info(fmt.Sprintf("Total size: %d bytes", stats.TotalSize))
	if stats.Count > 0 {
		disp.Info(fmt.Sprintf("Newest: %s", stats.Newest.Format("2006-01-02 15:04:05")))
		disp.Info(fmt.Sprintf("Oldest: %s", stats.Oldest.Format("2006-01-02 15:04:05")))
	}
	if health.Healthy {
		disp.Success("Backup inventory is healthy")
	} else {
		disp.Warning(health.Reason)
	}

	return nil
}
