package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mysql-drift-guard/internal/database"
	"mysql-drift-guard/internal/display"
	"mysql-drift-guard/internal/logging"
)

var cfgFile string

// CLI flag variables
var (
	// Database flags
	dbHost     string
	dbPort     int
	dbUsername string
	dbPassword string
	dbName     string

	// Operation flags
	verbose bool
	quiet   bool
	timeout time.Duration
	logFile string

	// Directory flags
	backupDir string
	schemaDir string
	reportDir string

	// Output flags
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mysql-drift-guard",
	Short: "Detect MySQL schema drift and manage migrations and backups",
	Long: `MySQL Drift Guard compares a live MySQL database against the schema the
application expects, reports any drift with a severity rating, generates
migration scripts to correct it, and manages full database backups with
retention, health checks, and optional off-site upload.

Examples:
  # Show database and backup status
  mysql-drift-guard status --db-host=localhost --db-user=root --db-name=shop

  # Detect drift and generate a migration script
  mysql-drift-guard detect-migrations --config=.mysql-drift-guard.yaml

  # Apply a generated migration with a safety backup first
  mysql-drift-guard apply-migration --file schema/20260823120000_schema_drift.sql --backup-first

  # Take a compressed backup and upload it to S3
  mysql-drift-guard backup --compression=gzip --upload=s3://my-bucket/backups

  # Prune old backups, always keeping the five newest
  mysql-drift-guard cleanup --keep-days=30 --min-keep=5

  # Run scheduled backups until interrupted
  mysql-drift-guard start-scheduler --backup-interval=24h`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mysql-drift-guard.yaml)")

	rootCmd.PersistentFlags().StringVar(&dbHost, "db-host", "", "database host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "db-port", 3306, "database port")
	rootCmd.PersistentFlags().StringVar(&dbUsername, "db-user", "", "database username")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "db-password", "", "database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "db-name", "", "database name")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "database operation timeout")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file in addition to stdout")

	rootCmd.PersistentFlags().StringVar(&backupDir, "backup-dir", "backups", "directory holding backup files")
	rootCmd.PersistentFlags().StringVar(&schemaDir, "schema-dir", "schema", "directory holding generated migration scripts")
	rootCmd.PersistentFlags().StringVar(&reportDir, "report-dir", "reports", "directory holding drift reports")

	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format (table, json, yaml)")

	viper.BindPFlag("db.host", rootCmd.PersistentFlags().Lookup("db-host"))
	viper.BindPFlag("db.port", rootCmd.PersistentFlags().Lookup("db-port"))
	viper.BindPFlag("db.username", rootCmd.PersistentFlags().Lookup("db-user"))
	viper.BindPFlag("db.password", rootCmd.PersistentFlags().Lookup("db-password"))
	viper.BindPFlag("db.database", rootCmd.PersistentFlags().Lookup("db-name"))
	viper.BindPFlag("db.timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	viper.BindPFlag("backup.dir", rootCmd.PersistentFlags().Lookup("backup-dir"))
	viper.BindPFlag("schema_dir", rootCmd.PersistentFlags().Lookup("schema-dir"))
	viper.BindPFlag("report_dir", rootCmd.PersistentFlags().Lookup("report-dir"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newConfigCommand())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mysql-drift-guard")
	}

	viper.SetEnvPrefix("MYSQL_DRIFT_GUARD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// buildDatabaseConfig merges config file, environment, and flag values
func buildDatabaseConfig() (*database.Config, error) {
	config := &database.Config{}
	if err := viper.UnmarshalKey("db", config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal database configuration: %w", err)
	}

	if dbHost != "" {
		config.Host = dbHost
	}
	if rootCmd.PersistentFlags().Changed("db-port") {
		config.Port = dbPort
	}
	if dbUsername != "" {
		config.Username = dbUsername
	}
	if dbPassword != "" {
		config.Password = dbPassword
	}
	if dbName != "" {
		config.Database = dbName
	}
	if rootCmd.PersistentFlags().Changed("timeout") {
		config.Timeout = timeout
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// newLogger creates the logger used by every command
func newLogger() (*logging.Logger, error) {
	if verbose && quiet {
		return nil, fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}

	level := logging.LogLevelNormal
	if verbose {
		level = logging.LogLevelVerbose
	}
	if quiet {
		level = logging.LogLevelQuiet
	}

	return logging.NewLogger(logging.Config{
		Level:   level,
		Output:  os.Stderr,
		Format:  "text",
		LogFile: logFile,
	})
}

// newDisplay creates the display service and parses the output format
func newDisplay() (*display.Service, display.OutputFormat, error) {
	format, err := display.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, format, err
	}
	return display.NewService(), format, nil
}

// resolveDir prefers an explicit flag, then the config file, then the
// flag's default.
func resolveDir(flagName, viperKey, flagValue string) string {
	if rootCmd.PersistentFlags().Changed(flagName) {
		return flagValue
	}
	if value := viper.GetString(viperKey); value != "" {
		return value
	}
	return flagValue
}

func backupDirectory() string { return resolveDir("backup-dir", "backup.dir", backupDir) }
func schemaDirectory() string { return resolveDir("schema-dir", "schema_dir", schemaDir) }
func reportDirectory() string { return resolveDir("report-dir", "report_dir", reportDir) }

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mysql-drift-guard version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Generate a sample configuration file",
		Long: `Generate a sample configuration file for use with the --config flag.

Example:
  mysql-drift-guard config > .mysql-drift-guard.yaml`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(sampleConfig)
		},
	}
}

const sampleConfig = `# MySQL Drift Guard configuration file

# Database connection
db:
  host: localhost         # Database hostname or IP
  port: 3306              # Database port
  username: root          # Database username
  password: ""            # Database password (prefer the env var below)
  database: shop          # Database name
  timeout: 30s            # Connection timeout

# Directories
backup:
  dir: backups            # Where backup files are written
schema_dir: schema        # Where generated migration scripts are written
report_dir: reports       # Where drift reports are written

# Operation settings
verbose: false            # Verbose output
quiet: false              # Suppress non-error output
log_file: ""              # Optional log file path
format: table             # Output format (table, json, yaml)

# Security recommendations:
# 1. Store the password in an environment variable:
#    export MYSQL_DRIFT_GUARD_DB_PASSWORD=your_password
# 2. Set restrictive file permissions: chmod 600 .mysql-drift-guard.yaml
# 3. Use a dedicated database user with minimal required privileges
`
