package database

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"mysql-drift-guard/internal/errors"
	"mysql-drift-guard/internal/logging"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// DatabaseService defines the interface for database operations
type DatabaseService interface {
	Connect(config Config) (*sql.DB, error)
	TestConnection(db *sql.DB) error
	Close(db *sql.DB) error
	GetVersion(db *sql.DB) (string, error)
	TableRowCounts(db *sql.DB, schemaName string) ([]TableRowCount, error)
}

// TableRowCount holds the approximate row count for one table
type TableRowCount struct {
	Table string `json:"table" yaml:"table"`
	Rows  int64  `json:"rows" yaml:"rows"`
}

// Service implements the DatabaseService interface. Connection and statement
// failures surface immediately to the caller; nothing is retried.
type Service struct {
	connectionTimeout time.Duration
	logger            *logging.Logger
}

// NewService creates a new database service with default settings
func NewService() *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		logger:            logging.NewDefaultLogger(),
	}
}

// NewServiceWithLogger creates a new database service with a custom logger
func NewServiceWithLogger(logger *logging.Logger) *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		logger:            logger,
	}
}

// Connect establishes a connection to the MySQL database
func (s *Service) Connect(config Config) (*sql.DB, error) {
	startTime := time.Now()

	s.logger.WithFields(map[string]interface{}{
		"host":     config.Host,
		"database": config.Database,
		"port":     config.Port,
	}).Info("Attempting database connection")

	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		s.logger.LogDatabaseConnection(config.Host, config.Database, false, time.Since(startTime), err)
		return nil, errors.NewDatabaseAccessError("failed to open database connection", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := s.TestConnection(db); err != nil {
		db.Close()
		s.logger.LogDatabaseConnection(config.Host, config.Database, false, time.Since(startTime), err)
		return nil, err
	}

	s.logger.LogDatabaseConnection(config.Host, config.Database, true, time.Since(startTime), nil)
	return db, nil
}

// TestConnection verifies that the database connection is working
func (s *Service) TestConnection(db *sql.DB) error {
	if db == nil {
		return errors.NewValidationError("database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return errors.NewDatabaseAccessError("failed to ping database", err)
	}

	s.logger.Debug("Database connection test successful")
	return nil
}

// Close gracefully closes the database connection
func (s *Service) Close(db *sql.DB) error {
	if db == nil {
		s.logger.Debug("Database connection is nil, nothing to close")
		return nil
	}

	s.logger.Debug("Closing database connection")
	if err := db.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to close database connection")
		return errors.NewDatabaseAccessError("failed to close database connection", err)
	}

	return nil
}

// GetVersion retrieves the MySQL server version
func (s *Service) GetVersion(db *sql.DB) (string, error) {
	if db == nil {
		return "", errors.NewValidationError("database connection is nil", nil)
	}

	var version string
	query := "SELECT VERSION()"
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	err := db.QueryRowContext(ctx, query).Scan(&version)
	s.logger.LogSQLExecution(query, time.Since(startTime), 1, err)

	if err != nil {
		return "", errors.NewDatabaseAccessError("failed to get database version", err)
	}

	return version, nil
}

// TableRowCounts returns per-table approximate row counts from the catalog,
// sorted by table name. TABLE_ROWS is an estimate for InnoDB tables, which is
// acceptable for a status display.
func (s *Service) TableRowCounts(db *sql.DB, schemaName string) ([]TableRowCount, error) {
	if db == nil {
		return nil, errors.NewValidationError("database connection is nil", nil)
	}

	query := `
		SELECT TABLE_NAME, COALESCE(TABLE_ROWS, 0)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, errors.NewDatabaseAccessError("failed to query table row counts", err)
	}
	defer rows.Close()

	var counts []TableRowCount
	for rows.Next() {
		var trc TableRowCount
		if err := rows.Scan(&trc.Table, &trc.Rows); err != nil {
			return nil, errors.NewDatabaseAccessError("failed to scan table row count", err)
		}
		counts = append(counts, trc)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseAccessError("error iterating row count results", err)
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i].Table < counts[j].Table })

	return counts, nil
}
