package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mysql-drift-guard/internal/errors"
	"mysql-drift-guard/internal/logging"
)

// ErrorPolicy controls how the applier reacts to a failing statement
type ErrorPolicy string

const (
	// PolicyAbort executes the whole artifact in one transaction; any
	// failure rolls back every prior statement.
	PolicyAbort ErrorPolicy = "abort"
	// PolicyContinue executes each statement independently and records
	// failures without stopping subsequent statements. Used for idempotent
	// fix-up scripts where statements may already be satisfied.
	PolicyContinue ErrorPolicy = "continue"
)

// ApplyOptions configures one application run
type ApplyOptions struct {
	BackupFirst bool
	OnError     ErrorPolicy
}

// StatementResult records the outcome of one statement
type StatementResult struct {
	Statement string
	Err       error
}

// ApplyResult summarizes an application run
type ApplyResult struct {
	AppliedCount int
	Results      []StatementResult
	BackupPath   string
}

// BackupFunc creates a safety-net backup and returns the written path
type BackupFunc func(ctx context.Context) (string, error)

// Applier executes a migration artifact against the live database
type Applier struct {
	logger   *logging.Logger
	backupFn BackupFunc
}

// NewApplier creates a new migration applier
func NewApplier(logger *logging.Logger) *Applier {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Applier{logger: logger}
}

// SetBackupFunc wires the safety-net backup used when BackupFirst is set
func (a *Applier) SetBackupFunc(fn BackupFunc) {
	a.backupFn = fn
}

// Apply executes the artifact's statements sequentially. With BackupFirst
// set, a failing backup withholds the migration entirely; schema changes are
// never applied without a fallback unless the caller explicitly skips the
// safety net.
func (a *Applier) Apply(ctx context.Context, db *sql.DB, artifact *Artifact, opts ApplyOptions) (*ApplyResult, error) {
	if db == nil {
		return nil, errors.NewValidationError("database connection is nil", nil)
	}
	if artifact == nil || len(artifact.Statements) == 0 {
		return nil, errors.NewValidationError("artifact has no statements to apply", nil)
	}
	if opts.OnError == "" {
		opts.OnError = PolicyAbort
	}

	result := &ApplyResult{}

	if opts.BackupFirst {
		if a.backupFn == nil {
			return nil, errors.NewValidationError("backup requested but no backup function configured", nil)
		}
		backupPath, err := a.backupFn(ctx)
		if err != nil {
			return nil, errors.NewMigrationApplyError("backup failed, migration withheld", err)
		}
		result.BackupPath = backupPath
		a.logger.WithField("backup", backupPath).Info("Pre-migration backup created")
	}

	startTime := time.Now()
	var err error

	switch opts.OnError {
	case PolicyAbort:
		err = a.applyTransactional(ctx, db, artifact, result)
	case PolicyContinue:
		err = a.applyIndependent(ctx, db, artifact, result)
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown error policy %q", opts.OnError), nil)
	}

	a.logger.LogMigrationApply(artifact.Path, result.AppliedCount, time.Since(startTime), err)

	if err != nil {
		return result, err
	}
	return result, nil
}

// applyTransactional runs every statement in one transaction. On any failure
// the transaction rolls back and AppliedCount stays zero: statements before
// the failure are never observed as applied.
func (a *Applier) applyTransactional(ctx context.Context, db *sql.DB, artifact *Artifact, result *ApplyResult) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewMigrationApplyError("failed to begin transaction", err)
	}

	for i, stmt := range artifact.Statements {
		startTime := time.Now()
		_, execErr := tx.ExecContext(ctx, stmt)
		a.logger.LogSQLExecution(logging.SanitizeSQL(stmt), time.Since(startTime), 0, execErr)

		result.Results = append(result.Results, StatementResult{Statement: stmt, Err: execErr})

		if execErr != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				a.logger.WithField("error", rollbackErr.Error()).Error("Failed to rollback transaction")
			}
			return errors.NewMigrationApplyError(
				fmt.Sprintf("statement %d failed, all statements rolled back", i+1), execErr).
				WithContext("statement", stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewMigrationApplyError("failed to commit transaction", err)
	}

	result.AppliedCount = len(artifact.Statements)
	return nil
}

// applyIndependent runs each statement on its own; failures are recorded
// per-statement and never stop later statements.
func (a *Applier) applyIndependent(ctx context.Context, db *sql.DB, artifact *Artifact, result *ApplyResult) error {
	failures := 0

	for _, stmt := range artifact.Statements {
		startTime := time.Now()
		_, execErr := db.ExecContext(ctx, stmt)
		a.logger.LogSQLExecution(logging.SanitizeSQL(stmt), time.Since(startTime), 0, execErr)

		result.Results = append(result.Results, StatementResult{Statement: stmt, Err: execErr})
		if execErr != nil {
			failures++
		} else {
			result.AppliedCount++
		}
	}

	if failures > 0 {
		return errors.NewMigrationApplyError(
			fmt.Sprintf("%d of %d statements failed", failures, len(artifact.Statements)), nil)
	}
	return nil
}
