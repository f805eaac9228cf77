package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestAppError(t *testing.T) {
	cause := errors.New("underlying error")
	appErr := NewAppError(ErrorTypeDatabaseAccess, "connection failed", cause)

	if appErr.Type != ErrorTypeDatabaseAccess {
		t.Errorf("Expected type %v, got %v", ErrorTypeDatabaseAccess, appErr.Type)
	}

	if appErr.Message != "connection failed" {
		t.Errorf("Expected message 'connection failed', got %v", appErr.Message)
	}

	if appErr.Cause != cause {
		t.Errorf("Expected cause %v, got %v", cause, appErr.Cause)
	}

	expectedError := "database_access: connection failed (caused by: underlying error)"
	if appErr.Error() != expectedError {
		t.Errorf("Expected error string %v, got %v", expectedError, appErr.Error())
	}

	if !errors.Is(appErr, cause) {
		t.Error("Expected Unwrap to expose the cause")
	}
}

func TestAppErrorWithoutCause(t *testing.T) {
	appErr := NewValidationError("port must be between 1 and 65535", nil)

	expectedError := "validation: port must be between 1 and 65535"
	if appErr.Error() != expectedError {
		t.Errorf("Expected error string %v, got %v", expectedError, appErr.Error())
	}
}

func TestAppErrorWithContext(t *testing.T) {
	appErr := NewAppError(ErrorTypeMigrationApply, "statement failed", nil)
	appErr.WithContext("table", "users").WithContext("statement", 2)

	if appErr.Context["table"] != "users" {
		t.Errorf("Expected context table=users, got %v", appErr.Context["table"])
	}

	if appErr.Context["statement"] != 2 {
		t.Errorf("Expected context statement=2, got %v", appErr.Context["statement"])
	}
}

func TestNewMigrationGenerationErrorCarriesLocation(t *testing.T) {
	appErr := NewMigrationGenerationError("type mismatch on orders.user_id requires manual review", "orders", "user_id")

	if appErr.Type != ErrorTypeMigrationGeneration {
		t.Errorf("Expected migration generation error, got %v", appErr.Type)
	}
	if appErr.Context["table"] != "orders" {
		t.Errorf("Expected context table=orders, got %v", appErr.Context["table"])
	}
	if appErr.Context["column"] != "user_id" {
		t.Errorf("Expected context column=user_id, got %v", appErr.Context["column"])
	}
}

func TestErrorClassifier_ClassifyMySQLError(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		name         string
		mysqlErr     *mysql.MySQLError
		expectedType ErrorType
	}{
		{
			name:         "access denied",
			mysqlErr:     &mysql.MySQLError{Number: 1045, Message: "Access denied"},
			expectedType: ErrorTypeDatabaseAccess,
		},
		{
			name:         "unknown database",
			mysqlErr:     &mysql.MySQLError{Number: 1049, Message: "Unknown database"},
			expectedType: ErrorTypeDatabaseAccess,
		},
		{
			name:         "table does not exist",
			mysqlErr:     &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"},
			expectedType: ErrorTypeMigrationApply,
		},
		{
			name:         "unknown column",
			mysqlErr:     &mysql.MySQLError{Number: 1054, Message: "Unknown column"},
			expectedType: ErrorTypeMigrationApply,
		},
		{
			name:         "syntax error",
			mysqlErr:     &mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"},
			expectedType: ErrorTypeMigrationApply,
		},
		{
			name:         "cannot connect",
			mysqlErr:     &mysql.MySQLError{Number: 2003, Message: "Can't connect to MySQL server"},
			expectedType: ErrorTypeDatabaseAccess,
		},
		{
			name:         "server has gone away",
			mysqlErr:     &mysql.MySQLError{Number: 2006, Message: "MySQL server has gone away"},
			expectedType: ErrorTypeDatabaseAccess,
		},
		{
			name:         "other mysql error",
			mysqlErr:     &mysql.MySQLError{Number: 1213, Message: "Deadlock found"},
			expectedType: ErrorTypeDatabaseAccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := classifier.ClassifyError(tt.mysqlErr)
			if appErr.Type != tt.expectedType {
				t.Errorf("Expected type %v, got %v", tt.expectedType, appErr.Type)
			}
			if appErr.Context["mysql_error_code"] != tt.mysqlErr.Number {
				t.Errorf("Expected error code %d in context, got %v",
					tt.mysqlErr.Number, appErr.Context["mysql_error_code"])
			}
		})
	}
}

func TestErrorClassifier_ClassifySQLErrors(t *testing.T) {
	classifier := NewErrorClassifier()

	if appErr := classifier.ClassifyError(sql.ErrTxDone); appErr.Type != ErrorTypeMigrationApply {
		t.Errorf("Expected migration apply error for ErrTxDone, got %v", appErr.Type)
	}
	if appErr := classifier.ClassifyError(sql.ErrConnDone); appErr.Type != ErrorTypeDatabaseAccess {
		t.Errorf("Expected database access error for ErrConnDone, got %v", appErr.Type)
	}
}

func TestErrorClassifier_ClassifyNetworkError(t *testing.T) {
	classifier := NewErrorClassifier()

	dialErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	if appErr := classifier.ClassifyError(dialErr); appErr.Type != ErrorTypeDatabaseAccess {
		t.Errorf("Expected database access error for dial failure, got %v", appErr.Type)
	}
}

func TestErrorClassifier_ClassifyContextError(t *testing.T) {
	classifier := NewErrorClassifier()

	if appErr := classifier.ClassifyError(context.DeadlineExceeded); appErr.Type != ErrorTypeDatabaseAccess {
		t.Errorf("Expected database access error for deadline, got %v", appErr.Type)
	}
	if appErr := classifier.ClassifyError(context.Canceled); appErr.Type != ErrorTypeInterruption {
		t.Errorf("Expected interruption error for cancellation, got %v", appErr.Type)
	}
}

func TestErrorClassifier_ClassifyFileSystemError(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		name         string
		pathErr      *os.PathError
		expectedType ErrorType
	}{
		{
			name:         "file not found",
			pathErr:      &os.PathError{Op: "open", Path: "/backups/missing.sql", Err: syscall.ENOENT},
			expectedType: ErrorTypeValidation,
		},
		{
			name:         "permission denied",
			pathErr:      &os.PathError{Op: "open", Path: "/backups", Err: syscall.EACCES},
			expectedType: ErrorTypeBackupIO,
		},
		{
			name:         "disk full",
			pathErr:      &os.PathError{Op: "write", Path: "/backups/backup.sql", Err: syscall.ENOSPC},
			expectedType: ErrorTypeBackupIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := classifier.ClassifyError(tt.pathErr)
			if appErr.Type != tt.expectedType {
				t.Errorf("Expected type %v, got %v", tt.expectedType, appErr.Type)
			}
		})
	}
}

func TestErrorClassifier_PreservesAppError(t *testing.T) {
	classifier := NewErrorClassifier()
	original := NewBackupIOError("disk full", nil)

	classified := classifier.ClassifyError(fmt.Errorf("wrapped: %w", original))
	if classified != original {
		t.Error("Expected the original AppError back when one is already present")
	}
}

func TestErrorClassifier_UnknownError(t *testing.T) {
	classifier := NewErrorClassifier()

	appErr := classifier.ClassifyError(errors.New("something odd"))
	if appErr.Type != ErrorTypeUnknown {
		t.Errorf("Expected unknown error type, got %v", appErr.Type)
	}

	if classifier.ClassifyError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestGetErrorType(t *testing.T) {
	appErr := NewMigrationApplyError("statement failed", nil)

	if got := GetErrorType(appErr); got != ErrorTypeMigrationApply {
		t.Errorf("Expected migration apply type, got %v", got)
	}
	if got := GetErrorType(fmt.Errorf("outer: %w", appErr)); got != ErrorTypeMigrationApply {
		t.Errorf("Expected type to survive wrapping, got %v", got)
	}
	if got := GetErrorType(errors.New("plain")); got != ErrorTypeUnknown {
		t.Errorf("Expected unknown type for plain error, got %v", got)
	}
}

func TestFormatUserError(t *testing.T) {
	if FormatUserError(nil) != "" {
		t.Error("Expected empty string for nil error")
	}

	appErr := NewValidationError("host is required", nil)
	appErr.UserMessage = "Set --db-host or the db.host config key"
	if got := FormatUserError(appErr); got != "Set --db-host or the db.host config key" {
		t.Errorf("Expected user message, got %v", got)
	}

	plain := errors.New("boom")
	if got := FormatUserError(plain); got != "boom" {
		t.Errorf("Expected plain error text, got %v", got)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "context") != nil {
		t.Error("Expected nil for nil error")
	}

	original := NewBackupIOError("disk full", nil)
	wrapped := WrapError(original, "backup failed")

	if GetErrorType(wrapped) != ErrorTypeBackupIO {
		t.Errorf("Expected wrapped error to keep its type, got %v", GetErrorType(wrapped))
	}
	if !errors.Is(wrapped, original) {
		t.Error("Expected wrapped error to unwrap to the original")
	}

	plain := WrapError(errors.New("boom"), "something failed")
	var appErr *AppError
	if !errors.As(plain, &appErr) {
		t.Fatal("Expected plain error to be classified")
	}
	if appErr.Message != "something failed" {
		t.Errorf("Expected replacement message, got %v", appErr.Message)
	}
}
