package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"mysql-drift-guard/internal/errors"
)

// Comparator diffs an expected snapshot against an actual one and produces an
// immutable DriftReport.
type Comparator struct{}

// NewComparator creates a new drift comparator
func NewComparator() *Comparator {
	return &Comparator{}
}

// Compare applies the per-table drift algorithm: table presence, column
// presence, type containment check, and foreign-key constraint check, then
// records extra tables/columns separately. Severity is computed once after
// all per-table comparisons.
func (c *Comparator) Compare(expected, actual *SchemaSnapshot) *DriftReport {
	report := &DriftReport{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now(),
		TableDrift:  make(map[string]*TableDrift),
	}

	for _, tableName := range sortedTableNames(expected) {
		expectedTable := expected.Tables[tableName]

		actualTable, ok := actual.GetTable(tableName)
		if !ok {
			// A missing table ends comparison for that table; the column
			// level has nothing to compare against.
			report.MissingTables = append(report.MissingTables, tableName)
			continue
		}

		drift := c.compareTable(expectedTable, actualTable)
		if !drift.IsEmpty() {
			report.TableDrift[tableName] = drift
		}
	}

	for _, tableName := range sortedTableNames(actual) {
		if _, ok := expected.GetTable(tableName); !ok {
			report.ExtraTables = append(report.ExtraTables, tableName)
		}
	}

	report.Severity = c.classify(report)

	if len(report.TableDrift) == 0 {
		report.TableDrift = nil
	}

	return report
}

// compareTable diffs one table present in both snapshots
func (c *Comparator) compareTable(expected, actual *TableSchema) *TableDrift {
	drift := &TableDrift{}

	for _, columnName := range sortedColumnNames(expected) {
		expectedColumn := expected.Columns[columnName]

		actualColumn, ok := actual.GetColumn(columnName)
		if !ok {
			drift.MissingColumns = append(drift.MissingColumns, columnName)
			continue
		}

		if !typeMatches(expectedColumn.DataType, actualColumn.DataType) {
			drift.TypeMismatches = append(drift.TypeMismatches, TypeMismatch{
				Column:   columnName,
				Expected: expectedColumn.DataType,
				Actual:   actualColumn.DataType,
			})
		}
	}

	for _, columnName := range sortedColumnNames(actual) {
		if _, ok := expected.GetColumn(columnName); !ok {
			drift.ExtraColumns = append(drift.ExtraColumns, columnName)
		}
	}

	// Constraint comparison is restricted to foreign keys. Missing
	// protections are dangerous; extra ones are not penalized.
	for _, expectedFK := range expected.ForeignKeys() {
		if !hasMatchingForeignKey(actual, expectedFK) {
			drift.MissingConstraints = append(drift.MissingConstraints, expectedFK)
		}
	}

	return drift
}

// typeMatches implements the containment heuristic: the expected type must
// appear within the actual type, case-insensitively. Catalogs often report a
// wider or aliased name for the same logical type than the code declares.
func typeMatches(expected, actual string) bool {
	return strings.Contains(
		strings.ToLower(strings.TrimSpace(actual)),
		strings.ToLower(strings.TrimSpace(expected)),
	)
}

// hasMatchingForeignKey looks for an actual foreign key with an identical
// column set and identical table(column) target.
func hasMatchingForeignKey(actual *TableSchema, want ConstraintSpec) bool {
	for _, fk := range actual.ForeignKeys() {
		if fk.SameColumns(want.Columns) && fk.Target() == want.Target() {
			return true
		}
	}
	return false
}

// classify derives the report severity with precedence
// critical > moderate > low > none.
func (c *Comparator) classify(report *DriftReport) Severity {
	severity := SeverityNone

	if len(report.MissingTables) > 0 {
		severity = severity.Max(SeverityCritical)
	}

	for _, drift := range report.TableDrift {
		if len(drift.MissingColumns) > 0 {
			severity = severity.Max(SeverityCritical)
		}
		if len(drift.TypeMismatches) > 0 || len(drift.MissingConstraints) > 0 {
			severity = severity.Max(SeverityModerate)
		}
		if len(drift.ExtraColumns) > 0 {
			severity = severity.Max(SeverityLow)
		}
	}

	// Additive drift alone never raises severity above low
	if len(report.ExtraTables) > 0 {
		severity = severity.Max(SeverityLow)
	}

	return severity
}

// SaveReport persists a drift report as a timestamped JSON file under dir and
// returns the written path. Reports are an audit trail; each run writes a new
// file.
func (c *Comparator) SaveReport(report *DriftReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.NewValidationError(fmt.Sprintf("failed to create reports directory %s", dir), err)
	}

	filename := fmt.Sprintf("drift_report_%s.json", report.GeneratedAt.Format("20060102150405"))
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.NewValidationError("failed to serialize drift report", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.NewValidationError(fmt.Sprintf("failed to write drift report %s", path), err)
	}

	return path, nil
}

func sortedTableNames(snapshot *SchemaSnapshot) []string {
	names := make([]string, 0, len(snapshot.Tables))
	for name := range snapshot.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedColumnNames(table *TableSchema) []string {
	names := make([]string, 0, len(table.Columns))
	for name := range table.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
