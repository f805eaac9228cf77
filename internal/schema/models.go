package schema

import (
	"fmt"
	"strings"
	"time"
)

// ConstraintKind represents the kind of table constraint tracked for drift
type ConstraintKind string

const (
	ConstraintKindUnique     ConstraintKind = "unique"
	ConstraintKindForeignKey ConstraintKind = "foreign_key"
)

// ColumnSchema describes one column as captured in a snapshot. Immutable once
// captured.
type ColumnSchema struct {
	Name       string  `json:"name"`
	DataType   string  `json:"data_type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey bool    `json:"primary_key"`
}

// ConstraintSpec describes a unique or foreign-key constraint. For foreign
// keys the referenced target renders as table(column).
type ConstraintSpec struct {
	Name      string         `json:"name"`
	Kind      ConstraintKind `json:"kind"`
	Columns   []string       `json:"columns"`
	RefTable  string         `json:"ref_table,omitempty"`
	RefColumn string         `json:"ref_column,omitempty"`
}

// Target returns the foreign-key target formatted as table(column)
func (cs *ConstraintSpec) Target() string {
	if cs.Kind != ConstraintKindForeignKey {
		return ""
	}
	return fmt.Sprintf("%s(%s)", cs.RefTable, cs.RefColumn)
}

// SameColumns reports whether the constraint covers exactly the given column
// set, in order.
func (cs *ConstraintSpec) SameColumns(columns []string) bool {
	if len(cs.Columns) != len(columns) {
		return false
	}
	for i, col := range cs.Columns {
		if col != columns[i] {
			return false
		}
	}
	return true
}

// TableSchema describes one table: columns keyed by name plus an ordered
// constraint list.
type TableSchema struct {
	Name        string                   `json:"name"`
	Columns     map[string]*ColumnSchema `json:"columns"`
	Constraints []ConstraintSpec         `json:"constraints,omitempty"`
}

// NewTableSchema creates an empty TableSchema
func NewTableSchema(name string) *TableSchema {
	return &TableSchema{
		Name:    name,
		Columns: make(map[string]*ColumnSchema),
	}
}

// AddColumn adds a column to the table definition
func (t *TableSchema) AddColumn(column *ColumnSchema) error {
	if column == nil {
		return fmt.Errorf("column cannot be nil")
	}
	if column.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if column.DataType == "" {
		return fmt.Errorf("column %s data type cannot be empty", column.Name)
	}
	t.Columns[column.Name] = column
	return nil
}

// AddConstraint appends a constraint to the table definition
func (t *TableSchema) AddConstraint(spec ConstraintSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("constraint name cannot be empty")
	}
	if len(spec.Columns) == 0 {
		return fmt.Errorf("constraint %s must have at least one column", spec.Name)
	}
	if spec.Kind == ConstraintKindForeignKey && (spec.RefTable == "" || spec.RefColumn == "") {
		return fmt.Errorf("foreign key %s must have a referenced table and column", spec.Name)
	}
	t.Constraints = append(t.Constraints, spec)
	return nil
}

// GetColumn retrieves a column by name
func (t *TableSchema) GetColumn(name string) (*ColumnSchema, bool) {
	column, exists := t.Columns[name]
	return column, exists
}

// ForeignKeys returns the table's foreign-key constraints
func (t *TableSchema) ForeignKeys() []ConstraintSpec {
	var fks []ConstraintSpec
	for _, c := range t.Constraints {
		if c.Kind == ConstraintKindForeignKey {
			fks = append(fks, c)
		}
	}
	return fks
}

// PrimaryKeyColumns returns the names of the primary-key columns
func (t *TableSchema) PrimaryKeyColumns() []string {
	var pks []string
	for _, col := range t.Columns {
		if col.PrimaryKey {
			pks = append(pks, col.Name)
		}
	}
	return pks
}

// SchemaSnapshot is the full schema model at one point in time. Two kinds
// exist: expected (maintained in the Registry) and actual (produced fresh by
// the Introspector on every invocation, never cached).
type SchemaSnapshot struct {
	Tables     map[string]*TableSchema `json:"tables"`
	CapturedAt time.Time               `json:"captured_at"`
}

// NewSchemaSnapshot creates an empty snapshot stamped with the current time
func NewSchemaSnapshot() *SchemaSnapshot {
	return &SchemaSnapshot{
		Tables:     make(map[string]*TableSchema),
		CapturedAt: time.Now(),
	}
}

// AddTable adds a table to the snapshot
func (s *SchemaSnapshot) AddTable(table *TableSchema) {
	s.Tables[table.Name] = table
}

// GetTable retrieves a table by name
func (s *SchemaSnapshot) GetTable(name string) (*TableSchema, bool) {
	table, exists := s.Tables[name]
	return table, exists
}

// Severity classifies how dangerous detected drift is
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

// rank orders severities for precedence comparisons
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Max returns the higher-precedence of two severities
func (s Severity) Max(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// TypeMismatch records a column whose actual type does not contain the
// expected type.
type TypeMismatch struct {
	Column   string `json:"column"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// TableDrift records per-table differences between expected and actual
type TableDrift struct {
	MissingColumns     []string         `json:"missing_columns,omitempty"`
	ExtraColumns       []string         `json:"extra_columns,omitempty"`
	TypeMismatches     []TypeMismatch   `json:"type_mismatches,omitempty"`
	MissingConstraints []ConstraintSpec `json:"missing_constraints,omitempty"`
	ExtraConstraints   []ConstraintSpec `json:"extra_constraints,omitempty"`
}

// IsEmpty reports whether the table drift record carries no differences
func (td *TableDrift) IsEmpty() bool {
	return len(td.MissingColumns) == 0 &&
		len(td.ExtraColumns) == 0 &&
		len(td.TypeMismatches) == 0 &&
		len(td.MissingConstraints) == 0 &&
		len(td.ExtraConstraints) == 0
}

// DriftReport is the immutable result of one expected-vs-actual comparison
type DriftReport struct {
	ID            string                 `json:"id"`
	GeneratedAt   time.Time              `json:"generated_at"`
	MissingTables []string               `json:"missing_tables,omitempty"`
	ExtraTables   []string               `json:"extra_tables,omitempty"`
	TableDrift    map[string]*TableDrift `json:"table_drift,omitempty"`
	Severity      Severity               `json:"severity"`
}

// HasDrift reports whether any drift at all was detected
func (r *DriftReport) HasDrift() bool {
	return len(r.MissingTables) > 0 || len(r.ExtraTables) > 0 || len(r.TableDrift) > 0
}

// Summary renders a one-line human summary of the report
func (r *DriftReport) Summary() string {
	if !r.HasDrift() {
		return "no schema changes detected"
	}

	var parts []string
	if n := len(r.MissingTables); n > 0 {
		parts = append(parts, fmt.Sprintf("%d missing table(s)", n))
	}
	if n := len(r.ExtraTables); n > 0 {
		parts = append(parts, fmt.Sprintf("%d extra table(s)", n))
	}
	if n := len(r.TableDrift); n > 0 {
		parts = append(parts, fmt.Sprintf("%d drifted table(s)", n))
	}

	return fmt.Sprintf("severity %s: %s", r.Severity, strings.Join(parts, ", "))
}
