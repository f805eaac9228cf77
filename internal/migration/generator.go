package migration

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mysql-drift-guard/internal/errors"
	"mysql-drift-guard/internal/schema"
)

// Generator turns a DriftReport into an ordered DDL artifact. Only
// mechanically expressible drift is emitted: missing tables, missing columns,
// and missing foreign keys. Type mismatches require data transformation and
// are flagged for manual review instead of silently emitted.
type Generator struct{}

// NewGenerator creates a new migration script generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate produces an artifact correcting the given drift. Statements are
// ordered so tables precede the foreign keys that reference them and columns
// precede constraints referencing those columns.
func (g *Generator) Generate(report *schema.DriftReport, expected *schema.SchemaSnapshot) (*Artifact, error) {
	if report == nil {
		return nil, errors.NewValidationError("drift report cannot be nil", nil)
	}
	if !report.HasDrift() {
		return nil, errors.NewValidationError("drift report carries no drift to correct", nil)
	}

	// Type mismatches cannot be corrected by DDL alone; refuse rather than
	// emit a lossy ALTER.
	for tableName, drift := range report.TableDrift {
		for _, mismatch := range drift.TypeMismatches {
			return nil, errors.NewMigrationGenerationError(
				fmt.Sprintf("type mismatch on %s.%s (expected %s, actual %s) requires manual review",
					tableName, mismatch.Column, mismatch.Expected, mismatch.Actual),
				tableName, mismatch.Column)
		}
	}

	var statements []string
	var pendingFKs []tableForeignKey

	// Missing tables first, referenced tables before referencing ones.
	// Foreign keys of created tables are deferred to ADD CONSTRAINT
	// statements after every table exists.
	for _, tableName := range orderTablesByReference(report.MissingTables, expected) {
		table, ok := expected.GetTable(tableName)
		if !ok {
			return nil, errors.NewMigrationGenerationError(
				fmt.Sprintf("missing table %s has no definition in the expected schema", tableName),
				tableName, "")
		}
		statements = append(statements, g.createTableSQL(table))
		for _, fk := range table.ForeignKeys() {
			pendingFKs = append(pendingFKs, tableForeignKey{table: tableName, spec: fk})
		}
	}

	// Missing columns next, before any constraint that may reference them
	for _, tableName := range sortedDriftTables(report) {
		drift := report.TableDrift[tableName]
		table, ok := expected.GetTable(tableName)
		if !ok {
			continue
		}
		for _, columnName := range drift.MissingColumns {
			column, ok := table.GetColumn(columnName)
			if !ok {
				return nil, errors.NewMigrationGenerationError(
					fmt.Sprintf("missing column %s.%s has no definition in the expected schema", tableName, columnName),
					tableName, columnName)
			}
			statements = append(statements, g.addColumnSQL(tableName, column))
		}
	}

	// Missing foreign keys last
	for _, tableName := range sortedDriftTables(report) {
		for _, fk := range report.TableDrift[tableName].MissingConstraints {
			if fk.Kind == schema.ConstraintKindForeignKey {
				pendingFKs = append(pendingFKs, tableForeignKey{table: tableName, spec: fk})
			}
		}
	}
	for _, pending := range pendingFKs {
		statements = append(statements, g.addForeignKeySQL(pending.table, pending.spec))
	}

	if len(statements) == 0 {
		return nil, errors.NewMigrationGenerationError(
			"drift detected but none of it is mechanically expressible as DDL", "", "")
	}

	return &Artifact{
		Statements:  statements,
		GeneratedAt: time.Now(),
		Description: "schema drift",
		Report:      report,
	}, nil
}

type tableForeignKey struct {
	table string
	spec  schema.ConstraintSpec
}

// createTableSQL renders a CREATE TABLE with columns, primary key, and
// unique constraints. Foreign keys are added separately.
func (g *Generator) createTableSQL(table *schema.TableSchema) string {
	var defs []string

	for _, columnName := range sortedColumns(table) {
		defs = append(defs, g.columnDefinition(table.Columns[columnName]))
	}

	if pks := table.PrimaryKeyColumns(); len(pks) > 0 {
		sort.Strings(pks)
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteJoin(pks)))
	}

	for _, constraint := range table.Constraints {
		if constraint.Kind == schema.ConstraintKindUnique {
			defs = append(defs, fmt.Sprintf("UNIQUE KEY %s (%s)",
				quoteIdent(constraint.Name), quoteJoin(constraint.Columns)))
		}
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("CREATE TABLE %s (\n", quoteIdent(table.Name)))
	builder.WriteString("  " + strings.Join(defs, ",\n  "))
	builder.WriteString("\n)")
	return builder.String()
}

// addColumnSQL renders an ALTER TABLE ADD COLUMN statement
func (g *Generator) addColumnSQL(tableName string, column *schema.ColumnSchema) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		quoteIdent(tableName), g.columnDefinition(column))
}

// addForeignKeySQL renders an ALTER TABLE ADD CONSTRAINT statement
func (g *Generator) addForeignKeySQL(tableName string, fk schema.ConstraintSpec) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		quoteIdent(tableName),
		quoteIdent(fk.Name),
		quoteJoin(fk.Columns),
		quoteIdent(fk.RefTable),
		quoteIdent(fk.RefColumn))
}

// columnDefinition renders the SQL definition for one column
func (g *Generator) columnDefinition(column *schema.ColumnSchema) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s %s", quoteIdent(column.Name), column.DataType))

	if column.Nullable {
		builder.WriteString(" NULL")
	} else {
		builder.WriteString(" NOT NULL")
	}

	if column.Default != nil {
		defaultVal := *column.Default
		upper := strings.ToUpper(defaultVal)
		if upper == "CURRENT_TIMESTAMP" || upper == "NOW()" || upper == "NULL" {
			builder.WriteString(fmt.Sprintf(" DEFAULT %s", defaultVal))
		} else {
			builder.WriteString(fmt.Sprintf(" DEFAULT '%s'", strings.ReplaceAll(defaultVal, "'", "''")))
		}
	}

	return builder.String()
}

// quoteIdent backtick-quotes an identifier. Identifiers always flow through
// this helper; values are never interpolated into DDL.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}

// orderTablesByReference sorts the missing-table set so a table appears after
// any missing table it references. FK targets outside the missing set impose
// no ordering.
func orderTablesByReference(missing []string, expected *schema.SchemaSnapshot) []string {
	missingSet := make(map[string]bool, len(missing))
	for _, name := range missing {
		missingSet[name] = true
	}

	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)

	var ordered []string
	placed := make(map[string]bool, len(sorted))

	var place func(name string, trail map[string]bool)
	place = func(name string, trail map[string]bool) {
		if placed[name] || trail[name] {
			return
		}
		trail[name] = true
		if table, ok := expected.GetTable(name); ok {
			for _, fk := range table.ForeignKeys() {
				if missingSet[fk.RefTable] && fk.RefTable != name {
					place(fk.RefTable, trail)
				}
			}
		}
		placed[name] = true
		ordered = append(ordered, name)
	}

	for _, name := range sorted {
		place(name, make(map[string]bool))
	}

	return ordered
}

func sortedDriftTables(report *schema.DriftReport) []string {
	names := make([]string, 0, len(report.TableDrift))
	for name := range report.TableDrift {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedColumns(table *schema.TableSchema) []string {
	names := make([]string, 0, len(table.Columns))
	for name := range table.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
