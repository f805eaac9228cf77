package schema

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"mysql-drift-guard/internal/errors"
)

// Introspector captures the live schema from the MySQL catalog. Every call
// produces a fresh snapshot; drift detection must always reflect live state.
type Introspector struct {
	queryTimeout time.Duration
}

// NewIntrospector creates a new schema introspector
func NewIntrospector() *Introspector {
	return &Introspector{
		queryTimeout: 30 * time.Second,
	}
}

// NewIntrospectorWithTimeout creates a new schema introspector with custom timeout
func NewIntrospectorWithTimeout(timeout time.Duration) *Introspector {
	return &Introspector{
		queryTimeout: timeout,
	}
}

// Introspect queries the catalog in four passes (tables, columns, primary
// keys, foreign/unique constraints) and assembles the TableSchema graph.
// Assembly is pure once the four raw result sets are fetched.
func (in *Introspector) Introspect(db *sql.DB, schemaName string) (*SchemaSnapshot, error) {
	if db == nil {
		return nil, errors.NewValidationError("database connection is nil", nil)
	}
	if schemaName == "" {
		return nil, errors.NewValidationError("schema name cannot be empty", nil)
	}

	snapshot := NewSchemaSnapshot()

	tableNames, err := in.fetchTables(db, schemaName)
	if err != nil {
		return nil, err
	}
	for _, name := range tableNames {
		snapshot.AddTable(NewTableSchema(name))
	}

	columns, err := in.fetchColumns(db, schemaName)
	if err != nil {
		return nil, err
	}
	for _, col := range columns {
		if table, ok := snapshot.GetTable(col.table); ok {
			table.Columns[col.column.Name] = col.column
		}
	}

	primaryKeys, err := in.fetchPrimaryKeys(db, schemaName)
	if err != nil {
		return nil, err
	}
	for _, pk := range primaryKeys {
		if table, ok := snapshot.GetTable(pk.table); ok {
			if column, ok := table.GetColumn(pk.column); ok {
				column.PrimaryKey = true
			}
		}
	}

	constraints, err := in.fetchConstraints(db, schemaName)
	if err != nil {
		return nil, err
	}
	for _, tc := range constraints {
		if table, ok := snapshot.GetTable(tc.table); ok {
			table.Constraints = append(table.Constraints, tc.spec)
		}
	}

	return snapshot, nil
}

// fetchTables returns the names of all user-visible base tables
func (in *Introspector) fetchTables(db *sql.DB, schemaName string) ([]string, error) {
	query := `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	ctx, cancel := context.WithTimeout(context.Background(), in.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, errors.NewDatabaseAccessError("failed to query tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, errors.NewDatabaseAccessError("failed to scan table name", err)
		}
		tables = append(tables, tableName)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseAccessError("error iterating table rows", err)
	}

	return tables, nil
}

// tableColumn pairs a column definition with its owning table
type tableColumn struct {
	table  string
	column *ColumnSchema
}

// fetchColumns returns all columns in the schema with normalized type,
// nullability, and default expression.
func (in *Introspector) fetchColumns(db *sql.DB, schemaName string) ([]tableColumn, error) {
	query := `
		SELECT TABLE_NAME, COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, ORDINAL_POSITION
	`

	ctx, cancel := context.WithTimeout(context.Background(), in.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, errors.NewDatabaseAccessError("failed to query columns", err)
	}
	defer rows.Close()

	var columns []tableColumn
	for rows.Next() {
		var tableName, columnName, columnType, isNullable string
		var defaultValue sql.NullString

		if err := rows.Scan(&tableName, &columnName, &columnType, &isNullable, &defaultValue); err != nil {
			return nil, errors.NewDatabaseAccessError("failed to scan column data", err)
		}

		column := &ColumnSchema{
			Name:     columnName,
			DataType: columnType, // COLUMN_TYPE carries the full type, e.g. varchar(255)
			Nullable: isNullable == "YES",
		}
		if defaultValue.Valid {
			column.Default = &defaultValue.String
		}

		columns = append(columns, tableColumn{table: tableName, column: column})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseAccessError("error iterating column rows", err)
	}

	return columns, nil
}

// tablePrimaryKey names one primary-key member column
type tablePrimaryKey struct {
	table  string
	column string
}

// fetchPrimaryKeys returns the primary-key column set for each table
func (in *Introspector) fetchPrimaryKeys(db *sql.DB, schemaName string) ([]tablePrimaryKey, error) {
	query := `
		SELECT TABLE_NAME, COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND CONSTRAINT_NAME = 'PRIMARY'
		ORDER BY TABLE_NAME, ORDINAL_POSITION
	`

	ctx, cancel := context.WithTimeout(context.Background(), in.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, errors.NewDatabaseAccessError("failed to query primary keys", err)
	}
	defer rows.Close()

	var keys []tablePrimaryKey
	for rows.Next() {
		var pk tablePrimaryKey
		if err := rows.Scan(&pk.table, &pk.column); err != nil {
			return nil, errors.NewDatabaseAccessError("failed to scan primary key data", err)
		}
		keys = append(keys, pk)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseAccessError("error iterating primary key rows", err)
	}

	return keys, nil
}

// tableConstraint pairs an assembled constraint with its owning table
type tableConstraint struct {
	table string
	spec  ConstraintSpec
}

// constraintBuilder accumulates member columns for one named constraint so
// multi-column uniqueness is captured as a single ConstraintSpec.
type constraintBuilder struct {
	table     string
	name      string
	kind      ConstraintKind
	columns   []string
	refTable  string
	refColumn string
	firstSeen int
}

// fetchConstraints returns foreign-key and unique constraints, grouped by
// constraint name.
func (in *Introspector) fetchConstraints(db *sql.DB, schemaName string) ([]tableConstraint, error) {
	query := `
		SELECT
			tc.TABLE_NAME,
			tc.CONSTRAINT_NAME,
			tc.CONSTRAINT_TYPE,
			kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_NAME,
			kcu.REFERENCED_COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
			AND tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			AND tc.TABLE_NAME = kcu.TABLE_NAME
		WHERE tc.TABLE_SCHEMA = ?
			AND tc.CONSTRAINT_TYPE IN ('FOREIGN KEY', 'UNIQUE')
		ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION
	`

	ctx, cancel := context.WithTimeout(context.Background(), in.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, errors.NewDatabaseAccessError("failed to query constraints", err)
	}
	defer rows.Close()

	builders := make(map[string]*constraintBuilder)
	order := 0

	for rows.Next() {
		var tableName, constraintName, constraintType, columnName string
		var refTable, refColumn sql.NullString

		if err := rows.Scan(&tableName, &constraintName, &constraintType, &columnName, &refTable, &refColumn); err != nil {
			return nil, errors.NewDatabaseAccessError("failed to scan constraint data", err)
		}

		key := tableName + "." + constraintName
		builder, exists := builders[key]
		if !exists {
			kind := ConstraintKindUnique
			if constraintType == "FOREIGN KEY" {
				kind = ConstraintKindForeignKey
			}
			builder = &constraintBuilder{
				table:     tableName,
				name:      constraintName,
				kind:      kind,
				firstSeen: order,
			}
			builders[key] = builder
			order++
		}

		builder.columns = append(builder.columns, columnName)
		if refTable.Valid {
			builder.refTable = refTable.String
		}
		if refColumn.Valid {
			builder.refColumn = refColumn.String
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseAccessError("error iterating constraint rows", err)
	}

	assembled := make([]*constraintBuilder, 0, len(builders))
	for _, builder := range builders {
		assembled = append(assembled, builder)
	}
	sort.Slice(assembled, func(i, j int) bool { return assembled[i].firstSeen < assembled[j].firstSeen })

	constraints := make([]tableConstraint, 0, len(assembled))
	for _, builder := range assembled {
		constraints = append(constraints, tableConstraint{
			table: builder.table,
			spec: ConstraintSpec{
				Name:      builder.name,
				Kind:      builder.kind,
				Columns:   builder.columns,
				RefTable:  builder.refTable,
				RefColumn: builder.refColumn,
			},
		})
	}

	return constraints, nil
}

// CurrentSchema retrieves the selected schema name from the connection
func (in *Introspector) CurrentSchema(db *sql.DB) (string, error) {
	if db == nil {
		return "", errors.NewValidationError("database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), in.queryTimeout)
	defer cancel()

	var schemaName string
	if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&schemaName); err != nil {
		return "", errors.NewDatabaseAccessError("failed to get current schema", err)
	}

	if schemaName == "" {
		return "", errors.NewDatabaseAccessError("no schema selected", nil)
	}

	return schemaName, nil
}
