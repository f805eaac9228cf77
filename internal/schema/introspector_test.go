package schema

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestIntrospectNilDB(t *testing.T) {
	introspector := NewIntrospector()
	if _, err := introspector.Introspect(nil, "shop"); err == nil {
		t.Error("Expected error for nil database connection")
	}
}

func TestIntrospectEmptySchemaName(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	introspector := NewIntrospector()
	if _, err := introspector.Introspect(db, ""); err == nil {
		t.Error("Expected error for empty schema name")
	}
}

func TestIntrospectAssemblesSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.TABLES`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).
			AddRow("orders").
			AddRow("users"))

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.COLUMNS`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT"}).
			AddRow("orders", "id", "bigint(20)", "NO", nil).
			AddRow("orders", "user_id", "bigint(20)", "NO", nil).
			AddRow("users", "id", "bigint(20)", "NO", nil).
			AddRow("users", "email", "varchar(255)", "NO", nil).
			AddRow("users", "created_at", "datetime", "NO", "CURRENT_TIMESTAMP"))

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.KEY_COLUMN_USAGE`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME"}).
			AddRow("orders", "id").
			AddRow("users", "id"))

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.TABLE_CONSTRAINTS tc`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{
			"TABLE_NAME", "CONSTRAINT_NAME", "CONSTRAINT_TYPE",
			"COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME",
		}).
			AddRow("orders", "fk_orders_user", "FOREIGN KEY", "user_id", "users", "id").
			AddRow("users", "uq_users_email", "UNIQUE", "email", nil, nil))

	introspector := NewIntrospector()
	snapshot, err := introspector.Introspect(db, "shop")
	if err != nil {
		t.Fatalf("Introspect failed: %v", err)
	}

	if len(snapshot.Tables) != 2 {
		t.Fatalf("Expected 2 tables, got %d", len(snapshot.Tables))
	}

	users, ok := snapshot.GetTable("users")
	if !ok {
		t.Fatal("Expected users table in snapshot")
	}
	if len(users.Columns) != 3 {
		t.Errorf("Expected 3 columns on users, got %d", len(users.Columns))
	}

	id, _ := users.GetColumn("id")
	if id == nil || !id.PrimaryKey {
		t.Error("Expected users.id to be marked as primary key")
	}

	createdAt, _ := users.GetColumn("created_at")
	if createdAt == nil || createdAt.Default == nil || *createdAt.Default != "CURRENT_TIMESTAMP" {
		t.Errorf("Expected users.created_at default CURRENT_TIMESTAMP, got %+v", createdAt)
	}
	if createdAt.Nullable {
		t.Error("Expected users.created_at to be NOT NULL")
	}

	if len(users.Constraints) != 1 || users.Constraints[0].Kind != ConstraintKindUnique {
		t.Errorf("Expected one unique constraint on users, got %+v", users.Constraints)
	}

	orders, _ := snapshot.GetTable("orders")
	fks := orders.ForeignKeys()
	if len(fks) != 1 {
		t.Fatalf("Expected 1 foreign key on orders, got %d", len(fks))
	}
	if fks[0].Target() != "users(id)" {
		t.Errorf("Expected foreign key target users(id), got %s", fks[0].Target())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet sqlmock expectations: %v", err)
	}
}

func TestIntrospectGroupsMultiColumnConstraints(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.TABLES`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("order_items"))

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.COLUMNS`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT"}).
			AddRow("order_items", "order_id", "bigint(20)", "NO", nil).
			AddRow("order_items", "product_id", "bigint(20)", "NO", nil))

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.KEY_COLUMN_USAGE`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME"}))

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.TABLE_CONSTRAINTS tc`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{
			"TABLE_NAME", "CONSTRAINT_NAME", "CONSTRAINT_TYPE",
			"COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME",
		}).
			AddRow("order_items", "uq_order_product", "UNIQUE", "order_id", nil, nil).
			AddRow("order_items", "uq_order_product", "UNIQUE", "product_id", nil, nil))

	introspector := NewIntrospector()
	snapshot, err := introspector.Introspect(db, "shop")
	if err != nil {
		t.Fatalf("Introspect failed: %v", err)
	}

	table, _ := snapshot.GetTable("order_items")
	if len(table.Constraints) != 1 {
		t.Fatalf("Expected multi-column constraint to be grouped, got %d constraints", len(table.Constraints))
	}
	if !table.Constraints[0].SameColumns([]string{"order_id", "product_id"}) {
		t.Errorf("Expected columns [order_id product_id], got %v", table.Constraints[0].Columns)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet sqlmock expectations: %v", err)
	}
}

func TestCurrentSchema(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT DATABASE\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"DATABASE()"}).AddRow("shop"))

	introspector := NewIntrospector()
	name, err := introspector.CurrentSchema(db)
	if err != nil {
		t.Fatalf("CurrentSchema failed: %v", err)
	}
	if name != "shop" {
		t.Errorf("Expected schema shop, got %s", name)
	}
}
