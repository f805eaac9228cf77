package schema

import (
	"testing"
)

func TestRegistryExpectedSnapshot(t *testing.T) {
	registry := NewRegistry()
	snapshot := registry.Expected()

	for _, name := range []string{"users", "products", "orders", "order_items", "audit_log"} {
		if _, ok := snapshot.GetTable(name); !ok {
			t.Errorf("Expected table %s in the registry snapshot", name)
		}
	}
}

func TestRegistryForeignKeyTargetsExist(t *testing.T) {
	snapshot := NewRegistry().Expected()

	for tableName, table := range snapshot.Tables {
		for _, fk := range table.ForeignKeys() {
			target, ok := snapshot.GetTable(fk.RefTable)
			if !ok {
				t.Errorf("Foreign key %s on %s references unknown table %s", fk.Name, tableName, fk.RefTable)
				continue
			}
			if _, ok := target.GetColumn(fk.RefColumn); !ok {
				t.Errorf("Foreign key %s on %s references unknown column %s.%s",
					fk.Name, tableName, fk.RefTable, fk.RefColumn)
			}
		}
	}
}

func TestRegistryTablesHavePrimaryKeys(t *testing.T) {
	snapshot := NewRegistry().Expected()

	for name, table := range snapshot.Tables {
		if len(table.PrimaryKeyColumns()) == 0 {
			t.Errorf("Table %s has no primary key", name)
		}
	}
}

func TestRegistryVersionIsStable(t *testing.T) {
	registry := NewRegistry()
	if registry.Version() != RegistryVersion {
		t.Errorf("Expected version %s, got %s", RegistryVersion, registry.Version())
	}
}

func TestRegistryExpectedReturnsFreshSnapshots(t *testing.T) {
	registry := NewRegistry()
	first := registry.Expected()
	second := registry.Expected()

	delete(first.Tables, "users")
	if _, ok := second.GetTable("users"); !ok {
		t.Error("Mutating one snapshot must not affect another")
	}
}
