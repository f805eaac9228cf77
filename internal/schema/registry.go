package schema

// Registry is the versioned, code-defined description of what the schema
// should look like. It is always the reference: the comparator treats any
// mismatch as drift in the live database, never as an update to the registry.
// Adding a table or column to the live system requires a matching entry here.
type Registry struct {
	version string
	tables  []*TableSchema
}

// RegistryVersion identifies the current expected-schema revision. Bump it
// whenever a table definition below changes.
const RegistryVersion = "2026.08.1"

// NewRegistry creates the registry with the current expected table set
func NewRegistry() *Registry {
	return &Registry{
		version: RegistryVersion,
		tables: []*TableSchema{
			usersTable(),
			productsTable(),
			ordersTable(),
			orderItemsTable(),
			auditLogTable(),
		},
	}
}

// Version returns the expected-schema revision identifier
func (r *Registry) Version() string {
	return r.version
}

// Expected returns a fresh snapshot of the expected schema
func (r *Registry) Expected() *SchemaSnapshot {
	snapshot := NewSchemaSnapshot()
	for _, table := range r.tables {
		snapshot.AddTable(table)
	}
	return snapshot
}

func strptr(s string) *string { return &s }

func usersTable() *TableSchema {
	t := NewTableSchema("users")
	t.Columns = map[string]*ColumnSchema{
		"id":         {Name: "id", DataType: "bigint", Nullable: false, PrimaryKey: true},
		"email":      {Name: "email", DataType: "varchar(255)", Nullable: false},
		"name":       {Name: "name", DataType: "varchar(120)", Nullable: false},
		"is_active":  {Name: "is_active", DataType: "tinyint(1)", Nullable: false, Default: strptr("1")},
		"created_at": {Name: "created_at", DataType: "datetime", Nullable: false, Default: strptr("CURRENT_TIMESTAMP")},
	}
	t.Constraints = []ConstraintSpec{
		{Name: "uq_users_email", Kind: ConstraintKindUnique, Columns: []string{"email"}},
	}
	return t
}

func productsTable() *TableSchema {
	t := NewTableSchema("products")
	t.Columns = map[string]*ColumnSchema{
		"id":          {Name: "id", DataType: "bigint", Nullable: false, PrimaryKey: true},
		"sku":         {Name: "sku", DataType: "varchar(64)", Nullable: false},
		"title":       {Name: "title", DataType: "varchar(255)", Nullable: false},
		"price_cents": {Name: "price_cents", DataType: "int", Nullable: false},
		"created_at":  {Name: "created_at", DataType: "datetime", Nullable: false, Default: strptr("CURRENT_TIMESTAMP")},
	}
	t.Constraints = []ConstraintSpec{
		{Name: "uq_products_sku", Kind: ConstraintKindUnique, Columns: []string{"sku"}},
	}
	return t
}

func ordersTable() *TableSchema {
	t := NewTableSchema("orders")
	t.Columns = map[string]*ColumnSchema{
		"id":          {Name: "id", DataType: "bigint", Nullable: false, PrimaryKey: true},
		"user_id":     {Name: "user_id", DataType: "bigint", Nullable: false},
		"status":      {Name: "status", DataType: "varchar(32)", Nullable: false, Default: strptr("pending")},
		"total_cents": {Name: "total_cents", DataType: "int", Nullable: false, Default: strptr("0")},
		"created_at":  {Name: "created_at", DataType: "datetime", Nullable: false, Default: strptr("CURRENT_TIMESTAMP")},
	}
	t.Constraints = []ConstraintSpec{
		{Name: "fk_orders_user", Kind: ConstraintKindForeignKey, Columns: []string{"user_id"}, RefTable: "users", RefColumn: "id"},
	}
	return t
}

func orderItemsTable() *TableSchema {
	t := NewTableSchema("order_items")
	t.Columns = map[string]*ColumnSchema{
		"id":         {Name: "id", DataType: "bigint", Nullable: false, PrimaryKey: true},
		"order_id":   {Name: "order_id", DataType: "bigint", Nullable: false},
		"product_id": {Name: "product_id", DataType: "bigint", Nullable: false},
		"quantity":   {Name: "quantity", DataType: "int", Nullable: false, Default: strptr("1")},
		"unit_cents": {Name: "unit_cents", DataType: "int", Nullable: false},
	}
	t.Constraints = []ConstraintSpec{
		{Name: "fk_order_items_order", Kind: ConstraintKindForeignKey, Columns: []string{"order_id"}, RefTable: "orders", RefColumn: "id"},
		{Name: "fk_order_items_product", Kind: ConstraintKindForeignKey, Columns: []string{"product_id"}, RefTable: "products", RefColumn: "id"},
		{Name: "uq_order_items_order_product", Kind: ConstraintKindUnique, Columns: []string{"order_id", "product_id"}},
	}
	return t
}

func auditLogTable() *TableSchema {
	t := NewTableSchema("audit_log")
	t.Columns = map[string]*ColumnSchema{
		"id":         {Name: "id", DataType: "bigint", Nullable: false, PrimaryKey: true},
		"actor":      {Name: "actor", DataType: "varchar(120)", Nullable: true},
		"action":     {Name: "action", DataType: "varchar(64)", Nullable: false},
		"detail":     {Name: "detail", DataType: "text", Nullable: true},
		"created_at": {Name: "created_at", DataType: "datetime", Nullable: false, Default: strptr("CURRENT_TIMESTAMP")},
	}
	return t
}
