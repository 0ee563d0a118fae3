package ddl

// ColumnDef describes a single column of a relational source table.
//
// Fields:
//   - Name: column name (unquoted; rendered as-is)
//   - SQLType: SQL type (e.g., TEXT, INTEGER, REAL)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds a table name and an ordered list of columns.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// IndexDef describes a secondary index over one or more columns of a table.
type IndexDef struct {
	Name    string
	Table   string
	Columns []string
}
