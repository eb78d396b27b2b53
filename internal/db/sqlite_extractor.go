package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/tordrt/p6schema/internal/debug"
	"github.com/tordrt/p6schema/internal/schema"
)

// SQLiteExtractor reads a schema snapshot from a SQLite database
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema reads the requested tables, or every table when tables is empty
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.RawSchema, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	raw := &schema.RawSchema{DBType: "SQLITE"}
	if raw.Build, err = e.client.ServerVersion(ctx); err != nil {
		return nil, err
	}

	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		raw.Tables = append(raw.Tables, *table)
	}

	debug.Debug("sqlite snapshot read", "tables", len(raw.Tables))
	return raw, nil
}

func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*schema.RawTable, error) {
	table := &schema.RawTable{Name: tableName, Type: "NORMAL"}

	columns, err := e.tableInfo(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	pk := primaryKeyColumns(columns)
	for _, c := range columns {
		table.Fields = append(table.Fields, c.field(len(pk) == 1 && pk[0] == c.name))
	}
	if len(pk) > 0 {
		table.Constraints = append(table.Constraints, schema.RawConstraint{
			Name:   "pk_" + tableName,
			Type:   "PRIMARY",
			Fields: pk,
		})
	}

	indexes, unique, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes
	table.Constraints = append(table.Constraints, unique...)

	fks, err := e.extractForeignKeys(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	table.Constraints = append(table.Constraints, fks...)

	return table, nil
}

// columnInfo is one row of PRAGMA table_info
type columnInfo struct {
	name     string
	declared string
	notNull  bool
	dflt     sql.NullString
	pkOrder  int
}

// field converts the column. A sole INTEGER primary key aliases the rowid and
// is reported as an identity column.
func (c columnInfo) field(solePK bool) schema.RawField {
	base, length, precision, scale := splitDeclaredType(c.declared)
	return schema.RawField{
		Name:       c.name,
		DataType:   base,
		CharLength: length,
		Precision:  precision,
		Scale:      scale,
		NotNull:    c.notNull || c.pkOrder > 0,
		Default:    c.dflt.String,
		Identity:   solePK && strings.EqualFold(base, "INTEGER"),
	}
}

func primaryKeyColumns(columns []columnInfo) []string {
	var pk []columnInfo
	for _, c := range columns {
		if c.pkOrder > 0 {
			pk = append(pk, c)
		}
	}
	slices.SortFunc(pk, func(a, b columnInfo) int { return a.pkOrder - b.pkOrder })

	names := make([]string, len(pk))
	for i, c := range pk {
		names[i] = c.name
	}
	return names
}

func (e *SQLiteExtractor) tableInfo(ctx context.Context, tableName string) ([]columnInfo, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []columnInfo
	for rows.Next() {
		var cid, notNull int
		var c columnInfo
		if err := rows.Scan(&cid, &c.name, &c.declared, &notNull, &c.dflt, &c.pkOrder); err != nil {
			return nil, err
		}
		c.notNull = notNull == 1
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}
	return columns, nil
}

// extractIndexes returns explicitly created indexes, plus UNIQUE table
// constraints, which SQLite backs with automatic indexes
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.RawIndex, []schema.RawConstraint, error) {
	type indexEntry struct {
		name   string
		unique bool
		origin string
	}

	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, nil, err
	}

	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var ie indexEntry
		if err := rows.Scan(&seq, &ie.name, &unique, &ie.origin, &partial); err != nil {
			_ = rows.Close()
			return nil, nil, err
		}
		ie.unique = unique == 1
		entries = append(entries, ie)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var indexes []schema.RawIndex
	var constraints []schema.RawConstraint
	for _, ie := range entries {
		if ie.origin == "pk" {
			continue
		}
		columns, err := e.indexColumns(ctx, ie.name)
		if err != nil {
			return nil, nil, err
		}
		if len(columns) == 0 {
			continue
		}

		if ie.origin == "u" {
			constraints = append(constraints, schema.RawConstraint{Name: ie.name, Type: "UNIQUE", Fields: columns})
			continue
		}
		indexes = append(indexes, schema.RawIndex{Name: ie.name, Unique: ie.unique, Fields: columns})
	}

	slices.SortFunc(indexes, func(a, b schema.RawIndex) int { return strings.Compare(a.Name, b.Name) })
	return indexes, constraints, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(indexName)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString
		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		// expression index columns have no name
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}

// extractForeignKeys reads PRAGMA foreign_key_list. SQLite foreign keys are
// unnamed, so they are named fk_<table>_<id>. A reference without target
// columns points at the target's primary key.
func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]schema.RawConstraint, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, err
	}

	var keys []keyColumn
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			_ = rows.Close()
			return nil, err
		}

		keys = append(keys, keyColumn{
			Constraint:   fmt.Sprintf("fk_%s_%d", tableName, id),
			Type:         "FOREIGN KEY",
			Column:       fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
			DeleteRule:   onDelete,
		})
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	constraints := groupConstraints(keys)
	for i := range constraints {
		c := &constraints[i]
		if len(c.TargetFields) > 0 {
			continue
		}
		target, err := e.tableInfo(ctx, c.TargetTable)
		if err != nil {
			// dangling reference; the graph reports it
			debug.Warn("foreign key target not readable", "constraint", c.Name, "target", c.TargetTable, "error", err)
			c.TargetFields = slices.Clone(c.Fields)
			continue
		}
		c.TargetFields = primaryKeyColumns(target)
	}
	return constraints, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
