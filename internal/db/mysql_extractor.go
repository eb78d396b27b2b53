package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/p6schema/internal/debug"
	"github.com/tordrt/p6schema/internal/schema"
)

// MySQLExtractor reads a schema snapshot from one MySQL database
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema reads the requested tables, or every base table when tables is empty
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.RawSchema, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	raw := &schema.RawSchema{DBType: "MYSQL"}
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

	debug.Debug("mysql snapshot read", "schema", e.schemaName, "tables", len(raw.Tables))
	return raw, nil
}

func (e *MySQLExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (*schema.RawTable, error) {
	table := &schema.RawTable{Name: tableName, Type: "NORMAL"}

	var comment sql.NullString
	err := e.client.GetDB().QueryRowContext(ctx, `
		SELECT table_comment
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?
	`, e.schemaName, tableName).Scan(&comment)
	if err != nil {
		return nil, fmt.Errorf("failed to read table comment: %w", err)
	}
	table.Description = comment.String

	if table.Fields, err = e.extractColumns(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if table.Constraints, err = e.extractConstraints(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract constraints: %w", err)
	}
	if table.Indexes, err = e.extractIndexes(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}

	return table, nil
}

func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.RawField, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.extra,
			c.column_comment
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var fields []schema.RawField
	for rows.Next() {
		var (
			f                         schema.RawField
			nullable, extra           string
			defaultVal                sql.NullString
			charLen, precision, scale sql.NullInt64
		)

		if err := rows.Scan(&f.Name, &f.DataType, &nullable, &defaultVal,
			&charLen, &precision, &scale, &extra, &f.Description); err != nil {
			return nil, err
		}

		f.NotNull = nullable == "NO"
		f.Default = defaultVal.String
		f.Identity = strings.Contains(strings.ToLower(extra), "auto_increment")
		f.CharLength = sizeOf(nullInt(charLen))
		f.Precision = sizeOf(nullInt(precision))
		f.Scale = sizeOf(nullInt(scale))

		fields = append(fields, f)
	}

	return fields, rows.Err()
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

// extractConstraints reads primary key, unique and foreign key constraints.
// MySQL names every primary key PRIMARY.
func (e *MySQLExtractor) extractConstraints(ctx context.Context, tableName string) ([]schema.RawConstraint, error) {
	query := `
		SELECT
			tc.constraint_name,
			tc.constraint_type,
			kcu.column_name,
			coalesce(kcu.referenced_table_name, ''),
			coalesce(kcu.referenced_column_name, ''),
			coalesce(rc.delete_rule, '')
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		LEFT JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = tc.constraint_name
			AND rc.constraint_schema = tc.table_schema
			AND rc.table_name = tc.table_name
		WHERE tc.table_schema = ?
			AND tc.table_name = ?
			AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
		ORDER BY
			CASE tc.constraint_type WHEN 'PRIMARY KEY' THEN 0 WHEN 'UNIQUE' THEN 1 ELSE 2 END,
			tc.constraint_name,
			kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []keyColumn
	for rows.Next() {
		var k keyColumn
		if err := rows.Scan(&k.Constraint, &k.Type, &k.Column, &k.TargetTable, &k.TargetColumn, &k.DeleteRule); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groupConstraints(keys), nil
}

func (e *MySQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.RawIndex, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var indexes []schema.RawIndex
	for rows.Next() {
		var idx schema.RawIndex
		var isUnique int
		var columnNames string

		if err := rows.Scan(&idx.Name, &isUnique, &columnNames); err != nil {
			return nil, err
		}

		idx.Unique = isUnique == 1
		idx.Fields = strings.Split(columnNames, ",")

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
