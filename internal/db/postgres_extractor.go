package db

import (
	"context"
	"fmt"

	"github.com/tordrt/p6schema/internal/debug"
	"github.com/tordrt/p6schema/internal/schema"
)

const varcharType = "varchar"

// PostgresExtractor reads a schema snapshot from one PostgreSQL schema
type PostgresExtractor struct {
	client *PostgresClient
	schema string
}

// NewPostgresExtractor creates an extractor for schemaName ("public" if empty)
func NewPostgresExtractor(client *PostgresClient, schemaName string) *PostgresExtractor {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresExtractor{
		client: client,
		schema: schemaName,
	}
}

// ExtractSchema reads the requested tables, or every base table when tables is empty
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.RawSchema, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	raw := &schema.RawSchema{DBType: "POSTGRESQL"}
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

	debug.Debug("postgres snapshot read", "schema", e.schema, "tables", len(raw.Tables))
	return raw, nil
}

func (e *PostgresExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (e *PostgresExtractor) extractTable(ctx context.Context, tableName string) (*schema.RawTable, error) {
	table := &schema.RawTable{Name: tableName, Type: "NORMAL"}

	var comment *string
	err := e.client.GetConnection().QueryRow(ctx,
		`SELECT obj_description(format('%I.%I', $1::text, $2::text)::regclass, 'pg_class')`,
		e.schema, tableName).Scan(&comment)
	if err != nil {
		return nil, fmt.Errorf("failed to read table comment: %w", err)
	}
	if comment != nil {
		table.Description = *comment
	}

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

// normalizePostgresType maps verbose SQL type names to commonly-used PostgreSQL equivalents
func normalizePostgresType(dataType, udtName string) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		return varcharType
	case "character":
		return "char"
	case "ARRAY":
		// udt_name has underscore prefix for arrays (e.g., "_text" for text[])
		if len(udtName) > 0 && udtName[0] == '_' {
			return normalizeUdtName(udtName[1:]) + "[]"
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// normalizeUdtName converts PostgreSQL internal type names to more readable forms
func normalizeUdtName(udtName string) string {
	switch udtName {
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	default:
		return udtName
	}
}

func (e *PostgresExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.RawField, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.is_nullable,
			c.column_default,
			c.character_maximum_length::bigint,
			c.numeric_precision::bigint,
			c.numeric_scale::bigint,
			c.is_identity = 'YES' OR coalesce(c.column_default, '') LIKE 'nextval(%' AS is_identity,
			col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position)
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []schema.RawField
	for rows.Next() {
		var (
			f                         schema.RawField
			dataType, udtName         string
			nullable                  string
			defaultVal, description   *string
			charLen, precision, scale *int64
		)

		if err := rows.Scan(&f.Name, &dataType, &udtName, &nullable, &defaultVal,
			&charLen, &precision, &scale, &f.Identity, &description); err != nil {
			return nil, err
		}

		f.DataType = normalizePostgresType(dataType, udtName)
		f.NotNull = nullable == "NO"
		f.CharLength = sizeOf(charLen)
		f.Precision = sizeOf(precision)
		f.Scale = sizeOf(scale)
		if defaultVal != nil {
			f.Default = *defaultVal
		}
		if description != nil {
			f.Description = *description
		}

		fields = append(fields, f)
	}

	return fields, rows.Err()
}

// extractConstraints reads primary key, unique and foreign key constraints.
// Foreign key columns are paired with their targets by position in the
// referenced unique constraint, so composite keys keep their column order.
func (e *PostgresExtractor) extractConstraints(ctx context.Context, tableName string) ([]schema.RawConstraint, error) {
	query := `
		SELECT
			tc.constraint_name,
			tc.constraint_type,
			kcu.column_name,
			coalesce(ref.table_name, ''),
			coalesce(ref.column_name, ''),
			coalesce(rc.delete_rule, '')
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		LEFT JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = tc.constraint_name
			AND rc.constraint_schema = tc.table_schema
		LEFT JOIN information_schema.key_column_usage ref
			ON ref.constraint_name = rc.unique_constraint_name
			AND ref.constraint_schema = rc.unique_constraint_schema
			AND ref.ordinal_position = kcu.position_in_unique_constraint
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
		ORDER BY
			CASE tc.constraint_type WHEN 'PRIMARY KEY' THEN 0 WHEN 'UNIQUE' THEN 1 ELSE 2 END,
			tc.constraint_name,
			kcu.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (e *PostgresExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.RawIndex, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names,
			coalesce(ts.spcname, '') AS tablespace
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		LEFT JOIN pg_tablespace ts ON ts.oid = i.reltablespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique, ts.spcname
		ORDER BY i.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.RawIndex
	for rows.Next() {
		var idx schema.RawIndex
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Fields, &idx.Tablespace); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
