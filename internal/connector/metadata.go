// Copyright © 2024 KubeStack-AI Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package connector

import (
	"context"
	"fmt"

	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// InformationSchemaExtractor is an interfaces.MetadataExtractor built
// on the ANSI INFORMATION_SCHEMA views, which MySQL, PostgreSQL and SQL
// Server all expose (Oracle does not; ALL_TAB_COLUMNS/ALL_CONSTRAINTS
// use a different shape and need a dedicated extractor a host can
// supply instead).
type InformationSchemaExtractor struct {
	catalog string
}

// NewInformationSchemaExtractor scopes every query to catalog (the
// database/schema name used by TABLE_CATALOG in the target dialect).
func NewInformationSchemaExtractor(catalog string) *InformationSchemaExtractor {
	return &InformationSchemaExtractor{catalog: catalog}
}

// ExtractSchema implements interfaces.MetadataExtractor.
func (e *InformationSchemaExtractor) ExtractSchema(ctx context.Context, conn interfaces.Connector, includedSchemas, includedTables, excludedTables []string) (*models.Schema, error) {
	schema := models.NewSchema(e.catalog, e.catalog)

	tables, err := e.listTables(ctx, conn, includedSchemas)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	included := toSet(includedTables)
	excluded := toSet(excludedTables)

	tablesByKey := make(map[string]*models.Table)
	for _, tbl := range tables {
		if len(included) > 0 && !included[tbl.name] {
			continue
		}
		if excluded[tbl.name] {
			continue
		}
		t := models.NewTable(tbl.name, tbl.remarks)
		schema.AddTable(t)
		tablesByKey[tbl.schema+"."+tbl.name] = t
	}

	if err := e.loadColumns(ctx, conn, tablesByKey); err != nil {
		return nil, fmt.Errorf("loading columns: %w", err)
	}

	if err := e.loadRelationships(ctx, conn, schema, tablesByKey); err != nil {
		return nil, fmt.Errorf("loading relationships: %w", err)
	}

	return schema, nil
}

type tableRow struct {
	schema  string
	name    string
	remarks string
}

func (e *InformationSchemaExtractor) listTables(ctx context.Context, conn interfaces.Connector, includedSchemas []string) ([]tableRow, error) {
	query := `
SELECT TABLE_SCHEMA, TABLE_NAME
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_CATALOG = ? AND TABLE_TYPE = 'BASE TABLE'`
	rows, err := conn.Query(ctx, query, e.catalog)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schemaFilter := toSet(includedSchemas)
	var out []tableRow
	for rows.Next() {
		var r tableRow
		if err := rows.Scan(&r.schema, &r.name); err != nil {
			return nil, err
		}
		if len(schemaFilter) > 0 && !schemaFilter[r.schema] {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (e *InformationSchemaExtractor) loadColumns(ctx context.Context, conn interfaces.Connector, tablesByKey map[string]*models.Table) error {
	query := `
SELECT TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME, DATA_TYPE, COALESCE(CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, 0),
       CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_CATALOG = ?
ORDER BY ORDINAL_POSITION`
	rows, err := conn.Query(ctx, query, e.catalog)
	if err != nil {
		return err
	}
	defer rows.Close()

	primaryKeys, err := e.primaryKeyColumns(ctx, conn)
	if err != nil {
		primaryKeys = map[string]bool{}
	}

	for rows.Next() {
		var tableSchema, tableName, colName, dataType string
		var size int
		var nullable int
		if err := rows.Scan(&tableSchema, &tableName, &colName, &dataType, &size, &nullable); err != nil {
			return err
		}
		t, ok := tablesByKey[tableSchema+"."+tableName]
		if !ok {
			continue
		}
		col := &models.Column{
			Name:       colName,
			DBTypeName: dataType,
			Size:       size,
			Nullable:   nullable == 1,
			PrimaryKey: primaryKeys[tableSchema+"."+tableName+"."+colName],
		}
		t.AddColumn(col)
	}
	return rows.Err()
}

func (e *InformationSchemaExtractor) primaryKeyColumns(ctx context.Context, conn interfaces.Connector) (map[string]bool, error) {
	query := `
SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
JOIN INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND kcu.TABLE_CATALOG = ?`
	rows, err := conn.Query(ctx, query, e.catalog)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var schema, table, col string
		if err := rows.Scan(&schema, &table, &col); err != nil {
			return nil, err
		}
		out[schema+"."+table+"."+col] = true
	}
	return out, rows.Err()
}

func (e *InformationSchemaExtractor) loadRelationships(ctx context.Context, conn interfaces.Connector, schema *models.Schema, tablesByKey map[string]*models.Table) error {
	query := `
SELECT kcu.CONSTRAINT_NAME, kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME,
       kcu.REFERENCED_TABLE_SCHEMA, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
WHERE kcu.TABLE_CATALOG = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL`
	rows, err := conn.Query(ctx, query, e.catalog)
	if err != nil {
		// Not every dialect's KEY_COLUMN_USAGE carries REFERENCED_* columns
		// (SQL Server, notably); relationships are then simply unavailable.
		return nil
	}
	defer rows.Close()

	for rows.Next() {
		var constraintName, srcSchema, srcTable, srcCol, targetSchema, targetTable, targetCol string
		if err := rows.Scan(&constraintName, &srcSchema, &srcTable, &srcCol, &targetSchema, &targetTable, &targetCol); err != nil {
			return err
		}
		srcT, srcOK := findColumnOwner(tablesByKey, targetSchema, targetTable)
		tgtT, tgtOK := findColumnOwner(tablesByKey, srcSchema, srcTable)
		if !srcOK || !tgtOK {
			continue
		}
		srcColumn := findColumn(srcT, targetCol)
		tgtColumn := findColumn(tgtT, srcCol)
		if srcColumn == nil || tgtColumn == nil {
			continue
		}
		schema.AddRelationship(&models.Relationship{
			SourceTable:    srcT,
			SourceColumn:   srcColumn,
			TargetTable:    tgtT,
			TargetColumn:   tgtColumn,
			ConstraintName: constraintName,
		})
	}
	return rows.Err()
}

func findColumnOwner(tablesByKey map[string]*models.Table, schema, table string) (*models.Table, bool) {
	t, ok := tablesByKey[schema+"."+table]
	return t, ok
}

func findColumn(t *models.Table, name string) *models.Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
