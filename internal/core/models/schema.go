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

// Package models holds the domain entities shared by every scan
// component. Schema/Table/Column/Relationship form a bidirectional
// graph; per the arena convention (see DESIGN.md), Relationships are
// stored once in the owning Schema and Tables only hold pointers to the
// Relationships that reference them, never a second copy of the struct.
package models

// Schema is the root of one scan's metadata graph. Unique by
// (Catalog, Name) within a scan.
type Schema struct {
	Catalog string
	Name    string

	tables        []*Table
	tablesByName  map[string]*Table
	relationships []*Relationship
}

// NewSchema creates an empty schema ready to receive tables.
func NewSchema(catalog, name string) *Schema {
	return &Schema{
		Catalog:      catalog,
		Name:         name,
		tablesByName: make(map[string]*Table),
	}
}

// AddTable registers a table under this schema. The table's SchemaRef
// is set to this schema.
func (s *Schema) AddTable(t *Table) {
	t.SchemaRef = s
	s.tables = append(s.tables, t)
	s.tablesByName[t.Name] = t
}

// Tables returns every table registered under this schema, in
// registration order.
func (s *Schema) Tables() []*Table {
	return s.tables
}

// Table looks up a table by name within this schema.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.tablesByName[name]
	return t, ok
}

// AddRelationship registers a relationship in the schema's arena and
// indexes it on both endpoint tables' imported/exported views. A
// relationship must be added exactly once; it is never copied.
func (s *Schema) AddRelationship(r *Relationship) {
	s.relationships = append(s.relationships, r)
	if r.SourceTable != nil {
		r.SourceTable.exported = append(r.SourceTable.exported, r)
	}
	if r.TargetTable != nil {
		r.TargetTable.imported = append(r.TargetTable.imported, r)
	}
}

// Relationships returns every relationship in the scan, each appearing
// exactly once regardless of how many tables reference it.
func (s *Schema) Relationships() []*Relationship {
	return s.relationships
}

// ColumnCount sums the column count of every table in the schema.
func (s *Schema) ColumnCount() int {
	n := 0
	for _, t := range s.tables {
		n += len(t.Columns)
	}
	return n
}

// Table is a relational table or view discovered in a scanned schema.
// Immutable after metadata extraction except for the imported/exported
// relationship views, which are populated by Schema.AddRelationship.
type Table struct {
	SchemaRef *Schema
	Name      string
	Remarks   string
	Columns   []*Column

	imported []*Relationship // this table is the FK (target) side
	exported []*Relationship // this table is the PK (source) side
}

// NewTable creates a table with no columns or relationships yet.
func NewTable(name, remarks string) *Table {
	return &Table{Name: name, Remarks: remarks}
}

// AddColumn appends a column to the table, setting its TableRef.
func (t *Table) AddColumn(c *Column) {
	c.TableRef = t
	t.Columns = append(t.Columns, c)
}

// Imported returns the relationships where this table holds the
// foreign key (it is the target/FK side).
func (t *Table) Imported() []*Relationship {
	return t.imported
}

// Exported returns the relationships where this table is referenced by
// a foreign key elsewhere (it is the source/PK side).
func (t *Table) Exported() []*Relationship {
	return t.exported
}

// QualifiedName renders "schema.table", or just "table" when the table
// has not been attached to a schema yet.
func (t *Table) QualifiedName() string {
	if t.SchemaRef == nil {
		return t.Name
	}
	return t.SchemaRef.Name + "." + t.Name
}

// Column describes one column of a Table. Immutable after metadata
// extraction.
type Column struct {
	TableRef   *Table
	Name       string
	JDBCType   int
	DBTypeName string
	Comments   string
	Size       int
	Nullable   bool
	PrimaryKey bool
}

// QualifiedName renders "schema.table.column".
func (c *Column) QualifiedName() string {
	if c.TableRef == nil {
		return c.Name
	}
	return c.TableRef.QualifiedName() + "." + c.Name
}

// Relationship is a single foreign-key constraint. Source is always the
// PK side, Target is always the FK side; a fixed convention regardless
// of which direction the constraint was declared.
type Relationship struct {
	SourceTable  *Table
	SourceColumn *Column
	TargetTable  *Table
	TargetColumn *Column

	ConstraintName string
	UpdateRule     string
	DeleteRule     string
}
