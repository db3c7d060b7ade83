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

// Package dialect generates dialect-specific sampling and metadata SQL
// (spec.md §4.1). Each recognized database product gets its own quoting
// convention and row-sampling idiom; selection is by exact then
// substring match on the server's reported product name.
package dialect

import (
	"fmt"

	piierrors "github.com/pii-scanner/pii-scanner/internal/common/errors"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// Dialect builds the SQL the sampler and metadata extractor need,
// quoting identifiers the way its target database requires.
type Dialect interface {
	// Name is the canonical dialect name, e.g. "PostgreSQL".
	Name() string
	// QuoteIdentifier quotes a single identifier (table or column name).
	QuoteIdentifier(ident string) string
	// BuildSamplingQuery returns SQL selecting exactly n rows of column
	// from table, in the dialect's random-sample idiom. table may be a
	// plain name or a "schema.table" pair; each segment is quoted.
	BuildSamplingQuery(table, column string, n int) string
	// BuildCountQuery returns SQL counting the rows of table.
	BuildCountQuery(table string) string
}

// quoteTableSegments quotes each dot-separated segment of a possibly
// schema-qualified table reference independently, so "public.users"
// becomes `"public"."users"` rather than one mis-quoted identifier.
func quoteTableSegments(d Dialect, table string) string {
	start := 0
	out := ""
	for i := 0; i <= len(table); i++ {
		if i == len(table) || table[i] == '.' {
			if out != "" {
				out += "."
			}
			out += d.QuoteIdentifier(table[start:i])
			start = i + 1
		}
	}
	return out
}

var registry = map[string]Dialect{}

func register(d Dialect) {
	registry[d.Name()] = d
}

func init() {
	register(mysqlDialect{})
	register(postgresDialect{})
	register(oracleDialect{})
	register(sqlServerDialect{})
}

// Resolve selects a Dialect for the given database product name.
// Matching is exact first, then case-insensitive substring, so that
// e.g. "PostgreSQL 15.2" resolves to the PostgreSQL dialect.
func Resolve(productName string) (Dialect, error) {
	if d, ok := registry[productName]; ok {
		return d, nil
	}
	for name, d := range registry {
		if containsFold(productName, name) {
			return d, nil
		}
	}
	return nil, piierrors.Config(fmt.Sprintf("unsupported dialect %q", productName), nil)
}

// Registered lists the names of every currently registered dialect.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

func containsFold(haystack, needle string) bool {
	hl, nl := len(haystack), len(needle)
	if nl == 0 || nl > hl {
		return false
	}
	hLower := toLower(haystack)
	nLower := toLower(needle)
	for i := 0; i+nl <= hl; i++ {
		if hLower[i:i+nl] == nLower {
			return true
		}
	}
	return false
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// QualifiedTableName formats a table reference for the dialect, quoting
// the schema (when present) and table name separately.
func QualifiedTableName(d Dialect, schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// TableRef resolves the table name to use in generated SQL for t,
// preferring its schema-qualified form.
func TableRef(d Dialect, t *models.Table) string {
	if t.SchemaRef == nil {
		return d.QuoteIdentifier(t.Name)
	}
	return QualifiedTableName(d, t.SchemaRef.Name, t.Name)
}
