package dialect

import "fmt"

// postgresDialect quotes identifiers the way pgx.Identifier.Sanitize
// does: double quotes, doubling any embedded quote character.
type postgresDialect struct{}

func (postgresDialect) Name() string { return "PostgreSQL" }

func (postgresDialect) QuoteIdentifier(ident string) string {
	return `"` + escapeQuote(ident, '"') + `"`
}

func (d postgresDialect) BuildSamplingQuery(table, column string, n int) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY RANDOM() LIMIT %d",
		d.QuoteIdentifier(column), quoteTableSegments(d, table), n)
}

func (d postgresDialect) BuildCountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableSegments(d, table))
}
