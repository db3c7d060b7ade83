package dialect

import "fmt"

type oracleDialect struct{}

func (oracleDialect) Name() string { return "Oracle" }

func (oracleDialect) QuoteIdentifier(ident string) string {
	return `"` + escapeQuote(ident, '"') + `"`
}

func (d oracleDialect) BuildSamplingQuery(table, column string, n int) string {
	col := d.QuoteIdentifier(column)
	tab := quoteTableSegments(d, table)
	return fmt.Sprintf("SELECT %s FROM (SELECT %s FROM %s ORDER BY dbms_random.value) WHERE rownum <= %d",
		col, col, tab, n)
}

func (d oracleDialect) BuildCountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableSegments(d, table))
}
