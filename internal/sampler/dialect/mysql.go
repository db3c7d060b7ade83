package dialect

import "fmt"

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "MySQL" }

func (mysqlDialect) QuoteIdentifier(ident string) string {
	return "`" + escapeQuote(ident, '`') + "`"
}

func (d mysqlDialect) BuildSamplingQuery(table, column string, n int) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY RAND() LIMIT %d",
		d.QuoteIdentifier(column), quoteTableSegments(d, table), n)
}

func (d mysqlDialect) BuildCountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableSegments(d, table))
}

func escapeQuote(ident string, q byte) string {
	out := make([]byte, 0, len(ident))
	for i := 0; i < len(ident); i++ {
		if ident[i] == q {
			out = append(out, q, q)
			continue
		}
		out = append(out, ident[i])
	}
	return string(out)
}
