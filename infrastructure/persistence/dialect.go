package persistence

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder style and vendor-specific SQL.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMSSQL    Dialect = "mssql"
	DialectMySQL    Dialect = "mysql"
)

func ParseDialect(vendor string) (Dialect, error) {
	switch strings.ToLower(vendor) {
	case "", "postgres", "postgresql", "psql":
		return DialectPostgres, nil
	case "mssql", "sqlserver", "azuresql":
		return DialectMSSQL, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database vendor %q", vendor)
	}
}

// Rebind rewrites ? placeholders into the dialect's positional form.
func (d Dialect) Rebind(query string) string {
	var prefix string
	switch d {
	case DialectPostgres:
		prefix = "$"
	case DialectMSSQL:
		prefix = "@p"
	default:
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(prefix)
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Limit renders a row limit for a SELECT. SQL Server has no LIMIT clause, so
// the caller gets a TOP prefix instead of a suffix.
func (d Dialect) Limit(n int) (top, suffix string) {
	if d == DialectMSSQL {
		return fmt.Sprintf("TOP (%d) ", n), ""
	}
	return "", fmt.Sprintf(" LIMIT %d", n)
}
