package relational

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the handful of SQL differences the engine cares about:
// placeholder style, row caps, random ordering, integer division and the
// catalog queries used by schema inspection and index management.
type Dialect struct {
	Name string

	// Random is the expression used in ORDER BY for random sampling.
	Random string

	placeholder  func(n int) string
	limit        func(n int) string
	intDiv       func(expr string, d int) string
	tablesQuery  string
	columnsQuery string
	indexesQuery string
	dropIndex    func(name, table string) string
}

func questionMark(int) string { return "?" }

func limitClause(n int) string { return " LIMIT " + strconv.Itoa(n) }

func slashDiv(expr string, d int) string { return fmt.Sprintf("(%s / %d)", expr, d) }

func dropIndexPlain(name, _ string) string { return "DROP INDEX " + name }

func dropIndexOn(name, table string) string { return "DROP INDEX " + name + " ON " + table }

var (
	// SQLite is the default source dialect (modernc.org/sqlite).
	SQLite = Dialect{
		Name:         "sqlite",
		Random:       "RANDOM()",
		placeholder:  questionMark,
		limit:        limitClause,
		intDiv:       slashDiv,
		tablesQuery:  "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name",
		columnsQuery: "SELECT name FROM pragma_table_info(?) ORDER BY cid",
		indexesQuery: "SELECT name FROM sqlite_master WHERE type = 'index' AND name NOT LIKE 'sqlite_autoindex%'",
		dropIndex:    dropIndexPlain,
	}

	// Postgres targets PostgreSQL through the pgx stdlib driver.
	Postgres = Dialect{
		Name:         "postgres",
		Random:       "RANDOM()",
		placeholder:  func(n int) string { return "$" + strconv.Itoa(n) },
		limit:        limitClause,
		intDiv:       slashDiv,
		tablesQuery:  "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name",
		columnsQuery: "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position",
		indexesQuery: "SELECT indexname FROM pg_indexes WHERE schemaname = current_schema()",
		dropIndex:    dropIndexPlain,
	}

	// MySQL targets MySQL 8+; older servers report the ranking questions as unsupported.
	MySQL = Dialect{
		Name:         "mysql",
		Random:       "RAND()",
		placeholder:  questionMark,
		limit:        limitClause,
		intDiv:       func(expr string, d int) string { return fmt.Sprintf("(%s DIV %d)", expr, d) },
		tablesQuery:  "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name",
		columnsQuery: "SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position",
		indexesQuery: "SELECT DISTINCT index_name FROM information_schema.statistics WHERE table_schema = DATABASE()",
		dropIndex:    dropIndexOn,
	}

	// MSSQL targets SQL Server through go-mssqldb.
	MSSQL = Dialect{
		Name:         "mssql",
		Random:       "NEWID()",
		placeholder:  func(n int) string { return "@p" + strconv.Itoa(n) },
		limit:        func(n int) string { return fmt.Sprintf(" OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n) },
		intDiv:       slashDiv,
		tablesQuery:  "SELECT name FROM sys.tables ORDER BY name",
		columnsQuery: "SELECT c.name FROM sys.columns c JOIN sys.tables t ON c.object_id = t.object_id WHERE t.name = ? ORDER BY c.column_id",
		indexesQuery: "SELECT name FROM sys.indexes WHERE name IS NOT NULL",
		dropIndex:    dropIndexOn,
	}
)

// Limit renders a row cap that is appended after an ORDER BY clause.
func (d Dialect) Limit(n int) string { return d.limit(n) }

// IntDiv renders integer division of expr by divisor.
func (d Dialect) IntDiv(expr string, divisor int) string { return d.intDiv(expr, divisor) }

// DropIndex renders a DROP INDEX statement for an index on table.
func (d Dialect) DropIndex(name, table string) string { return d.dropIndex(name, table) }

// Rebind rewrites '?' placeholders into the dialect's native form. Question
// marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d.placeholder == nil || d.placeholder(1) == "?" {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			sb.WriteString(d.placeholder(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// LikeContains builds a LIKE pattern that matches s as a substring. The
// pattern escapes with '!' and must be paired with ESCAPE '!' in the query.
func LikeContains(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
