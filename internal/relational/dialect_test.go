package relational

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	t.Parallel()

	q := "SELECT a FROM t WHERE b = ? AND c = '?' AND d = ?"
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t, q, MySQL.Rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = '?' AND d = $2", Postgres.Rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE b = @p1 AND c = '?' AND d = @p2", MSSQL.Rebind(q))
}

func TestDialectFragments(t *testing.T) {
	t.Parallel()

	assert.Equal(t, " LIMIT 6", SQLite.Limit(6))
	assert.Equal(t, " OFFSET 0 ROWS FETCH NEXT 6 ROWS ONLY", MSSQL.Limit(6))
	assert.Equal(t, "(m.start_year / 10)", Postgres.IntDiv("m.start_year", 10))
	assert.Equal(t, "(m.start_year DIV 10)", MySQL.IntDiv("m.start_year", 10))
	assert.Equal(t, "DROP INDEX idx_a", SQLite.DropIndex("idx_a", "t"))
	assert.Equal(t, "DROP INDEX idx_a ON t", MySQL.DropIndex("idx_a", "t"))
}

func TestLikeContains(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "%hanks%", LikeContains("Hanks"))
	assert.Equal(t, "%50!% off!_x!!%", LikeContains("50% off_x!"))
}
