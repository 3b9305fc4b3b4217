package clickhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x Int) ENGINE = Memory;\nCREATE TABLE b (y Int) ENGINE = Memory;")
	assert.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "CREATE TABLE b")
}

func TestSplitStatements_IgnoresTrailingWhitespace(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x Int) ENGINE = Memory;   \n\n  ")
	assert.Len(t, stmts, 1)
}

func TestBucketTable(t *testing.T) {
	table, expr := bucketTable(interfaces.GranularityMinute)
	assert.Equal(t, "hits_by_minute", table)
	assert.Equal(t, "bucket", expr)

	table, expr = bucketTable(interfaces.GranularityDay)
	assert.Equal(t, "hits_by_hour", table)
	assert.Equal(t, "toStartOfDay(bucket)", expr)

	table, expr = bucketTable(interfaces.GranularityHour)
	assert.Equal(t, "hits_by_hour", table)
	assert.Equal(t, "bucket", expr)
}
