package migration

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "migrate.db") + "?_pragma=foreign_keys(1)"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestApplySQLite_IsRepeatable(t *testing.T) {
	conn := openSQLite(t)

	require.NoError(t, ApplySQLite(conn))
	require.NoError(t, ApplySQLite(conn))

	var versions int64
	require.NoError(t, conn.Raw(`SELECT COUNT(*) FROM schema_migrations`).Scan(&versions).Error)
	assert.Equal(t, int64(1), versions)
}

func TestApplySQLite_CreatesSchema(t *testing.T) {
	conn := openSQLite(t)
	require.NoError(t, ApplySQLite(conn))

	var tables []string
	require.NoError(t, conn.Raw(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`).Scan(&tables).Error)
	for _, table := range []string{"fee_transactions", "receipt_ledger", "receipt_ledger_items", "sequences", "students"} {
		assert.Contains(t, tables, table)
	}

	var triggers int64
	require.NoError(t, conn.Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger'`).Scan(&triggers).Error)
	assert.Equal(t, int64(5), triggers)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (id INTEGER);\r\n\r\n\n\nCREATE TRIGGER t BEFORE DELETE ON a\nBEGIN\n    SELECT 1;\nEND;\n")

	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "SELECT 1;\nEND;")
}

func TestVersionOf(t *testing.T) {
	v, err := versionOf("000001_init.sql")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = versionOf("init.sql")
	assert.Error(t, err)
}
