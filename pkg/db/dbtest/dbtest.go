// Package dbtest opens throwaway sqlite databases carrying the production schema.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/bursar/internal/migration"
	"github.com/smallbiznis/bursar/pkg/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated database backed by a temp file. A single connection
// is used, so callers must not touch the root handle inside a transaction.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := db.SQLiteDSN(filepath.Join(t.TempDir(), "bursar.db"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.ApplySQLite(conn))
	require.NoError(t, conn.Use(db.NewImmutableTables(migration.ImmutableTables...)))
	return conn
}
