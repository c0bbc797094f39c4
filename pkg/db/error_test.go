package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("constraint failed: UNIQUE constraint failed: fee_transactions.transaction_code (2067)")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection reset")))
}

func TestIsForeignKeyErr(t *testing.T) {
	assert.False(t, IsForeignKeyErr(nil))
	assert.True(t, IsForeignKeyErr(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsForeignKeyErr(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")))
	assert.False(t, IsForeignKeyErr(&pgconn.PgError{Code: "23505"}))
}

func TestIsImmutableErr(t *testing.T) {
	assert.False(t, IsImmutableErr(nil))
	assert.True(t, IsImmutableErr(fmt.Errorf("%w: receipt_ledger", ErrImmutableTable)))
	assert.True(t, IsImmutableErr(&pgconn.PgError{Code: "P0001", Message: "immutable table: UPDATE not allowed on receipt_ledger"}))
	assert.True(t, IsImmutableErr(errors.New("immutable table: DELETE not allowed on receipt_ledger_items (1811)")))
	assert.False(t, IsImmutableErr(&pgconn.PgError{Code: "P0001", Message: "receipt serial is write-once"}))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "bursar.db?"+SQLitePragmas, SQLiteDSN(""))
	assert.Equal(t, "file:x.db?mode=rwc&"+SQLitePragmas, SQLiteDSN("file:x.db?mode=rwc"))
}

func TestImmutableTables_Protects(t *testing.T) {
	p := NewImmutableTables("receipt_ledger", "Receipt_Ledger_Items")

	assert.True(t, p.Protects("receipt_ledger"))
	assert.True(t, p.Protects(`public."receipt_ledger_items"`))
	assert.True(t, p.Protects(`"public"."receipt_ledger"`))
	assert.True(t, p.Protects("`receipt_ledger`"))
	assert.False(t, p.Protects("fee_transactions"))
	assert.False(t, p.Protects(`"receipt_ledger".fee_transactions`))
}

func TestMutatingSQL(t *testing.T) {
	p := NewImmutableTables("receipt_ledger", "receipt_ledger_items")
	blocked := []string{
		`UPDATE receipt_ledger SET total_amount = 1`,
		"  delete from \"receipt_ledger_items\" where id = 1",
		`TRUNCATE TABLE receipt_ledger`,
		`UPDATE ONLY receipt_ledger SET total_amount = 1`,
		`UPDATE public."receipt_ledger_items" SET amount = 0`,
		`UPDATE "public"."receipt_ledger" SET total_amount = 0`,
		`DELETE FROM public.receipt_ledger WHERE id = 1`,
		"UPDATE `receipt_ledger_items` SET label = 'x'",
	}
	for _, sql := range blocked {
		match := mutatingSQL.FindStringSubmatch(sql)
		if assert.NotNil(t, match, sql) {
			assert.True(t, protectsAny(p, match[1:]), sql)
		}
	}

	match := mutatingSQL.FindStringSubmatch(`UPDATE fee_transactions SET receipt_serial = 1`)
	if assert.NotNil(t, match) {
		assert.False(t, protectsAny(p, match[1:]))
	}
	assert.Nil(t, mutatingSQL.FindStringSubmatch(`INSERT INTO receipt_ledger (id) VALUES (1)`))
	assert.Nil(t, mutatingSQL.FindStringSubmatch(`SELECT * FROM receipt_ledger`))
}

func protectsAny(p *ImmutableTables, tables []string) bool {
	for _, table := range tables {
		if table != "" && p.Protects(table) {
			return true
		}
	}
	return false
}
