package db

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

var ErrImmutableTable = errors.New("immutable table: UPDATE/DELETE not allowed")

// identifier matches plain, "quoted" or backtick-quoted names, optionally schema-qualified.
const identifier = "((?:\"[^\"]+\"|`[^`]+`|[A-Za-z0-9_]+)(?:\\.(?:\"[^\"]+\"|`[^`]+`|[A-Za-z0-9_]+))*)"

var mutatingSQL = regexp.MustCompile(`(?is)^\s*(?:UPDATE\s+(?:ONLY\s+)?` + identifier +
	`|DELETE\s+FROM\s+(?:ONLY\s+)?` + identifier +
	`|TRUNCATE\s+(?:TABLE\s+)?(?:ONLY\s+)?` + identifier + `)`)

// ImmutableTables is a gorm plugin rejecting UPDATE, DELETE and TRUNCATE on the
// registered tables before the statement reaches the database. The database
// triggers remain the authority; this guard fails earlier with a typed error.
type ImmutableTables struct {
	tables map[string]struct{}
}

func NewImmutableTables(tables ...string) *ImmutableTables {
	set := make(map[string]struct{}, len(tables))
	for _, table := range tables {
		set[strings.ToLower(strings.TrimSpace(table))] = struct{}{}
	}
	return &ImmutableTables{tables: set}
}

func (p *ImmutableTables) Name() string {
	return "bursar:immutable_tables"
}

func (p *ImmutableTables) Initialize(db *gorm.DB) error {
	if err := db.Callback().Update().Before("gorm:update").Register("bursar:immutable_update", p.guardStatement); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("bursar:immutable_delete", p.guardStatement); err != nil {
		return err
	}
	if err := db.Callback().Raw().Before("gorm:raw").Register("bursar:immutable_raw", p.guardSQL); err != nil {
		return err
	}
	return db.Callback().Row().Before("gorm:row").Register("bursar:immutable_row", p.guardSQL)
}

// Protects reports whether table is guarded.
func (p *ImmutableTables) Protects(table string) bool {
	parts := strings.Split(strings.TrimSpace(table), ".")
	name := strings.ToLower(strings.Trim(strings.TrimSpace(parts[len(parts)-1]), "\"`"))
	_, ok := p.tables[name]
	return ok
}

func (p *ImmutableTables) guardStatement(db *gorm.DB) {
	if db.Error != nil || db.Statement == nil {
		return
	}
	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	if p.Protects(table) {
		_ = db.AddError(fmt.Errorf("%w: %s", ErrImmutableTable, table))
	}
}

func (p *ImmutableTables) guardSQL(db *gorm.DB) {
	if db.Error != nil || db.Statement == nil {
		return
	}
	match := mutatingSQL.FindStringSubmatch(db.Statement.SQL.String())
	if match == nil {
		return
	}
	for _, table := range match[1:] {
		if table != "" && p.Protects(table) {
			_ = db.AddError(fmt.Errorf("%w: %s", ErrImmutableTable, table))
			return
		}
	}
}
