package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByFeeTransactionID(ctx context.Context, db *gorm.DB, feeTransactionID snowflake.ID) (*Entry, error)
	FindItems(ctx context.Context, db *gorm.DB, ledgerIDs []snowflake.ID) ([]*Item, error)
	ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]*Entry, error)
	// Insert writes the header and items atomically. It returns ErrConflict
	// when a ledger for the same fee transaction already exists.
	Insert(ctx context.Context, db *gorm.DB, entry *Entry, items []Item) error
}
