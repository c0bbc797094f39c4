package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *FeeTransaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FeeTransaction, error)
	List(ctx context.Context, db *gorm.DB, limit int) ([]*FeeTransaction, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	CountLedgers(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	// SetSerialIfUnset writes serial only when the row has none; it reports
	// whether the row was changed.
	SetSerialIfUnset(ctx context.Context, db *gorm.DB, id snowflake.ID, serial int64, now time.Time) (bool, error)
	MaxReceiptSerial(ctx context.Context, db *gorm.DB) (int64, error)
}
