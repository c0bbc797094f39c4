package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Ensure(ctx context.Context, db *gorm.DB, name string, now time.Time) error
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Sequence, error)
	Advance(ctx context.Context, db *gorm.DB, name string, floor int64, now time.Time) (int64, error)
	Raise(ctx context.Context, db *gorm.DB, name string, floor int64, now time.Time) (bool, error)
}
