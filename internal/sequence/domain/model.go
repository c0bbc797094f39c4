package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Sequence is the persisted state of one named counter.
type Sequence struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Value     int64     `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// FloorFunc reports the highest value already in use outside the counter.
// It runs inside the allocation transaction.
type FloorFunc func(ctx context.Context, tx *gorm.DB) (int64, error)

// Counter names a sequence and the floor it must stay above.
type Counter struct {
	Name  string
	Floor FloorFunc
}
