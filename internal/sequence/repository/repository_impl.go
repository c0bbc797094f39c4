package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/bursar/internal/sequence/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Ensure(ctx context.Context, db *gorm.DB, name string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sequences (name, value, updated_at) VALUES (?, 0, ?)
		 ON CONFLICT (name) DO NOTHING`,
		name,
		now,
	).Error
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Sequence, error) {
	var seq domain.Sequence
	err := db.WithContext(ctx).Raw(
		`SELECT name, value, updated_at FROM sequences WHERE name = ?`,
		name,
	).Scan(&seq).Error
	if err != nil {
		return nil, err
	}
	if seq.Name == "" {
		return nil, nil
	}
	return &seq, nil
}

// Advance moves the counter to max(value, floor) + 1 and returns the new value.
// The row lock taken by UPDATE serializes concurrent callers.
func (r *repo) Advance(ctx context.Context, db *gorm.DB, name string, floor int64, now time.Time) (int64, error) {
	var values []int64
	err := db.WithContext(ctx).Raw(
		`UPDATE sequences
		 SET value = CASE WHEN value < CAST(? AS BIGINT) THEN CAST(? AS BIGINT) ELSE value END + 1,
		     updated_at = ?
		 WHERE name = ?
		 RETURNING value`,
		floor,
		floor,
		now,
		name,
	).Scan(&values).Error
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, domain.ErrExhausted
	}
	return values[0], nil
}

func (r *repo) Raise(ctx context.Context, db *gorm.DB, name string, floor int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE sequences SET value = ?, updated_at = ? WHERE name = ? AND value < ?`,
		floor,
		now,
		name,
		floor,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
