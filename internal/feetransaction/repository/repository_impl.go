package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursar/internal/feetransaction/domain"
	"gorm.io/gorm"
)

const selectColumns = `f.id, f.student_id, s.name AS student_name, f.transaction_code, f.amount,
	f.payment_date, f.payment_mode, f.remarks, f.receipt_serial, f.created_at, f.updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.FeeTransaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_transactions (id, student_id, transaction_code, amount, payment_date, payment_mode, remarks, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.StudentID,
		tx.TransactionCode,
		tx.Amount,
		tx.PaymentDate,
		tx.PaymentMode,
		tx.Remarks,
		tx.CreatedAt,
		tx.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeeTransaction, error) {
	var item domain.FeeTransaction
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM fee_transactions f
		 JOIN students s ON s.id = f.student_id
		 WHERE f.id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]*domain.FeeTransaction, error) {
	var items []*domain.FeeTransaction
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM fee_transactions f
		 JOIN students s ON s.id = f.student_id
		 ORDER BY f.payment_date DESC, f.created_at DESC, f.id DESC
		 LIMIT ?`,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM fee_transactions WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) CountLedgers(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM receipt_ledger WHERE fee_transaction_id = ?`,
		id,
	).Scan(&count).Error
	return count, err
}

func (r *repo) SetSerialIfUnset(ctx context.Context, db *gorm.DB, id snowflake.ID, serial int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE fee_transactions SET receipt_serial = ?, updated_at = ?
		 WHERE id = ? AND receipt_serial IS NULL`,
		serial,
		now,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MaxReceiptSerial(ctx context.Context, db *gorm.DB) (int64, error) {
	var max int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(receipt_serial), 0) FROM fee_transactions`,
	).Scan(&max).Error
	return max, err
}
