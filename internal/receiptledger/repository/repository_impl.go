package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursar/internal/receiptledger/domain"
	pkgdb "github.com/smallbiznis/bursar/pkg/db"
	"gorm.io/gorm"
)

const entryColumns = `rl.id, rl.fee_transaction_id, rl.student_id, s.name AS student_name, rl.receipt_serial,
	rl.payment_date, rl.total_amount, rl.items_json, rl.created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByFeeTransactionID(ctx context.Context, db *gorm.DB, feeTransactionID snowflake.ID) (*domain.Entry, error) {
	var entry domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT `+entryColumns+`
		 FROM receipt_ledger rl
		 JOIN students s ON s.id = rl.student_id
		 WHERE rl.fee_transaction_id = ?`,
		feeTransactionID,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, ledgerIDs []snowflake.ID) ([]*domain.Item, error) {
	if len(ledgerIDs) == 0 {
		return nil, nil
	}
	var items []*domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, ledger_id, label, amount, position, created_at
		 FROM receipt_ledger_items
		 WHERE ledger_id IN ?
		 ORDER BY ledger_id, position`,
		ledgerIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT `+entryColumns+`
		 FROM receipt_ledger rl
		 JOIN students s ON s.id = rl.student_id
		 ORDER BY rl.created_at DESC, rl.id DESC
		 LIMIT ?`,
		limit,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry, items []domain.Item) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`INSERT INTO receipt_ledger (id, fee_transaction_id, student_id, receipt_serial, payment_date, total_amount, items_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (fee_transaction_id) DO NOTHING`,
			entry.ID,
			entry.FeeTransactionID,
			entry.StudentID,
			entry.ReceiptSerial,
			entry.PaymentDate,
			entry.TotalAmount,
			entry.ItemsJSON,
			entry.CreatedAt,
		)
		// ON CONFLICT only absorbs the fee_transaction_id index; a concurrent
		// insert of the same serial surfaces as a unique violation instead.
		if pkgdb.IsDuplicateKeyErr(res.Error) {
			return domain.ErrConflict
		}
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConflict
		}

		for _, item := range items {
			err := tx.Exec(
				`INSERT INTO receipt_ledger_items (id, ledger_id, label, amount, position, created_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				item.ID,
				item.LedgerID,
				item.Label,
				item.Amount,
				item.Position,
				item.CreatedAt,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
