package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Entry is the frozen receipt header. Rows are insert-only.
type Entry struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	FeeTransactionID snowflake.ID    `gorm:"not null;uniqueIndex" json:"fee_transaction_id"`
	StudentID        snowflake.ID    `gorm:"not null" json:"student_id"`
	StudentName      string          `gorm:"->" json:"student_name,omitempty"`
	ReceiptSerial    int64           `gorm:"not null;uniqueIndex" json:"receipt_serial"`
	PaymentDate      datatypes.Date  `gorm:"not null" json:"payment_date"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	ItemsJSON        datatypes.JSON  `gorm:"column:items_json;not null" json:"-"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
}

func (Entry) TableName() string { return "receipt_ledger" }

// Item amounts are stored as NUMERIC(14,4).
const (
	ItemAmountScale     = 4
	ItemAmountIntDigits = 10
)

type Item struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"-"`
	LedgerID  snowflake.ID    `gorm:"not null" json:"-"`
	Label     string          `gorm:"not null" json:"label"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"amount"`
	Position  int             `gorm:"not null" json:"position"`
	CreatedAt time.Time       `gorm:"not null" json:"-"`
}

func (Item) TableName() string { return "receipt_ledger_items" }

// Ledger is a header with its items ordered by position.
type Ledger struct {
	Entry Entry  `json:"entry"`
	Items []Item `json:"items"`
}

type BuildResult struct {
	Ledger
	Created bool `json:"created"`
}

// SnapshotItem is the shape stored in items_json.
type SnapshotItem struct {
	Label    string          `json:"label"`
	Amount   decimal.Decimal `json:"amount"`
	Position int             `json:"position"`
}
