package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeCard         PaymentMode = "card"
	PaymentModeUPI          PaymentMode = "upi"
	PaymentModeCheque       PaymentMode = "cheque"
	PaymentModeBankTransfer PaymentMode = "bank-transfer"
	PaymentModeOther        PaymentMode = "other"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCard, PaymentModeUPI, PaymentModeCheque, PaymentModeBankTransfer, PaymentModeOther:
		return true
	default:
		return false
	}
}

// FeeTransaction is a mutable payment record. ReceiptSerial is write-once.
type FeeTransaction struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	StudentID       snowflake.ID    `gorm:"not null;index" json:"student_id"`
	StudentName     string          `gorm:"->" json:"student_name,omitempty"`
	TransactionCode string          `gorm:"not null;uniqueIndex" json:"transaction_code"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentDate     datatypes.Date  `gorm:"not null" json:"payment_date"`
	PaymentMode     PaymentMode     `gorm:"not null" json:"payment_mode"`
	Remarks         *string         `json:"remarks,omitempty"`
	ReceiptSerial   *int64          `gorm:"uniqueIndex" json:"receipt_serial,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func (FeeTransaction) TableName() string { return "fee_transactions" }

func (t FeeTransaction) HasSerial() bool {
	return t.ReceiptSerial != nil && *t.ReceiptSerial > 0
}
