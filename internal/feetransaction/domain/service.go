package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ReceiptSerialSequence names the counter backing receipt serials.
const ReceiptSerialSequence = "receipt_serial"

type CreateFeeRequest struct {
	StudentID   string          `json:"student_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	PaymentMode string          `json:"payment_mode"`
	Remarks     string          `json:"remarks"`
}

type ListFeeRequest struct {
	Limit int
}

type SkippedRow struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Inserted    int          `json:"inserted"`
	Skipped     int          `json:"skipped"`
	SkippedRows []SkippedRow `json:"skipped_rows"`
}

type AssignSerialResult struct {
	ReceiptSerial int64 `json:"receipt_serial"`
	Assigned      bool  `json:"assigned"`
}

type Service interface {
	Create(context.Context, CreateFeeRequest) (FeeTransaction, error)
	Get(ctx context.Context, id string) (FeeTransaction, error)
	List(context.Context, ListFeeRequest) ([]FeeTransaction, error)
	Delete(ctx context.Context, id string) error
	Import(context.Context, []CreateFeeRequest) (ImportResult, error)
	AssignSerial(ctx context.Context, id string) (AssignSerialResult, error)
	// HealSerials advances the serial counter past every stored serial.
	HealSerials(ctx context.Context) error
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidStudent     = errors.New("invalid_student_id")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidPaymentDate = errors.New("invalid_payment_date")
	ErrInvalidPaymentMode = errors.New("invalid_payment_mode")
	ErrEmptyImport        = errors.New("empty_import")
	ErrNotFound           = errors.New("not_found")
	ErrStudentNotFound    = errors.New("student_not_found")
	ErrLedgerExists       = errors.New("ledger_exists")
	ErrCodeCollision      = errors.New("transaction_code_collision")
)
