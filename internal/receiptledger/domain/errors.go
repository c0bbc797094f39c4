package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrLedgerNotFound      = errors.New("ledger_not_found")
	ErrSerialNotAssigned   = errors.New("receipt_serial_not_assigned")
	ErrEmptyItems          = errors.New("empty_items")
	ErrInvalidItemLabel    = errors.New("invalid_item_label")
	ErrInvalidItemAmount   = errors.New("invalid_item_amount")
	ErrItemAmountPrecision = errors.New("item_amount_precision")
	ErrItemsTotalMismatch  = errors.New("items_total_mismatch")
	ErrConflict            = errors.New("ledger_conflict")
)

// ItemError points at the offending item.
type ItemError struct {
	Index int
	Field string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("items[%d].%s: %s", e.Index, e.Field, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// TotalMismatchError reports items that do not reconcile with the amount collected.
type TotalMismatchError struct {
	TransactionAmount decimal.Decimal
	ItemsTotal        decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("items total does not match transaction amount: transactionAmount: %s, itemsTotal: %s",
		FormatAmount(e.TransactionAmount), FormatAmount(e.ItemsTotal))
}

func (e *TotalMismatchError) Is(target error) bool {
	return target == ErrItemsTotalMismatch
}

// FormatAmount prints at least two decimals without hiding extra precision.
func FormatAmount(d decimal.Decimal) string {
	if d.Exponent() < -2 {
		return d.String()
	}
	return d.StringFixed(2)
}
