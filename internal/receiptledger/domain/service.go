package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type ItemInput struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

type BuildLedgerRequest struct {
	FeeTransactionID string
	Items            []ItemInput
}

type Service interface {
	// BuildLedger freezes the receipt for a fee transaction exactly once.
	BuildLedger(context.Context, BuildLedgerRequest) (BuildResult, error)
	GetLedger(ctx context.Context, feeTransactionID string) (Ledger, error)
	ListLedgers(ctx context.Context, limit int) ([]Ledger, error)
}
