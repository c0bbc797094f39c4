package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursar/internal/clock"
	"github.com/smallbiznis/bursar/internal/config"
	feedomain "github.com/smallbiznis/bursar/internal/feetransaction/domain"
	"github.com/smallbiznis/bursar/internal/observability/metrics"
	"github.com/smallbiznis/bursar/internal/receiptledger/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("bursar/receiptledger")

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	FeeRepo feedomain.Repository
	Clock   clock.Clock                 `optional:"true"`
	Policy  *config.ReceiptPolicyHolder `optional:"true"`
	Metrics *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	feeRepo feedomain.Repository
	clock   clock.Clock
	policy  *config.ReceiptPolicyHolder
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("receiptledger.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		feeRepo: p.FeeRepo,
		clock:   clock.Or(p.Clock),
		policy:  p.Policy,
		metrics: p.Metrics,
	}
}

func (s *Service) BuildLedger(ctx context.Context, req domain.BuildLedgerRequest) (domain.BuildResult, error) {
	ctx, span := tracer.Start(ctx, "receiptledger.BuildLedger")
	defer span.End()

	txID, err := parseID(req.FeeTransactionID)
	if err != nil {
		return s.reject(span, err)
	}
	span.SetAttributes(attribute.String("fee_transaction.id", txID.String()))

	fee, err := s.feeRepo.FindByID(ctx, s.db, txID)
	if err != nil {
		return s.reject(span, err)
	}
	if fee == nil {
		return s.reject(span, domain.ErrTransactionNotFound)
	}
	if !fee.HasSerial() {
		return s.reject(span, domain.ErrSerialNotAssigned)
	}

	existing, err := s.load(ctx, txID)
	if err != nil {
		return s.reject(span, err)
	}
	if existing != nil {
		s.metrics.RecordLedgerBuild("existing")
		return domain.BuildResult{Ledger: *existing, Created: false}, nil
	}

	itemsTotal, err := validateItems(req.Items)
	if err != nil {
		return s.reject(span, err)
	}

	tolerance := s.policy.Get().ToleranceDecimal()
	if itemsTotal.Sub(fee.Amount).Abs().GreaterThan(tolerance) {
		return s.reject(span, &domain.TotalMismatchError{
			TransactionAmount: fee.Amount,
			ItemsTotal:        itemsTotal,
		})
	}

	entry, items, err := s.snapshot(fee, req.Items)
	if err != nil {
		return s.reject(span, err)
	}

	if err := s.repo.Insert(ctx, s.db, &entry, items); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return s.reject(span, err)
		}
		// a concurrent build won; return its snapshot
		winner, loadErr := s.load(ctx, txID)
		if loadErr != nil {
			return s.reject(span, loadErr)
		}
		if winner == nil {
			return s.reject(span, err)
		}
		s.log.Info("receipt ledger already created concurrently", zap.String("fee_transaction_id", txID.String()))
		s.metrics.RecordLedgerBuild("existing")
		return domain.BuildResult{Ledger: *winner, Created: false}, nil
	}

	entry.StudentName = fee.StudentName
	span.SetAttributes(attribute.Int64("receipt.serial", entry.ReceiptSerial))
	s.metrics.RecordLedgerBuild("created")
	s.log.Info("receipt ledger created",
		zap.String("fee_transaction_id", txID.String()),
		zap.String("ledger_id", entry.ID.String()),
		zap.Int64("receipt_serial", entry.ReceiptSerial),
		zap.Int("items", len(items)),
	)
	return domain.BuildResult{Ledger: domain.Ledger{Entry: entry, Items: items}, Created: true}, nil
}

func (s *Service) GetLedger(ctx context.Context, feeTransactionID string) (domain.Ledger, error) {
	txID, err := parseID(feeTransactionID)
	if err != nil {
		return domain.Ledger{}, err
	}

	ledger, err := s.load(ctx, txID)
	if err != nil {
		return domain.Ledger{}, err
	}
	if ledger == nil {
		return domain.Ledger{}, domain.ErrLedgerNotFound
	}
	return *ledger, nil
}

func (s *Service) ListLedgers(ctx context.Context, limit int) ([]domain.Ledger, error) {
	limit = s.policy.Get().ClampLimit(limit)

	entries, err := s.repo.ListRecent(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []domain.Ledger{}, nil
	}

	ids := make([]snowflake.ID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	items, err := s.repo.FindItems(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	grouped := make(map[snowflake.ID][]domain.Item, len(entries))
	for _, item := range items {
		grouped[item.LedgerID] = append(grouped[item.LedgerID], *item)
	}

	out := make([]domain.Ledger, 0, len(entries))
	for _, entry := range entries {
		ledgerItems := grouped[entry.ID]
		if ledgerItems == nil {
			ledgerItems = []domain.Item{}
		}
		out = append(out, domain.Ledger{Entry: *entry, Items: ledgerItems})
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, feeTransactionID snowflake.ID) (*domain.Ledger, error) {
	entry, err := s.repo.FindByFeeTransactionID(ctx, s.db, feeTransactionID)
	if err != nil || entry == nil {
		return nil, err
	}

	items, err := s.repo.FindItems(ctx, s.db, []snowflake.ID{entry.ID})
	if err != nil {
		return nil, err
	}

	ledger := &domain.Ledger{Entry: *entry, Items: make([]domain.Item, 0, len(items))}
	for _, item := range items {
		ledger.Items = append(ledger.Items, *item)
	}
	return ledger, nil
}

func (s *Service) snapshot(fee *feedomain.FeeTransaction, inputs []domain.ItemInput) (domain.Entry, []domain.Item, error) {
	now := s.clock.Now()
	ledgerID := s.genID.Generate()

	items := make([]domain.Item, 0, len(inputs))
	snapshot := make([]domain.SnapshotItem, 0, len(inputs))
	for i, input := range inputs {
		item := domain.Item{
			ID:        s.genID.Generate(),
			LedgerID:  ledgerID,
			Label:     strings.TrimSpace(input.Label),
			Amount:    input.Amount,
			Position:  i + 1,
			CreatedAt: now,
		}
		items = append(items, item)
		snapshot = append(snapshot, domain.SnapshotItem{Label: item.Label, Amount: item.Amount, Position: item.Position})
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return domain.Entry{}, nil, err
	}

	entry := domain.Entry{
		ID:               ledgerID,
		FeeTransactionID: fee.ID,
		StudentID:        fee.StudentID,
		ReceiptSerial:    *fee.ReceiptSerial,
		PaymentDate:      fee.PaymentDate,
		TotalAmount:      fee.Amount,
		ItemsJSON:        datatypes.JSON(raw),
		CreatedAt:        now,
	}
	return entry, items, nil
}

func (s *Service) reject(span trace.Span, err error) (domain.BuildResult, error) {
	s.metrics.RecordLedgerBuild("rejected")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return domain.BuildResult{}, err
}

// validateItems checks every item and returns their sum.
func validateItems(items []domain.ItemInput) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, domain.ErrEmptyItems
	}

	total := decimal.Zero
	for i, item := range items {
		if strings.TrimSpace(item.Label) == "" {
			return decimal.Zero, &domain.ItemError{Index: i, Field: "label", Err: domain.ErrInvalidItemLabel}
		}
		if item.Amount.IsNegative() {
			return decimal.Zero, &domain.ItemError{Index: i, Field: "amount", Err: domain.ErrInvalidItemAmount}
		}
		if !fitsItemColumn(item.Amount) {
			return decimal.Zero, &domain.ItemError{Index: i, Field: "amount", Err: domain.ErrItemAmountPrecision}
		}
		total = total.Add(item.Amount)
	}
	return total, nil
}

var maxItemAmount = decimal.New(1, domain.ItemAmountIntDigits)

// fitsItemColumn reports whether amount is stored without rounding.
func fitsItemColumn(amount decimal.Decimal) bool {
	if !amount.Equal(amount.Round(domain.ItemAmountScale)) {
		return false
	}
	return amount.LessThan(maxItemAmount)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
