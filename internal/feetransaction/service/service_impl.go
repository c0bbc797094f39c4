package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/bursar/internal/config"
	"github.com/smallbiznis/bursar/internal/feetransaction/domain"
	"github.com/smallbiznis/bursar/internal/observability/metrics"
	sequencedomain "github.com/smallbiznis/bursar/internal/sequence/domain"
	studentdomain "github.com/smallbiznis/bursar/internal/student/domain"
	"github.com/smallbiznis/bursar/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	transactionCodePrefix = "TXN"
	transactionCodeLength = 10
	maxCodeAttempts       = 3
)

var tracer = otel.Tracer("bursar/feetransaction")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Students  studentdomain.Service
	Sequences sequencedomain.Service
	Policy    *config.ReceiptPolicyHolder `optional:"true"`
	Metrics   *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	students  studentdomain.Service
	sequences sequencedomain.Service
	policy    *config.ReceiptPolicyHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("feetransaction.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		students:  p.Students,
		sequences: p.Sequences,
		policy:    p.Policy,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateFeeRequest) (domain.FeeTransaction, error) {
	item, err := s.newTransaction(req)
	if err != nil {
		return domain.FeeTransaction{}, err
	}

	students, err := s.students.Lookup(ctx, []snowflake.ID{item.StudentID})
	if err != nil {
		return domain.FeeTransaction{}, err
	}
	student, ok := students[item.StudentID]
	if !ok {
		return domain.FeeTransaction{}, domain.ErrStudentNotFound
	}

	if err := s.insertWithFreshCode(ctx, s.db, &item); err != nil {
		return domain.FeeTransaction{}, err
	}
	item.StudentName = student.Name

	s.log.Info("fee transaction created",
		zap.String("fee_transaction_id", item.ID.String()),
		zap.String("transaction_code", item.TransactionCode),
	)
	return item, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.FeeTransaction, error) {
	txID, err := parseID(id)
	if err != nil {
		return domain.FeeTransaction{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, txID)
	if err != nil {
		return domain.FeeTransaction{}, err
	}
	if item == nil {
		return domain.FeeTransaction{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListFeeRequest) ([]domain.FeeTransaction, error) {
	limit := s.policy.Get().ClampLimit(req.Limit)

	items, err := s.repo.List(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.FeeTransaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

// Delete removes a transaction that no receipt ledger references yet.
func (s *Service) Delete(ctx context.Context, id string) error {
	txID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, txID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}

		ledgers, err := s.repo.CountLedgers(ctx, tx, txID)
		if err != nil {
			return err
		}
		if ledgers > 0 {
			return domain.ErrLedgerExists
		}

		affected, err := s.repo.Delete(ctx, tx, txID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if db.IsForeignKeyErr(err) {
		return domain.ErrLedgerExists
	}
	if err != nil {
		return err
	}

	s.log.Info("fee transaction deleted", zap.String("fee_transaction_id", txID.String()))
	return nil
}

// Import inserts many payments in one transaction. Rows that fail validation,
// reference an unknown student or fail to insert are skipped and reported.
func (s *Service) Import(ctx context.Context, rows []domain.CreateFeeRequest) (domain.ImportResult, error) {
	if len(rows) == 0 {
		return domain.ImportResult{}, domain.ErrEmptyImport
	}

	result := domain.ImportResult{SkippedRows: []domain.SkippedRow{}}
	skip := func(index int, reason string) {
		result.SkippedRows = append(result.SkippedRows, domain.SkippedRow{Index: index, Reason: reason})
	}

	type pendingRow struct {
		index int
		item  domain.FeeTransaction
	}
	pending := make([]pendingRow, 0, len(rows))
	studentIDs := make([]snowflake.ID, 0, len(rows))
	for i, row := range rows {
		item, err := s.newTransaction(row)
		if err != nil {
			skip(i, err.Error())
			continue
		}
		pending = append(pending, pendingRow{index: i, item: item})
		studentIDs = append(studentIDs, item.StudentID)
	}

	students, err := s.students.Lookup(ctx, studentIDs)
	if err != nil {
		return domain.ImportResult{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range pending {
			if _, ok := students[row.item.StudentID]; !ok {
				skip(row.index, domain.ErrStudentNotFound.Error())
				continue
			}

			item := row.item
			if insertErr := s.insertWithFreshCode(ctx, tx, &item); insertErr != nil {
				skip(row.index, insertErr.Error())
				continue
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return domain.ImportResult{}, err
	}

	sort.Slice(result.SkippedRows, func(i, j int) bool {
		return result.SkippedRows[i].Index < result.SkippedRows[j].Index
	})
	result.Skipped = len(result.SkippedRows)

	s.log.Info("fee transactions imported",
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// AssignSerial gives the transaction a receipt serial exactly once.
func (s *Service) AssignSerial(ctx context.Context, id string) (domain.AssignSerialResult, error) {
	ctx, span := tracer.Start(ctx, "feetransaction.AssignSerial")
	defer span.End()

	txID, err := parseID(id)
	if err != nil {
		return domain.AssignSerialResult{}, err
	}
	span.SetAttributes(attribute.String("fee_transaction.id", txID.String()))

	item, err := s.repo.FindByID(ctx, s.db, txID)
	if err != nil {
		return s.failAssign(span, err)
	}
	if item == nil {
		return s.failAssign(span, domain.ErrNotFound)
	}
	if item.HasSerial() {
		s.metrics.RecordSerialAssignment("existing")
		return domain.AssignSerialResult{ReceiptSerial: *item.ReceiptSerial, Assigned: false}, nil
	}

	serial, err := s.sequences.Next(ctx, s.serialCounter())
	if err != nil {
		return s.failAssign(span, err)
	}

	changed, err := s.repo.SetSerialIfUnset(ctx, s.db, txID, serial, time.Now().UTC())
	if err != nil {
		s.log.Warn("receipt serial skipped", zap.Int64("receipt_serial", serial), zap.Error(err))
		return s.failAssign(span, err)
	}

	if !changed {
		// lost a race with a concurrent assignment; report the winner
		current, err := s.repo.FindByID(ctx, s.db, txID)
		if err != nil {
			return s.failAssign(span, err)
		}
		if current == nil || !current.HasSerial() {
			return s.failAssign(span, domain.ErrNotFound)
		}
		s.log.Info("receipt serial skipped",
			zap.String("fee_transaction_id", txID.String()),
			zap.Int64("receipt_serial", serial),
			zap.Int64("existing_serial", *current.ReceiptSerial),
		)
		s.metrics.RecordSerialAssignment("existing")
		return domain.AssignSerialResult{ReceiptSerial: *current.ReceiptSerial, Assigned: false}, nil
	}

	span.SetAttributes(attribute.Int64("receipt.serial", serial))
	s.metrics.RecordSerialAssignment("assigned")
	s.log.Info("receipt serial assigned",
		zap.String("fee_transaction_id", txID.String()),
		zap.Int64("receipt_serial", serial),
	)
	return domain.AssignSerialResult{ReceiptSerial: serial, Assigned: true}, nil
}

func (s *Service) HealSerials(ctx context.Context) error {
	_, err := s.sequences.Heal(ctx, s.serialCounter())
	return err
}

func (s *Service) serialCounter() sequencedomain.Counter {
	return sequencedomain.Counter{
		Name: domain.ReceiptSerialSequence,
		Floor: func(ctx context.Context, tx *gorm.DB) (int64, error) {
			return s.repo.MaxReceiptSerial(ctx, tx)
		},
	}
}

func (s *Service) failAssign(span trace.Span, err error) (domain.AssignSerialResult, error) {
	s.metrics.RecordSerialAssignment("failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return domain.AssignSerialResult{}, err
}

func (s *Service) newTransaction(req domain.CreateFeeRequest) (domain.FeeTransaction, error) {
	studentID, err := snowflake.ParseString(strings.TrimSpace(req.StudentID))
	if err != nil || studentID == 0 {
		return domain.FeeTransaction{}, domain.ErrInvalidStudent
	}

	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return domain.FeeTransaction{}, domain.ErrInvalidAmount
	}

	paymentDate, err := parsePaymentDate(req.PaymentDate)
	if err != nil {
		return domain.FeeTransaction{}, err
	}

	mode := domain.PaymentMode(strings.ToLower(strings.TrimSpace(req.PaymentMode)))
	if mode == "" {
		mode = domain.PaymentModeCash
	}
	if !mode.Valid() {
		return domain.FeeTransaction{}, domain.ErrInvalidPaymentMode
	}

	var remarks *string
	if trimmed := strings.TrimSpace(req.Remarks); trimmed != "" {
		remarks = &trimmed
	}

	now := time.Now().UTC()
	return domain.FeeTransaction{
		ID:          s.genID.Generate(),
		StudentID:   studentID,
		Amount:      amount,
		PaymentDate: datatypes.Date(paymentDate),
		PaymentMode: mode,
		Remarks:     remarks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// insertWithFreshCode retries on transaction code collisions. Each attempt runs
// in its own savepoint when conn is already inside a transaction.
func (s *Service) insertWithFreshCode(ctx context.Context, conn *gorm.DB, item *domain.FeeTransaction) error {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		item.TransactionCode = newTransactionCode()
		err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.repo.Insert(ctx, tx, item)
		})
		if err == nil {
			return nil
		}
		if db.IsForeignKeyErr(err) {
			return domain.ErrStudentNotFound
		}
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		s.log.Warn("transaction code collision, retrying",
			zap.Int("attempt", attempt),
			zap.String("transaction_code", item.TransactionCode),
		)
	}
	return domain.ErrCodeCollision
}

func newTransactionCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return transactionCodePrefix + strings.ToUpper(hex[:transactionCodeLength])
}

func parsePaymentDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, domain.ErrInvalidPaymentDate
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			y, m, d := parsed.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidPaymentDate, value)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
