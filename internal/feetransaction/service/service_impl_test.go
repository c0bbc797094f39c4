package service

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursar/internal/feetransaction/domain"
	"github.com/smallbiznis/bursar/internal/feetransaction/repository"
	sequencedomain "github.com/smallbiznis/bursar/internal/sequence/domain"
	sequencerepo "github.com/smallbiznis/bursar/internal/sequence/repository"
	sequencesvc "github.com/smallbiznis/bursar/internal/sequence/service"
	studentdomain "github.com/smallbiznis/bursar/internal/student/domain"
	studentrepo "github.com/smallbiznis/bursar/internal/student/repository"
	studentsvc "github.com/smallbiznis/bursar/internal/student/service"
	"github.com/smallbiznis/bursar/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	students  studentdomain.Service
	sequences sequencedomain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	students := studentsvc.New(studentsvc.Params{DB: conn, Log: log, GenID: node, Repo: studentrepo.Provide()})
	sequences := sequencesvc.New(sequencesvc.Params{DB: conn, Log: log, Repo: sequencerepo.Provide()})
	svc := New(Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Repo:      repository.Provide(),
		Students:  students,
		Sequences: sequences,
	})
	return fixture{db: conn, svc: svc, students: students, sequences: sequences}
}

func (f fixture) student(t *testing.T, admission, name string) studentdomain.Student {
	t.Helper()
	s, err := f.students.Create(context.Background(), studentdomain.CreateStudentRequest{AdmissionNumber: admission, Name: name})
	require.NoError(t, err)
	return s
}

func (f fixture) fee(t *testing.T, studentID snowflake.ID, amount, date string) domain.FeeTransaction {
	t.Helper()
	item, err := f.svc.Create(context.Background(), domain.CreateFeeRequest{
		StudentID:   studentID.String(),
		Amount:      decimal.RequireFromString(amount),
		PaymentDate: date,
		PaymentMode: "upi",
	})
	require.NoError(t, err)
	return item
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "ADM-1", "Asha Rao")

	item, err := f.svc.Create(context.Background(), domain.CreateFeeRequest{
		StudentID:   st.ID.String(),
		Amount:      decimal.RequireFromString("1500.005"),
		PaymentDate: "2025-04-01",
		Remarks:     "  first term ",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^TXN[0-9A-F]{10}$`), item.TransactionCode)
	assert.Equal(t, "1500.01", item.Amount.StringFixed(2))
	assert.Equal(t, domain.PaymentModeCash, item.PaymentMode)
	assert.Equal(t, "Asha Rao", item.StudentName)
	require.NotNil(t, item.Remarks)
	assert.Equal(t, "first term", *item.Remarks)
	assert.Nil(t, item.ReceiptSerial)

	got, err := f.svc.Get(context.Background(), item.ID.String())
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(item.Amount))
	assert.Equal(t, "2025-04-01", time.Time(got.PaymentDate).Format("2006-01-02"))
	assert.Equal(t, item.TransactionCode, got.TransactionCode)
	assert.Equal(t, "Asha Rao", got.StudentName)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "ADM-1", "Asha")
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateFeeRequest
		want error
	}{
		{"zero amount", domain.CreateFeeRequest{StudentID: st.ID.String(), Amount: decimal.Zero, PaymentDate: "2025-04-01"}, domain.ErrInvalidAmount},
		{"negative amount", domain.CreateFeeRequest{StudentID: st.ID.String(), Amount: decimal.NewFromInt(-5), PaymentDate: "2025-04-01"}, domain.ErrInvalidAmount},
		{"sub-cent amount", domain.CreateFeeRequest{StudentID: st.ID.String(), Amount: decimal.RequireFromString("0.001"), PaymentDate: "2025-04-01"}, domain.ErrInvalidAmount},
		{"missing date", domain.CreateFeeRequest{StudentID: st.ID.String(), Amount: decimal.NewFromInt(5)}, domain.ErrInvalidPaymentDate},
		{"bad date", domain.CreateFeeRequest{StudentID: st.ID.String(), Amount: decimal.NewFromInt(5), PaymentDate: "01/04/2025"}, domain.ErrInvalidPaymentDate},
		{"bad mode", domain.CreateFeeRequest{StudentID: st.ID.String(), Amount: decimal.NewFromInt(5), PaymentDate: "2025-04-01", PaymentMode: "barter"}, domain.ErrInvalidPaymentMode},
		{"bad student id", domain.CreateFeeRequest{StudentID: "x", Amount: decimal.NewFromInt(5), PaymentDate: "2025-04-01"}, domain.ErrInvalidStudent},
		{"unknown student", domain.CreateFeeRequest{StudentID: "424242", Amount: decimal.NewFromInt(5), PaymentDate: "2025-04-01"}, domain.ErrStudentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGet_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.Get(context.Background(), "777")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_NewestPaymentFirst(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "ADM-1", "Asha")
	older := f.fee(t, st.ID, "100", "2025-01-10")
	newer := f.fee(t, st.ID, "200", "2025-03-10")
	middle := f.fee(t, st.ID, "300", "2025-02-10")

	items, err := f.svc.List(context.Background(), domain.ListFeeRequest{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []snowflake.ID{newer.ID, middle.ID, older.ID}, []snowflake.ID{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "Asha", items[0].StudentName)

	limited, err := f.svc.List(context.Background(), domain.ListFeeRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAssignSerial_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.student(t, "ADM-1", "Asha")
	item := f.fee(t, st.ID, "1500", "2025-04-01")

	first, err := f.svc.AssignSerial(ctx, item.ID.String())
	require.NoError(t, err)
	assert.True(t, first.Assigned)
	assert.Equal(t, int64(1), first.ReceiptSerial)

	second, err := f.svc.AssignSerial(ctx, item.ID.String())
	require.NoError(t, err)
	assert.False(t, second.Assigned)
	assert.Equal(t, first.ReceiptSerial, second.ReceiptSerial)

	// the allocator was consulted exactly once
	current, err := f.sequences.Current(ctx, domain.ReceiptSerialSequence)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	got, err := f.svc.Get(ctx, item.ID.String())
	require.NoError(t, err)
	require.NotNil(t, got.ReceiptSerial)
	assert.Equal(t, int64(1), *got.ReceiptSerial)
}

func TestAssignSerial_ConcurrentTransactionsGetDistinctSerials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.student(t, "ADM-1", "Asha")

	const n = 12
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.fee(t, st.ID, "100", "2025-04-01").ID.String()
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		serials []int64
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := f.svc.AssignSerial(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			assert.True(t, res.Assigned)
			mu.Lock()
			serials = append(serials, res.ReceiptSerial)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	require.Len(t, serials, n)
	sort.Slice(serials, func(i, j int) bool { return serials[i] < serials[j] })
	for i := 1; i < len(serials); i++ {
		assert.Less(t, serials[i-1], serials[i])
	}
}

func TestAssignSerial_ConcurrentSameTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.student(t, "ADM-1", "Asha")
	item := f.fee(t, st.ID, "100", "2025-04-01")

	const n = 8
	results := make([]domain.AssignSerialResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.AssignSerial(ctx, item.ID.String())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assigned := 0
	for _, res := range results {
		assert.Equal(t, results[0].ReceiptSerial, res.ReceiptSerial)
		if res.Assigned {
			assigned++
		}
	}
	assert.Equal(t, 1, assigned)
}

func TestAssignSerial_HealsPastManualSerials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.student(t, "ADM-1", "Asha")
	loaded := f.fee(t, st.ID, "100", "2025-04-01")
	fresh := f.fee(t, st.ID, "100", "2025-04-02")

	require.NoError(t, f.db.Exec(`UPDATE fee_transactions SET receipt_serial = 41 WHERE id = ?`, loaded.ID).Error)

	res, err := f.svc.AssignSerial(ctx, fresh.ID.String())
	require.NoError(t, err)
	assert.True(t, res.Assigned)
	assert.Equal(t, int64(42), res.ReceiptSerial)
}

func TestHealSerials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.student(t, "ADM-1", "Asha")
	loaded := f.fee(t, st.ID, "100", "2025-04-01")
	require.NoError(t, f.db.Exec(`UPDATE fee_transactions SET receipt_serial = 7 WHERE id = ?`, loaded.ID).Error)

	require.NoError(t, f.svc.HealSerials(ctx))

	current, err := f.sequences.Current(ctx, domain.ReceiptSerialSequence)
	require.NoError(t, err)
	assert.Equal(t, int64(7), current)
}

func TestAssignSerial_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AssignSerial(context.Background(), "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.AssignSerial(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.student(t, "ADM-1", "Asha")
	item := f.fee(t, st.ID, "100", "2025-04-01")

	require.NoError(t, f.svc.Delete(ctx, item.ID.String()))

	_, err := f.svc.Get(ctx, item.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, item.ID.String()), domain.ErrNotFound)
}

func TestDelete_BlockedByLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.student(t, "ADM-1", "Asha")
	item := f.fee(t, st.ID, "100", "2025-04-01")
	res, err := f.svc.AssignSerial(ctx, item.ID.String())
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(
		`INSERT INTO receipt_ledger (id, fee_transaction_id, student_id, receipt_serial, payment_date, total_amount, items_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, '[]', ?)`,
		99, item.ID, st.ID, res.ReceiptSerial, time.Time(item.PaymentDate), "100", time.Now().UTC(),
	).Error)

	assert.ErrorIs(t, f.svc.Delete(ctx, item.ID.String()), domain.ErrLedgerExists)

	_, err = f.svc.Get(ctx, item.ID.String())
	assert.NoError(t, err)
}

func TestImport_SkipsBadRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.student(t, "ADM-1", "Asha")

	res, err := f.svc.Import(ctx, []domain.CreateFeeRequest{
		{StudentID: st.ID.String(), Amount: decimal.NewFromInt(500), PaymentDate: "2025-04-01", PaymentMode: "cash"},
		{StudentID: st.ID.String(), Amount: decimal.Zero, PaymentDate: "2025-04-01"},
		{StudentID: "999999", Amount: decimal.NewFromInt(10), PaymentDate: "2025-04-01"},
		{StudentID: st.ID.String(), Amount: decimal.NewFromInt(700), PaymentDate: "2025-04-02", PaymentMode: "cheque"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.SkippedRows, 2)
	assert.Equal(t, 1, res.SkippedRows[0].Index)
	assert.Equal(t, domain.ErrInvalidAmount.Error(), res.SkippedRows[0].Reason)
	assert.Equal(t, 2, res.SkippedRows[1].Index)
	assert.Equal(t, domain.ErrStudentNotFound.Error(), res.SkippedRows[1].Reason)

	items, err := f.svc.List(ctx, domain.ListFeeRequest{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestImport_Empty(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyImport)
}
