package receipt

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/bursar/internal/config"
	"github.com/smallbiznis/bursar/internal/observability/metrics"
	ledgerdomain "github.com/smallbiznis/bursar/internal/receiptledger/domain"
	studentdomain "github.com/smallbiznis/bursar/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Rendered is a receipt PDF ready to be served.
type Rendered struct {
	Filename string
	PDF      []byte
	Cached   bool
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Ledgers  ledgerdomain.Service
	Students studentdomain.Service
	Renderer Renderer
	Cache    Cache                       `optional:"true"`
	Policy   *config.ReceiptPolicyHolder `optional:"true"`
	Metrics  *metrics.Metrics            `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	ledgers  ledgerdomain.Service
	students studentdomain.Service
	renderer Renderer
	cache    Cache
	policy   *config.ReceiptPolicyHolder
	metrics  *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		log:      p.Log.Named("receipt.service"),
		ledgers:  p.Ledgers,
		students: p.Students,
		renderer: p.Renderer,
		cache:    p.Cache,
		policy:   p.Policy,
		metrics:  p.Metrics,
	}
}

// Render prints the frozen ledger of a fee transaction. The mutable fee
// transaction row is never read.
func (s *Service) Render(ctx context.Context, feeTransactionID string) (Rendered, error) {
	ledger, err := s.ledgers.GetLedger(ctx, feeTransactionID)
	if err != nil {
		return Rendered{}, err
	}

	policy := s.policy.Get()
	filename := receiptFilename(ledger.Entry.ReceiptSerial, ledger.Entry.StudentName, policy.SerialPadding)
	key := cacheKey(ledger.Entry.ID, policy)

	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("receipt cache read failed", zap.String("ledger_id", ledger.Entry.ID.String()), zap.Error(err))
		}
		if ok {
			s.metrics.RecordReceiptRender(true)
			return Rendered{Filename: filename, PDF: data, Cached: true}, nil
		}
	}

	doc := s.document(ctx, ledger, policy)
	data, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return Rendered{}, err
	}
	s.metrics.RecordReceiptRender(false)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			s.log.Warn("receipt cache write failed", zap.String("ledger_id", ledger.Entry.ID.String()), zap.Error(err))
		}
	}
	return Rendered{Filename: filename, PDF: data}, nil
}

func (s *Service) document(ctx context.Context, ledger ledgerdomain.Ledger, policy config.ReceiptPolicy) Document {
	doc := Document{
		SchoolName:    policy.SchoolName,
		AddressLine:   policy.AddressLine,
		Phone:         policy.Phone,
		Session:       policy.SessionLabel,
		Serial:        padSerial(ledger.Entry.ReceiptSerial, policy.SerialPadding),
		PaymentDate:   time.Time(ledger.Entry.PaymentDate).Format("02/01/2006"),
		StudentName:   ledger.Entry.StudentName,
		Items:         make([]Line, 0, len(ledger.Items)),
		Total:         ledger.Entry.TotalAmount.StringFixed(2),
		AmountInWords: AmountInWords(ledger.Entry.TotalAmount),
	}

	for _, item := range ledger.Items {
		line := Line{Label: item.Label}
		if !item.Amount.IsZero() {
			line.Amount = item.Amount.StringFixed(2)
		}
		doc.Items = append(doc.Items, line)
	}

	if s.students == nil {
		return doc
	}
	found, err := s.students.Lookup(ctx, []snowflake.ID{ledger.Entry.StudentID})
	if err != nil {
		s.log.Warn("student lookup failed", zap.String("student_id", ledger.Entry.StudentID.String()), zap.Error(err))
		return doc
	}
	if st, ok := found[ledger.Entry.StudentID]; ok {
		doc.AdmissionNumber = st.AdmissionNumber
		doc.Class = className(st.Grade, st.Section)
	}
	return doc
}

// receiptFilename reads like receipt-0007-asha-rao.pdf.
func receiptFilename(serial int64, studentName string, padding int) string {
	name := "receipt-" + padSerial(serial, padding)
	if s := slug.Make(studentName); s != "" {
		name += "-" + s
	}
	return name + ".pdf"
}

func padSerial(serial int64, width int) string {
	if width <= 0 {
		return fmt.Sprintf("%d", serial)
	}
	return fmt.Sprintf("%0*d", width, serial)
}

func className(grade, section string) string {
	switch {
	case grade == "":
		return section
	case section == "":
		return grade
	default:
		return grade + "-" + section
	}
}

// cacheKey changes whenever the printed letterhead changes.
func cacheKey(ledgerID snowflake.ID, policy config.ReceiptPolicy) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", policy.SchoolName, policy.AddressLine, policy.Phone, policy.SessionLabel, policy.SerialPadding)
	return fmt.Sprintf("%s:%08x", ledgerID.String(), h.Sum32())
}
