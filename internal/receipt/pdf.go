package receipt

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Copies printed on every receipt page.
var Copies = []string{"Student Copy", "Office Copy"}

// Document is everything printed on a receipt.
type Document struct {
	SchoolName      string
	AddressLine     string
	Phone           string
	Session         string
	Serial          string
	PaymentDate     string
	StudentName     string
	AdmissionNumber string
	Class           string
	Items           []Line
	Total           string
	AmountInWords   string
}

type Line struct {
	Label  string
	Amount string
}

// Renderer turns a receipt document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

type MarotoRenderer struct{}

func NewRenderer() Renderer {
	return &MarotoRenderer{}
}

func (r *MarotoRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithLeftMargin(10).
		WithRightMargin(10).
		WithTopMargin(8).
		Build()

	m := maroto.New(cfg)
	for i, copyLabel := range Copies {
		if i > 0 {
			m.AddRow(12)
		}
		addCopy(m, doc, copyLabel)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate receipt pdf: %w", err)
	}
	return out.GetBytes(), nil
}

func addCopy(m core.Maroto, doc Document, copyLabel string) {
	// Header
	m.AddRow(9,
		text.NewCol(12, doc.SchoolName, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center}),
	)
	m.AddRow(5,
		text.NewCol(12, doc.AddressLine, props.Text{Size: 8, Style: fontstyle.Italic, Align: align.Center}),
	)
	if doc.Phone != "" {
		m.AddRow(5,
			text.NewCol(12, "Phone: "+doc.Phone, props.Text{Size: 8, Align: align.Center}),
		)
	}
	m.AddRow(7,
		text.NewCol(12, "Fee Receipt", props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Center, Top: 1}),
	)
	m.AddRow(5,
		text.NewCol(12, copyLabel, props.Text{Size: 8, Align: align.Center}),
	)

	// Meta
	m.AddRow(6,
		text.NewCol(6, "Serial No.: "+doc.Serial, props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(6, "Date: "+doc.PaymentDate, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(12, "Name of the Student: "+doc.StudentName, props.Text{Size: 9}),
	)
	m.AddRow(6,
		text.NewCol(6, "Class: "+dashIfEmpty(doc.Class), props.Text{Size: 9}),
		text.NewCol(6, "Session: "+dashIfEmpty(doc.Session), props.Text{Size: 9, Align: align.Right}),
	)
	if doc.AdmissionNumber != "" {
		m.AddRow(6,
			text.NewCol(12, "Admission No.: "+doc.AdmissionNumber, props.Text{Size: 9}),
		)
	}

	// Table Header
	m.AddRow(7,
		text.NewCol(1, "S.No.", props.Text{Size: 9, Style: fontstyle.Bold, Top: 1}),
		text.NewCol(8, "Particulars", props.Text{Size: 9, Style: fontstyle.Bold, Top: 1}),
		text.NewCol(3, "Amount (Rs.)", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Top: 1}),
	)

	// Items
	for i, item := range doc.Items {
		m.AddRow(6,
			text.NewCol(1, fmt.Sprintf("%d.", i+1), props.Text{Size: 9}),
			text.NewCol(8, item.Label, props.Text{Size: 9}),
			text.NewCol(3, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	// Footer Totals
	m.AddRow(7,
		text.NewCol(1, fmt.Sprintf("%d.", len(doc.Items)+1), props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(8, "Total Amount", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(3, doc.Total, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(8,
		text.NewCol(12, "Amount In Words: "+doc.AmountInWords, props.Text{Size: 9, Style: fontstyle.Italic, Top: 2}),
	)
	m.AddRow(14,
		col.New(8),
		text.NewCol(4, "Signature", props.Text{Size: 9, Align: align.Center, Top: 10}),
	)
}

func dashIfEmpty(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
