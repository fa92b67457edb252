package ingest

import (
	"fmt"
	"strings"
	"time"

	"sales-analytics-backend/internal/models"

	"github.com/shopspring/decimal"
)

type Options struct {
	// StrictDates turns an unrecognized date into a row error instead of
	// filing the row under today's date.
	StrictDates bool
}

// RowParser turns raw spreadsheet rows into transactions.
type RowParser struct {
	Layout  Layout
	Options Options
	Now     func() time.Time
}

func NewRowParser(opts Options) *RowParser {
	return &RowParser{Layout: LayoutV1, Options: opts, Now: time.Now}
}

// Parse builds a transaction from row. rowIndex is only used in errors.
// Short rows return ErrShortRow; anything else that goes wrong, panics
// included, comes back as a *RowError.
func (p *RowParser) Parse(row []string, rowIndex int) (tx *models.Transaction, err error) {
	if len(row) < p.Layout.MinColumns {
		return nil, ErrShortRow
	}

	defer func() {
		if r := recover(); r != nil {
			tx = nil
			err = &RowError{Row: rowIndex, Reason: fmt.Sprintf("unexpected failure: %v", r)}
		}
	}()

	l := p.Layout
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	rawDate := cell(row, l.OperationDate)
	date, dateOK := ParseDate(rawDate, now())
	if !dateOK && p.Options.StrictDates {
		return nil, &RowError{Row: rowIndex, Reason: fmt.Sprintf("unrecognized date %q", rawDate)}
	}

	signed := amountOr(cell(row, l.TotalAmount), decimal.Zero)
	label := cell(row, l.PaymentTypeRaw)
	isReturn := signed.IsNegative() || IsReturnLabel(label)

	paymentType := Classify(label, signed)
	if isReturn {
		paymentType = models.PaymentReturn
	}

	tx = &models.Transaction{
		OrderNumber:     cell(row, l.OrderNumber),
		CheckNumber:     cell(row, l.CheckNumber),
		ProductCode:     cell(row, l.ProductCode),
		ProductName:     orDefault(cell(row, l.ProductName), models.DefaultProductName),
		ProductVariant:  orDefault(cell(row, l.ProductVariant), models.DefaultProductVariant),
		PaymentTypeRaw:  label,
		PaymentType:     paymentType,
		Quantity:        amountOr(cell(row, l.Quantity), decimal.NewFromInt(1)).Abs(),
		Unit:            orDefault(cell(row, l.Unit), models.DefaultUnit),
		PricePerUnit:    amountOr(cell(row, l.PricePerUnit), decimal.Zero),
		DiscountPercent: amountOr(cell(row, l.DiscountPercent), decimal.Zero),
		DiscountAmount:  amountOr(cell(row, l.DiscountAmount), decimal.Zero),
		TotalAmount:     signed.Abs(),
		IsReturn:        isReturn,
		OperationTime:   cell(row, l.OperationTime),
		Cashier:         cell(row, l.Cashier),
		Shift:           cell(row, l.Shift),
		CustomerName:    cell(row, l.CustomerName),
		CustomerPhone:   cell(row, l.CustomerPhone),
		Notes:           cell(row, l.Notes),
		Status:          orDefault(cell(row, l.Status), models.DefaultStatus),
	}
	tx.SetOperationDate(date)
	return tx, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func trimCell(s string) string {
	return strings.TrimSpace(s)
}
