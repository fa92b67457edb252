package models

import (
	"github.com/shopspring/decimal"
)

type Granularity string

const (
	GranularityYear  Granularity = "year"
	GranularityMonth Granularity = "month"
	GranularityDay   Granularity = "day"
)

var Granularities = []Granularity{GranularityYear, GranularityMonth, GranularityDay}

// PeriodKey returns the aggregate bucket key of d at granularity g:
// YYYY, YYYY-MM or YYYY-MM-DD.
func (g Granularity) PeriodKey(d CalendarDate) string {
	switch g {
	case GranularityYear:
		return d.YearKey()
	case GranularityMonth:
		return d.MonthKey()
	default:
		return d.DayKey()
	}
}

// BucketValue - count and sum of one payment type inside one bucket.
type BucketValue struct {
	Count int64           `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

func (v BucketValue) Add(amount decimal.Decimal) BucketValue {
	return BucketValue{Count: v.Count + 1, Sum: v.Sum.Add(amount)}
}

// PaymentTypeMap is the per-payment-type content of one bucket.
type PaymentTypeMap map[PaymentType]BucketValue

// Total sums the map across payment types.
func (m PaymentTypeMap) Total() BucketValue {
	var out BucketValue
	for _, v := range m {
		out.Count += v.Count
		out.Sum = out.Sum.Add(v.Sum)
	}
	return out
}

// Merge adds other into m.
func (m PaymentTypeMap) Merge(other PaymentTypeMap) {
	for pt, v := range other {
		cur := m[pt]
		m[pt] = BucketValue{Count: cur.Count + v.Count, Sum: cur.Sum.Add(v.Sum)}
	}
}

// AggregateBucket - one (granularity, period, payment type) row.
// Derived data: always rebuildable from the transactions table.
type AggregateBucket struct {
	ID          uint            `gorm:"primaryKey" json:"-"`
	Granularity Granularity     `gorm:"size:5;not null;uniqueIndex:idx_bucket_key,priority:1" json:"granularity"`
	PeriodKey   string          `gorm:"size:10;not null;uniqueIndex:idx_bucket_key,priority:2" json:"periodKey"`
	PaymentType PaymentType     `gorm:"size:10;not null;uniqueIndex:idx_bucket_key,priority:3" json:"paymentType"`
	Count       int64           `gorm:"not null;default:0" json:"count"`
	Sum         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"sum"`
}

// ProductAggregate - running totals per (product, variant).
// Returns never touch Sales/Revenue/Quantity.
type ProductAggregate struct {
	ID             uint            `gorm:"primaryKey" json:"-"`
	ProductName    string          `gorm:"size:255;not null;uniqueIndex:idx_product_key,priority:1" json:"productName"`
	ProductVariant string          `gorm:"size:255;not null;uniqueIndex:idx_product_key,priority:2" json:"productVariant"`
	ProductCode    string          `gorm:"size:64" json:"productCode"`
	Sales          int64           `gorm:"not null;default:0" json:"sales"`
	Returns        int64           `gorm:"not null;default:0" json:"returns"`
	Revenue        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"revenue"`
	ReturnAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"returnAmount"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0" json:"quantity"`
}

func (p ProductAggregate) NetRevenue() decimal.Decimal {
	return p.Revenue.Sub(p.ReturnAmount)
}

// Apply folds one accepted transaction into the product totals.
func (p *ProductAggregate) Apply(t *Transaction) {
	if p.ProductCode == "" {
		p.ProductCode = t.ProductCode
	}
	if t.IsReturn {
		p.Returns++
		p.ReturnAmount = p.ReturnAmount.Add(t.TotalAmount)
		return
	}
	p.Sales++
	p.Revenue = p.Revenue.Add(t.TotalAmount)
	p.Quantity = p.Quantity.Add(t.Quantity)
}

// ProductKey identifies a ProductAggregate.
type ProductKey struct {
	Name    string
	Variant string
}

func (t *Transaction) ProductKey() ProductKey {
	return ProductKey{Name: t.ProductName, Variant: t.ProductVariant}
}
