package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultProductName    = "unknown"
	DefaultProductVariant = "standard"
	DefaultUnit           = "pcs"
	DefaultStatus         = "completed"
)

// Transaction - one canonical sale or return row from an uploaded file.
// TotalAmount is always >= 0; the sign lives in IsReturn.
type Transaction struct {
	ID uint `gorm:"primaryKey" json:"id"`

	OrderNumber   string `gorm:"size:64;not null;default:'';uniqueIndex:idx_transactions_dedup,priority:1" json:"orderNumber"`
	CheckNumber   string `gorm:"size:64;not null;default:'';uniqueIndex:idx_transactions_dedup,priority:2" json:"checkNumber"`
	OperationDate string `gorm:"size:10;not null;uniqueIndex:idx_transactions_dedup,priority:3;index" json:"operationDate"` // YYYY-MM-DD

	ProductCode    string `gorm:"size:64" json:"productCode"`
	ProductName    string `gorm:"size:255;not null;index" json:"productName"`
	ProductVariant string `gorm:"size:255;not null" json:"productVariant"`

	PaymentTypeRaw string      `gorm:"size:100" json:"paymentTypeRaw"`
	PaymentType    PaymentType `gorm:"size:10;not null;index" json:"paymentType"`

	Quantity        decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	Unit            string          `gorm:"size:20" json:"unit"`
	PricePerUnit    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"pricePerUnit"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0" json:"discountPercent"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discountAmount"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"totalAmount"`
	IsReturn        bool            `gorm:"not null;default:false" json:"isReturn"`

	OperationTime string `gorm:"size:32" json:"operationTime"`
	Year          int    `gorm:"not null;index:idx_transactions_period,priority:1" json:"year"`
	Month         int    `gorm:"not null;index:idx_transactions_period,priority:2" json:"month"`
	Day           int    `gorm:"not null;index:idx_transactions_period,priority:3" json:"day"`

	// 13..19 - optional trailing columns
	Cashier       string `gorm:"size:100" json:"cashier"`
	Shift         string `gorm:"size:50" json:"shift"`
	CustomerName  string `gorm:"size:255" json:"customerName"`
	CustomerPhone string `gorm:"size:50" json:"customerPhone"`
	Notes         string `gorm:"size:500" json:"notes"`
	Status        string `gorm:"size:30" json:"status"`

	FileID     string    `gorm:"size:36;index" json:"fileId"`
	UploadedBy uint      `gorm:"index" json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// SetOperationDate keeps Year/Month/Day in step with OperationDate.
func (t *Transaction) SetOperationDate(d CalendarDate) {
	t.OperationDate = d.ISO()
	t.Year = d.Year
	t.Month = d.Month
	t.Day = d.Day
}

func (t *Transaction) Date() CalendarDate {
	return CalendarDate{Year: t.Year, Month: t.Month, Day: t.Day}
}

func (t *Transaction) DedupKey() DedupKey {
	return DedupKey{
		OrderNumber:   t.OrderNumber,
		CheckNumber:   t.CheckNumber,
		OperationDate: t.OperationDate,
	}
}

// DedupKey - (order number, check number, date) identity of a row.
// Exact match; amounts are not part of it.
type DedupKey struct {
	OrderNumber   string
	CheckNumber   string
	OperationDate string
}
