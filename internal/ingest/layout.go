package ingest

// Layout maps transaction fields to positional spreadsheet columns.
// A negative index means the column is not present in this layout.
type Layout struct {
	Version    string
	MinColumns int

	OrderNumber     int
	ProductCode     int
	ProductName     int
	ProductVariant  int
	PaymentTypeRaw  int
	Quantity        int
	Unit            int
	PricePerUnit    int
	DiscountPercent int
	DiscountAmount  int
	TotalAmount     int
	OperationTime   int
	OperationDate   int

	Cashier       int
	Shift         int
	CheckNumber   int
	CustomerName  int
	CustomerPhone int
	Notes         int
	Status        int
}

// LayoutV1 is the point-of-sale export format: 13 required columns and up to
// 7 optional trailing ones.
var LayoutV1 = Layout{
	Version:    "v1",
	MinColumns: 13,

	OrderNumber:     0,
	ProductCode:     1,
	ProductName:     2,
	ProductVariant:  3,
	PaymentTypeRaw:  4,
	Quantity:        5,
	Unit:            6,
	PricePerUnit:    7,
	DiscountPercent: 8,
	DiscountAmount:  9,
	TotalAmount:     10,
	OperationTime:   11,
	OperationDate:   12,

	Cashier:       13,
	Shift:         14,
	CheckNumber:   15,
	CustomerName:  16,
	CustomerPhone: 17,
	Notes:         18,
	Status:        19,
}

// cell returns the trimmed value at idx, or "" when the row is too short.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return trimCell(row[idx])
}
