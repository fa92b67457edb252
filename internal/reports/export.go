package reports

import (
	"bytes"
	"fmt"

	"sales-analytics-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

var ordersHeaders = []string{
	"Order Number", "Check Number", "Date", "Time", "Product Code", "Product", "Variant",
	"Payment Type", "Payment Label", "Quantity", "Unit", "Price", "Discount %", "Discount",
	"Total", "Return", "Cashier", "Shift", "Customer", "Phone", "Notes", "Status",
}

// OrdersWorkbook renders ledger rows as a single-sheet xlsx.
func OrdersWorkbook(txs []models.Transaction) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Orders"
	if err := prepareSheet(f, sheet, ordersHeaders); err != nil {
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(sheet); err == nil {
		f.SetActiveSheet(idx)
	}

	for i, t := range txs {
		values := []interface{}{
			t.OrderNumber, t.CheckNumber, t.OperationDate, t.OperationTime, t.ProductCode,
			t.ProductName, t.ProductVariant, string(t.PaymentType), t.PaymentTypeRaw,
			t.Quantity.InexactFloat64(), t.Unit, t.PricePerUnit.InexactFloat64(),
			t.DiscountPercent.InexactFloat64(), t.DiscountAmount.InexactFloat64(),
			t.TotalAmount.InexactFloat64(), t.IsReturn, t.Cashier, t.Shift,
			t.CustomerName, t.CustomerPhone, t.Notes, t.Status,
		}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

// ReportWorkbook renders the rollups: one sheet per granularity plus products.
func ReportWorkbook(data ReportData) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	periodHeaders := []string{"Period"}
	for _, pt := range models.PaymentTypes {
		periodHeaders = append(periodHeaders, string(pt))
	}
	periodHeaders = append(periodHeaders, "Transactions", "Total")

	sheets := []struct {
		name    string
		periods []PeriodSummary
	}{
		{"Yearly", data.Yearly},
		{"Monthly", data.Monthly},
		{"Daily", data.Daily},
	}
	for _, s := range sheets {
		if err := prepareSheet(f, s.name, periodHeaders); err != nil {
			return nil, err
		}
		for i, p := range s.periods {
			values := []interface{}{p.PeriodKey}
			for _, pt := range models.PaymentTypes {
				values = append(values, p.ByPaymentType[pt].Sum.InexactFloat64())
			}
			values = append(values, p.Total.Count, p.Total.Sum.InexactFloat64())
			if err := writeRow(f, s.name, i+2, values); err != nil {
				return nil, err
			}
		}
	}

	productHeaders := []string{"Product", "Variant", "Code", "Sales", "Returns", "Revenue", "Return Amount", "Net Revenue", "Quantity"}
	if err := prepareSheet(f, "Products", productHeaders); err != nil {
		return nil, err
	}
	for i, p := range data.Products {
		values := []interface{}{
			p.ProductName, p.ProductVariant, p.ProductCode, p.Sales, p.Returns,
			p.Revenue.InexactFloat64(), p.ReturnAmount.InexactFloat64(),
			p.NetRevenue.InexactFloat64(), p.Quantity.InexactFloat64(),
		}
		if err := writeRow(f, "Products", i+2, values); err != nil {
			return nil, err
		}
	}

	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Yearly"); err == nil {
		f.SetActiveSheet(idx)
	}
	return f.WriteToBuffer()
}

func prepareSheet(f *excelize.File, sheet string, headers []string) error {
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("error creating sheet %s: %w", sheet, err)
	}
	f.SetActiveSheet(index)

	if err := writeRow(f, sheet, 1, toInterfaces(headers)); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, headerStyle)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
