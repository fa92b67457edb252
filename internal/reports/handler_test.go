package reports

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store/memory"
	"sales-analytics-backend/internal/store/storetest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	st := memory.NewStore()
	storetest.Insert(t, st,
		storetest.Tx("O1", "2024-03-15", models.PaymentCash, 10),
		storetest.Tx("O2", "2024-03-16", models.PaymentCard, 20),
		storetest.Tx("O3", "2025-01-01", models.PaymentReturn, 5),
	)
	svc := NewService(st)

	app := fiber.New()
	app.Get("/orders", ListOrdersHandler(svc))
	app.Get("/orders/stats", StatsHandler(svc))
	app.Get("/reports/data", DataHandler(svc))
	app.Get("/reports/details", DetailsHandler(svc))
	app.Get("/reports/export", ExportReportHandler(svc))
	app.Get("/export", ExportOrdersHandler(svc))
	return app
}

func getJSON(t *testing.T, app *fiber.App, url string, out interface{}) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == fiber.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestDetailsHandler(t *testing.T) {
	app := newTestApp(t)

	var rows []map[string]interface{}
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/reports/details?period=2024_03&type=ALL", &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-16", rows[0]["date"])
	assert.Equal(t, "Widget", rows[0]["product"])
	assert.Equal(t, "Widget", rows[0]["productName"])

	rows = nil
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/reports/details?period=all&type=RETURN", &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "O3", rows[0]["orderNumber"])

	rows = nil
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/reports/details", &rows))
	assert.Len(t, rows, 3)

	assert.Equal(t, fiber.StatusBadRequest, getJSON(t, app, "/reports/details?period=2024-03", nil))
	assert.Equal(t, fiber.StatusBadRequest, getJSON(t, app, "/reports/details?period=2024&type=GOLD", nil))
}

func TestListOrdersHandler(t *testing.T) {
	app := newTestApp(t)

	var rows []map[string]interface{}
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/orders?startDate=2024-03-16&paymentType=CARD", &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "O2", rows[0]["orderNumber"])

	assert.Equal(t, fiber.StatusBadRequest, getJSON(t, app, "/orders?startDate=16.03.2024", nil))
}

func TestStatsHandler(t *testing.T) {
	app := newTestApp(t)

	var stats map[string]interface{}
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/orders/stats", &stats))
	assert.EqualValues(t, 3, stats["total"])
	assert.Equal(t, "30", stats["totalRevenue"])
	assert.Equal(t, "5", stats["returns"])
}

func TestDataHandler(t *testing.T) {
	app := newTestApp(t)

	var data ReportData
	require.Equal(t, fiber.StatusOK, getJSON(t, app, "/reports/data", &data))
	assert.Len(t, data.Yearly, 2)
	assert.Len(t, data.Daily, 3)
}

func readWorkbook(t *testing.T, app *fiber.App, url string) *excelize.File {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), ".xlsx")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	return f
}

func TestExportOrdersHandler(t *testing.T) {
	f := readWorkbook(t, newTestApp(t), "/export?paymentType=ALL")
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Order Number", rows[0][0])
	assert.Equal(t, "O3", rows[1][0])
}

func TestExportReportHandler(t *testing.T) {
	f := readWorkbook(t, newTestApp(t), "/reports/export")
	defer f.Close()

	assert.Equal(t, []string{"Yearly", "Monthly", "Daily", "Products"}, f.GetSheetList())
	rows, err := f.GetRows("Yearly")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024", rows[1][0])
}
