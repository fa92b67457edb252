package files

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"sales-analytics-backend/internal/audit"
	"sales-analytics-backend/internal/auth"
	"sales-analytics-backend/internal/ingest"
	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"
	"sales-analytics-backend/internal/store/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var header = []string{"Order", "Code", "Name", "Variant", "Payment", "Qty", "Unit", "Price", "Disc %", "Disc", "Total", "Time", "Date", "Cashier"}

func saleRow(order, payment, total, date string) []string {
	return []string{order, "C1", "Widget", "Red", payment, "1", "pcs", total, "0", "0", total, "12:00", date, "cashier-1"}
}

func workbook(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range append([][]string{header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &vals))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func multipartBody(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

type testEnv struct {
	app   *fiber.App
	store *memory.Store
}

func newTestEnv(t *testing.T, limits ingest.Limits, maxFileSize int64) *testEnv {
	t.Helper()
	st := memory.NewStore()
	require.NoError(t, st.CreateUser(context.Background(), &models.User{
		Username: "admin", FullName: "Administrator", Role: models.RoleAdmin, PasswordHash: "x",
	}))
	p := ingest.NewPipeline(st, ingest.NewRowParser(ingest.Options{}), limits, zerolog.Nop())

	app := fiber.New()
	// X-Role stands in for the session token
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		c.Locals(auth.CtxUserRoleKey, models.UserRole(c.Get("X-Role", string(models.RoleAdmin))))
		return c.Next()
	})
	app.Post("/upload", UploadHandler(p, maxFileSize, audit.NewService(st, zerolog.Nop())))
	app.Get("/files", ListHandler(st))
	return &testEnv{app: app, store: st}
}

func (e *testEnv) upload(t *testing.T, name string, content []byte, role models.UserRole) (int, UploadResponse) {
	t.Helper()
	body, contentType := multipartBody(t, name, content)
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	req.Header.Set("X-Role", string(role))

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out UploadResponse
	if resp.Header.Get(fiber.HeaderContentType) == fiber.MIMEApplicationJSON {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestUploadHandler(t *testing.T) {
	env := newTestEnv(t, ingest.Limits{}, 0)
	content := workbook(t,
		saleRow("O1", "Cash", "20", "2024-03-15"),
		saleRow("O2", "QR", "15", "15.03.2024"),
		saleRow("O3", "Return", "-5", "2024-03-16"),
	)

	status, resp := env.upload(t, "sales.xlsx", content, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, resp.Success)
	assert.True(t, resp.Complete)
	assert.Equal(t, 3, resp.Stats.Total)
	assert.Equal(t, 3, resp.Stats.New)
	assert.Equal(t, "sales.xlsx", resp.File)

	status, resp = env.upload(t, "sales.xlsx", content, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0, resp.Stats.New)
	assert.Equal(t, 3, resp.Stats.Duplicate)

	n, err := env.store.CountTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	logs, err := env.store.ListAuditLogs(context.Background(), store.AuditFilter{Action: models.AuditActionUpload})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "sales.xlsx", logs[0].Description)
}

func TestUploadHandler_Rejections(t *testing.T) {
	env := newTestEnv(t, ingest.Limits{}, 0)
	good := workbook(t, saleRow("O1", "Cash", "20", "2024-03-15"))

	status, _ := env.upload(t, "sales.xlsx", good, models.RoleAccountant)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.upload(t, "sales.csv", good, models.RoleAdmin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.upload(t, "sales.xlsx", []byte("not a workbook"), models.RoleAdmin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.upload(t, "empty.xlsx", workbook(t), models.RoleAdmin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	small := newTestEnv(t, ingest.Limits{}, 100)
	status, _ = small.upload(t, "sales.xlsx", good, models.RoleAdmin)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, status)

	n, err := env.store.CountTransactions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUploadHandler_RowLimit(t *testing.T) {
	env := newTestEnv(t, ingest.Limits{MaxRows: 2}, 0)
	var rows [][]string
	for i := 1; i <= 4; i++ {
		rows = append(rows, saleRow(fmt.Sprintf("O%d", i), "Card", "10", "2024-03-15"))
	}

	status, resp := env.upload(t, "big.xlsx", workbook(t, rows...), models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, resp.Success)
	assert.False(t, resp.Complete)
	assert.Equal(t, 2, resp.Stats.New)
	assert.Contains(t, resp.Message, "row limit")
}

func TestListHandler(t *testing.T) {
	env := newTestEnv(t, ingest.Limits{}, 0)
	status, _ := env.upload(t, "sales.xlsx", workbook(t, saleRow("O1", "Cash", "20", "2024-03-15")), models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, status)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/files", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list []FileView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "sales.xlsx", list[0].FileName)
	assert.Equal(t, "Administrator", list[0].UploadedByName)
	assert.Equal(t, 1, list[0].RecordsNew)
	assert.True(t, list[0].Complete)
}
