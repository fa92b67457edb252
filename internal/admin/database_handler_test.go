package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"sales-analytics-backend/internal/audit"
	"sales-analytics-backend/internal/auth"
	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"
	"sales-analytics-backend/internal/store/memory"
	"sales-analytics-backend/internal/store/storetest"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()
	st := memory.NewStore()
	storetest.Insert(t, st, storetest.Dataset()...)
	trail := audit.NewService(st, zerolog.Nop())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
		c.Locals(auth.CtxUsernameKey, "admin")
		return c.Next()
	})
	app.Get("/info", InfoHandler(st, nil))
	app.Delete("/clear", ClearHandler(st, trail))
	app.Post("/rebuild", RebuildAggregatesHandler(st, trail))
	return app, st
}

func call(t *testing.T, app *fiber.App, method, url string, out interface{}) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, url, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestInfoHandler(t *testing.T) {
	app, _ := newTestApp(t)

	var info store.Info
	require.Equal(t, fiber.StatusOK, call(t, app, "GET", "/info", &info))
	assert.Equal(t, "memory", info.Backend)
	assert.Equal(t, int64(len(storetest.Dataset())), info.TotalRecords)
	assert.NotNil(t, info.LastUpdate)
}

func TestClearHandler(t *testing.T) {
	app, st := newTestApp(t)
	ctx := context.Background()

	var body map[string]interface{}
	require.Equal(t, fiber.StatusOK, call(t, app, "DELETE", "/clear", &body))
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, len(storetest.Dataset()), body["deletedRecords"])

	n, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	buckets, err := st.ListBuckets(ctx, models.GranularityYear)
	require.NoError(t, err)
	assert.Empty(t, buckets)

	logs, err := st.ListAuditLogs(ctx, store.AuditFilter{Action: models.AuditActionClear})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "admin", logs[0].UserName)
}

func TestRebuildAggregatesHandler(t *testing.T) {
	app, st := newTestApp(t)
	ctx := context.Background()

	before, err := st.ListBuckets(ctx, models.GranularityDay)
	require.NoError(t, err)

	var body map[string]interface{}
	require.Equal(t, fiber.StatusOK, call(t, app, "POST", "/rebuild", &body))
	assert.Equal(t, true, body["success"])

	after, err := st.ListBuckets(ctx, models.GranularityDay)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].PeriodKey, after[i].PeriodKey)
		assert.Equal(t, before[i].Count, after[i].Count)
		assert.True(t, before[i].Sum.Equal(after[i].Sum))
	}

	logs, err := st.ListAuditLogs(ctx, store.AuditFilter{Action: models.AuditActionRebuild})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

type fixedSchedule struct {
	last time.Time
	err  error
	next time.Time
}

func (s fixedSchedule) LastRun() (time.Time, error) { return s.last, s.err }
func (s fixedSchedule) Next() time.Time              { return s.next }

func TestInfoHandler_RebuildStatus(t *testing.T) {
	st := memory.NewStore()
	last := time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)
	next := last.Add(24 * time.Hour)

	app := fiber.New()
	app.Get("/info", InfoHandler(st, fixedSchedule{last: last, err: errors.New("timeout"), next: next}))
	app.Get("/info-never", InfoHandler(st, fixedSchedule{}))

	var resp InfoResponse
	require.Equal(t, fiber.StatusOK, call(t, app, "GET", "/info", &resp))
	assert.Equal(t, "memory", resp.Backend)
	require.NotNil(t, resp.AggregateRebuild)
	require.NotNil(t, resp.AggregateRebuild.LastRun)
	assert.True(t, last.Equal(*resp.AggregateRebuild.LastRun))
	assert.Equal(t, "timeout", resp.AggregateRebuild.LastError)
	require.NotNil(t, resp.AggregateRebuild.NextRun)
	assert.True(t, next.Equal(*resp.AggregateRebuild.NextRun))

	resp = InfoResponse{}
	require.Equal(t, fiber.StatusOK, call(t, app, "GET", "/info-never", &resp))
	require.NotNil(t, resp.AggregateRebuild)
	assert.Nil(t, resp.AggregateRebuild.LastRun)
	assert.Nil(t, resp.AggregateRebuild.NextRun)
	assert.Empty(t, resp.AggregateRebuild.LastError)
}
