// Package storetest holds the behaviour every store.Store backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Run closes it.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"AppendAndExists", testAppendAndExists},
		{"AppendConflict", testAppendConflict},
		{"ListFilters", testListFilters},
		{"AggregatesHierarchyConsistent", testAggregatesHierarchyConsistent},
		{"ProductAggregates", testProductAggregates},
		{"RebuildMatchesIncremental", testRebuildMatchesIncremental},
		{"ClearKeepsUsers", testClearKeepsUsers},
		{"RollbackOnError", testRollbackOnError},
		{"ConcurrentWriters", testConcurrentWriters},
		{"Users", testUsers},
		{"FilesAndInfo", testFilesAndInfo},
		{"AuditLogs", testAuditLogs},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newStore(t)
			t.Cleanup(func() { _ = st.Close() })
			tc.fn(t, st)
		})
	}
}

// Tx builds a valid transaction for tests.
func Tx(order string, date string, pt models.PaymentType, amount int64) *models.Transaction {
	d, err := models.ParseISODate(date)
	if err != nil {
		panic(err)
	}
	t := &models.Transaction{
		OrderNumber:    order,
		ProductName:    "Widget",
		ProductVariant: models.DefaultProductVariant,
		PaymentType:    pt,
		Quantity:       decimal.NewFromInt(1),
		Unit:           models.DefaultUnit,
		TotalAmount:    decimal.NewFromInt(amount),
		IsReturn:       pt == models.PaymentReturn,
		Status:         models.DefaultStatus,
		UploadedAt:     time.Now().UTC(),
	}
	t.SetOperationDate(d)
	return t
}

// Insert appends and applies txs the way the ingestion pipeline does.
func Insert(t *testing.T, st store.Store, txs ...*models.Transaction) {
	t.Helper()
	ctx := context.Background()
	for _, tx := range txs {
		err := st.WithinWriteLock(ctx, func(w store.Writer) error {
			if err := w.AppendTransaction(ctx, tx); err != nil {
				return err
			}
			return w.ApplyTransaction(ctx, tx)
		})
		require.NoError(t, err)
	}
}

// Dataset spreads transactions over two years, several months and days and
// every payment type.
func Dataset() []*models.Transaction {
	var out []*models.Transaction
	dates := []string{
		"2023-12-31", "2024-01-01", "2024-01-15", "2024-01-15",
		"2024-02-29", "2024-03-01", "2024-03-15", "2024-11-30",
	}
	for i, date := range dates {
		for j, pt := range models.PaymentTypes {
			out = append(out, Tx(fmt.Sprintf("O%d-%d", i, j), date, pt, int64(10*(i+1)+j)))
		}
	}
	return out
}

func testAppendAndExists(t *testing.T, st store.Store) {
	ctx := context.Background()
	tx := Tx("O1", "2024-03-15", models.PaymentCash, 20)
	Insert(t, st, tx)
	assert.NotZero(t, tx.ID)

	err := st.WithinWriteLock(ctx, func(w store.Writer) error {
		ok, err := w.TransactionExists(ctx, tx.DedupKey())
		require.NoError(t, err)
		assert.True(t, ok)

		other := tx.DedupKey()
		other.CheckNumber = "X"
		ok, err = w.TransactionExists(ctx, other)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	count, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testAppendConflict(t *testing.T, st store.Store) {
	ctx := context.Background()
	Insert(t, st, Tx("O1", "2024-03-15", models.PaymentCash, 20))

	err := st.WithinWriteLock(ctx, func(w store.Writer) error {
		return w.AppendTransaction(ctx, Tx("O1", "2024-03-15", models.PaymentCard, 99))
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	count, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testListFilters(t *testing.T, st store.Store) {
	ctx := context.Background()
	a := Tx("O1", "2024-01-10", models.PaymentCash, 10)
	b := Tx("O2", "2024-02-10", models.PaymentCard, 20)
	b.ProductName = "Blue Gadget"
	c := Tx("O3", "2024-03-10", models.PaymentCash, 30)
	Insert(t, st, a, b, c)

	cases := []struct {
		name   string
		filter store.TransactionFilter
		want   []string
	}{
		{"all newest first", store.TransactionFilter{}, []string{"O3", "O2", "O1"}},
		{"date range", store.TransactionFilter{StartDate: "2024-01-10", EndDate: "2024-02-10"}, []string{"O2", "O1"}},
		{"payment type", store.TransactionFilter{PaymentType: models.PaymentCash}, []string{"O3", "O1"}},
		{"product contains", store.TransactionFilter{ProductContains: "gadget"}, []string{"O2"}},
		{"month", store.TransactionFilter{Year: 2024, Month: 3}, []string{"O3"}},
		{"day", store.TransactionFilter{Year: 2024, Month: 1, Day: 10}, []string{"O1"}},
		{"no match", store.TransactionFilter{Year: 2020}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txs, err := st.ListTransactions(ctx, tc.filter)
			require.NoError(t, err)
			got := make([]string, 0, len(txs))
			for _, tx := range txs {
				got = append(got, tx.OrderNumber)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

// sumBuckets adds every bucket of granularity g whose key starts with prefix.
func sumBuckets(t *testing.T, st store.Store, g models.Granularity, prefix string) models.BucketValue {
	t.Helper()
	buckets, err := st.ListBuckets(context.Background(), g)
	require.NoError(t, err)
	var out models.BucketValue
	for _, b := range buckets {
		if len(b.PeriodKey) >= len(prefix) && b.PeriodKey[:len(prefix)] == prefix {
			out.Count += b.Count
			out.Sum = out.Sum.Add(b.Sum)
		}
	}
	return out
}

func testAggregatesHierarchyConsistent(t *testing.T, st store.Store) {
	ctx := context.Background()
	Insert(t, st, Dataset()...)

	years, err := st.ListBuckets(ctx, models.GranularityYear)
	require.NoError(t, err)
	require.NotEmpty(t, years)

	seenYears := map[string]bool{}
	for _, y := range years {
		seenYears[y.PeriodKey] = true
	}
	for year := range seenYears {
		bucket, err := st.GetBucket(ctx, models.GranularityYear, year)
		require.NoError(t, err)
		yearTotal := bucket.Total()
		months := sumBuckets(t, st, models.GranularityMonth, year+"-")
		assert.Equal(t, yearTotal.Count, months.Count, "year %s", year)
		assert.True(t, yearTotal.Sum.Equal(months.Sum), "year %s: %s != %s", year, yearTotal.Sum, months.Sum)
	}

	monthBuckets, err := st.ListBuckets(ctx, models.GranularityMonth)
	require.NoError(t, err)
	for _, m := range monthBuckets {
		bucket, err := st.GetBucket(ctx, models.GranularityMonth, m.PeriodKey)
		require.NoError(t, err)
		monthTotal := bucket.Total()
		days := sumBuckets(t, st, models.GranularityDay, m.PeriodKey+"-")
		assert.Equal(t, monthTotal.Count, days.Count, "month %s", m.PeriodKey)
		assert.True(t, monthTotal.Sum.Equal(days.Sum), "month %s", m.PeriodKey)
	}

	day, err := st.GetBucket(ctx, models.GranularityDay, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, int64(2), day[models.PaymentCash].Count)

	missing, err := st.GetBucket(ctx, models.GranularityDay, "1999-01-01")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func testProductAggregates(t *testing.T, st store.Store) {
	sale := Tx("O1", "2024-03-15", models.PaymentCash, 20)
	sale.ProductCode = "W-1"
	sale.Quantity = decimal.NewFromInt(2)
	sale2 := Tx("O2", "2024-03-16", models.PaymentCard, 30)
	ret := Tx("O3", "2024-03-17", models.PaymentReturn, 5)
	other := Tx("O4", "2024-03-17", models.PaymentQR, 7)
	other.ProductVariant = "Red"
	Insert(t, st, sale, sale2, ret, other)

	products, err := st.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	var std models.ProductAggregate
	for _, p := range products {
		if p.ProductVariant == models.DefaultProductVariant {
			std = p
		}
	}
	assert.Equal(t, "Widget", std.ProductName)
	assert.Equal(t, "W-1", std.ProductCode)
	assert.Equal(t, int64(2), std.Sales)
	assert.Equal(t, int64(1), std.Returns)
	assert.True(t, std.Revenue.Equal(decimal.NewFromInt(50)))
	assert.True(t, std.ReturnAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, std.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, std.NetRevenue().Equal(decimal.NewFromInt(45)))
}

func snapshot(t *testing.T, st store.Store) (map[models.Granularity][]models.AggregateBucket, []models.ProductAggregate) {
	t.Helper()
	ctx := context.Background()
	buckets := map[models.Granularity][]models.AggregateBucket{}
	for _, g := range models.Granularities {
		list, err := st.ListBuckets(ctx, g)
		require.NoError(t, err)
		for i := range list {
			list[i].ID = 0
			list[i].Sum = list[i].Sum.Round(2)
		}
		buckets[g] = list
	}
	products, err := st.ListProducts(ctx)
	require.NoError(t, err)
	for i := range products {
		products[i].ID = 0
		products[i].Revenue = products[i].Revenue.Round(2)
		products[i].ReturnAmount = products[i].ReturnAmount.Round(2)
		products[i].Quantity = products[i].Quantity.Round(3)
	}
	return buckets, products
}

func testRebuildMatchesIncremental(t *testing.T, st store.Store) {
	Insert(t, st, Dataset()...)
	wantBuckets, wantProducts := snapshot(t, st)

	require.NoError(t, st.RebuildAggregates(context.Background()))
	gotBuckets, gotProducts := snapshot(t, st)

	for _, g := range models.Granularities {
		require.Len(t, gotBuckets[g], len(wantBuckets[g]), "granularity %s", g)
		for i := range wantBuckets[g] {
			assert.Equal(t, wantBuckets[g][i].PeriodKey, gotBuckets[g][i].PeriodKey)
			assert.Equal(t, wantBuckets[g][i].PaymentType, gotBuckets[g][i].PaymentType)
			assert.Equal(t, wantBuckets[g][i].Count, gotBuckets[g][i].Count)
			assert.True(t, wantBuckets[g][i].Sum.Equal(gotBuckets[g][i].Sum))
		}
	}
	require.Len(t, gotProducts, len(wantProducts))
	for i := range wantProducts {
		assert.Equal(t, wantProducts[i].Sales, gotProducts[i].Sales)
		assert.Equal(t, wantProducts[i].Returns, gotProducts[i].Returns)
		assert.True(t, wantProducts[i].Revenue.Equal(gotProducts[i].Revenue))
	}
}

func testClearKeepsUsers(t *testing.T, st store.Store) {
	ctx := context.Background()
	user := &models.User{Username: "admin", PasswordHash: "x", FullName: "Admin", Role: models.RoleAdmin}
	require.NoError(t, st.CreateUser(ctx, user))
	Insert(t, st, Dataset()...)
	require.NoError(t, st.CreateUploadedFile(ctx, &models.UploadedFile{ID: "f-1", FileName: "a.xlsx", UploadDate: time.Now()}))
	require.NoError(t, st.CreateAuditLog(ctx, &models.AuditLog{UserID: user.ID, Action: models.AuditActionUpload, EntityType: "uploaded_file", EntityID: "f-1"}))

	require.NoError(t, st.Clear(ctx))

	count, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	for _, g := range models.Granularities {
		buckets, err := st.ListBuckets(ctx, g)
		require.NoError(t, err)
		assert.Empty(t, buckets)
	}
	products, err := st.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	files, err := st.ListUploadedFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	got, err := st.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	logs, err := st.ListAuditLogs(ctx, store.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	// The old keys are free again.
	Insert(t, st, Dataset()[0])
}

func testRollbackOnError(t *testing.T, st store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	tx := Tx("O1", "2024-03-15", models.PaymentCash, 20)

	err := st.WithinWriteLock(ctx, func(w store.Writer) error {
		if err := w.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The memory backend has no rollback; only transactional backends
	// must have discarded the append.
	if info, _ := st.Info(ctx); info.Backend != "memory" {
		count, err := st.CountTransactions(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	}
}

func testConcurrentWriters(t *testing.T, st store.Store) {
	ctx := context.Background()
	const workers = 6
	const keys = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < keys; k++ {
				tx := Tx(fmt.Sprintf("O%d", k), "2024-05-01", models.PaymentCash, 1)
				var added bool
				err := st.WithinWriteLock(ctx, func(w store.Writer) error {
					exists, err := w.TransactionExists(ctx, tx.DedupKey())
					if err != nil || exists {
						return err
					}
					if err := w.AppendTransaction(ctx, tx); err != nil {
						return err
					}
					added = true
					return w.ApplyTransaction(ctx, tx)
				})
				assert.NoError(t, err)
				if added {
					mu.Lock()
					inserted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, keys, inserted)
	count, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(keys), count)

	bucket, err := st.GetBucket(ctx, models.GranularityYear, "2024")
	require.NoError(t, err)
	assert.Equal(t, int64(keys), bucket[models.PaymentCash].Count)
}

func testUsers(t *testing.T, st store.Store) {
	ctx := context.Background()
	u := &models.User{Username: "acc", PasswordHash: "h", FullName: "Accountant", Role: models.RoleAccountant}
	require.NoError(t, st.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)

	err := st.CreateUser(ctx, &models.User{Username: "acc", PasswordHash: "h", FullName: "Again", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, store.ErrConflict)

	byID, err := st.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "acc", byID.Username)
	assert.Nil(t, byID.LastLoginAt)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, st.TouchLastLogin(ctx, u.ID, at))
	byName, err := st.GetUserByUsername(ctx, "acc")
	require.NoError(t, err)
	require.NotNil(t, byName.LastLoginAt)
	assert.True(t, at.Equal(*byName.LastLoginAt))

	_, err = st.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, st.TouchLastLogin(ctx, 9999, at), store.ErrNotFound)
}

func testFilesAndInfo(t *testing.T, st store.Store) {
	ctx := context.Background()
	older := &models.UploadedFile{ID: "f-1", FileName: "old.xlsx", Size: 1, UploadDate: time.Now().Add(-time.Hour)}
	newer := &models.UploadedFile{ID: "f-2", FileName: "new.xlsx", Size: 2, UploadDate: time.Now(), RecordsNew: 3, Complete: true}
	require.NoError(t, st.CreateUploadedFile(ctx, older))
	require.NoError(t, st.CreateUploadedFile(ctx, newer))
	Insert(t, st, Tx("O1", "2024-03-15", models.PaymentCash, 20))

	files, err := st.ListUploadedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "f-2", files[0].ID)
	assert.Equal(t, 3, files[0].RecordsNew)
	assert.True(t, files[0].Complete)
	assert.Equal(t, "f-1", files[1].ID)
	assert.False(t, files[1].Complete, "a stopped-early upload must stay incomplete")
	assert.False(t, older.Complete)

	info, err := st.Info(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, info.Backend)
	assert.Equal(t, int64(1), info.TotalRecords)
	assert.Equal(t, int64(2), info.TotalFiles)
	assert.NotNil(t, info.LastUpdate)
}

func testAuditLogs(t *testing.T, st store.Store) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	entries := []*models.AuditLog{
		{CreatedAt: base, UserID: 1, UserName: "admin", Action: models.AuditActionLogin, EntityType: "user", EntityID: "1"},
		{CreatedAt: base.Add(time.Minute), UserID: 1, UserName: "admin", Action: models.AuditActionUpload, EntityType: "uploaded_file", EntityID: "f-1", Details: `{"new":3}`},
		{CreatedAt: base.Add(2 * time.Minute), UserID: 2, UserName: "acc", Action: models.AuditActionLogin, EntityType: "user", EntityID: "2"},
		{CreatedAt: base.Add(3 * time.Minute), UserID: 1, UserName: "admin", Action: models.AuditActionClear, EntityType: "database"},
	}
	for _, e := range entries {
		require.NoError(t, st.CreateAuditLog(ctx, e))
		assert.NotZero(t, e.ID)
	}

	all, err := st.ListAuditLogs(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, models.AuditActionClear, all[0].Action)
	assert.Equal(t, models.AuditActionLogin, all[3].Action)

	logins, err := st.ListAuditLogs(ctx, store.AuditFilter{Action: models.AuditActionLogin})
	require.NoError(t, err)
	require.Len(t, logins, 2)
	assert.Equal(t, uint(2), logins[0].UserID)

	byUser, err := st.ListAuditLogs(ctx, store.AuditFilter{UserID: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, models.AuditActionClear, byUser[0].Action)
	assert.Equal(t, `{"new":3}`, byUser[1].Details)

	files, err := st.ListAuditLogs(ctx, store.AuditFilter{EntityType: "uploaded_file"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "f-1", files[0].EntityID)
}
