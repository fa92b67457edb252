package reports

import (
	"context"
	"testing"

	"sales-analytics-backend/internal/ingest"
	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"
	"sales-analytics-backend/internal/store/memory"
	"sales-analytics-backend/internal/store/storetest"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriodKey(t *testing.T) {
	cases := []struct {
		in   string
		want PeriodKey
		g    models.Granularity
	}{
		{"2024", PeriodKey{Year: 2024}, models.GranularityYear},
		{"2024_03", PeriodKey{Year: 2024, Month: 3}, models.GranularityMonth},
		{"2024_3", PeriodKey{Year: 2024, Month: 3}, models.GranularityMonth},
		{"2024_03_15", PeriodKey{Year: 2024, Month: 3, Day: 15}, models.GranularityDay},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePeriodKey(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.g, got.Granularity())
		})
	}

	for _, bad := range []string{"", "2024-03", "2024_13", "2024_01_32", "2024_1_2_3", "abcd", "2024_"} {
		_, err := ParsePeriodKey(bad)
		assert.ErrorIs(t, err, ErrInvalidPeriodKey, bad)
	}
}

func TestDetailsKey(t *testing.T) {
	assert.Equal(t, "2024", DetailsKey("2024"))
	assert.Equal(t, "2024_03", DetailsKey("2024-03"))
	assert.Equal(t, "2024_03_15", DetailsKey("2024-03-15"))

	k, err := ParsePeriodKey(DetailsKey(models.GranularityDay.PeriodKey(models.CalendarDate{Year: 2024, Month: 3, Day: 5})))
	require.NoError(t, err)
	assert.Equal(t, PeriodKey{Year: 2024, Month: 3, Day: 5}, k)
}

func TestParsePaymentFilter(t *testing.T) {
	pt, err := ParsePaymentFilter("ALL")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentType(""), pt)

	pt, err = ParsePaymentFilter("")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentType(""), pt)

	pt, err = ParsePaymentFilter("qr")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentQR, pt)

	_, err = ParsePaymentFilter("BARTER")
	assert.ErrorIs(t, err, ErrInvalidPaymentType)
}

func ingestRows(t *testing.T, st store.Store, rows ...[]string) {
	t.Helper()
	header := []string{"order", "code", "name", "variant", "payment", "qty", "unit", "price", "disc%", "disc", "total", "time", "date"}
	p := ingest.NewPipeline(st, ingest.NewRowParser(ingest.Options{}), ingest.Limits{}, zerolog.Nop())
	_, err := p.Ingest(context.Background(), append([][]string{header}, rows...), ingest.FileMeta{Name: "t.xlsx"}, ingest.Uploader{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
}

func scenarioRow() []string {
	return []string{"O1", "C1", "Widget", "Red", "Cash", "2", "pcs", "10", "0", "0", "20", "12:00", "2024-03-15", "K1"}
}

func TestGetPeriodDetails_YearAfterSingleSale(t *testing.T) {
	st := memory.NewStore()
	ingestRows(t, st, scenarioRow())
	svc := NewService(st)

	txs, err := svc.GetPeriodDetails(context.Background(), "2024", "ALL")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "O1", txs[0].OrderNumber)
	assert.Equal(t, 3, txs[0].Month)
}

func TestGetPeriodDetails_Filters(t *testing.T) {
	st := memory.NewStore()
	storetest.Insert(t, st,
		storetest.Tx("O1", "2024-03-15", models.PaymentCash, 10),
		storetest.Tx("O2", "2024-03-15", models.PaymentCard, 20),
		storetest.Tx("O3", "2024-03-16", models.PaymentCash, 30),
		storetest.Tx("O4", "2024-04-01", models.PaymentCash, 40),
		storetest.Tx("O5", "2023-03-15", models.PaymentCash, 50),
	)
	svc := NewService(st)
	ctx := context.Background()

	cases := []struct {
		period, pt string
		want       int
	}{
		{"2024", "ALL", 4},
		{"2024_03", "ALL", 3},
		{"2024_3", "CASH", 2},
		{"2024_03_15", "ALL", 2},
		{"2024_03_15", "CARD", 1},
		{"2023", "", 1},
		{"2022", "ALL", 0},
	}
	for _, tc := range cases {
		txs, err := svc.GetPeriodDetails(ctx, tc.period, tc.pt)
		require.NoError(t, err)
		assert.Len(t, txs, tc.want, "%s/%s", tc.period, tc.pt)
	}

	_, err := svc.GetPeriodDetails(ctx, "2024-03", "ALL")
	assert.ErrorIs(t, err, ErrInvalidPeriodKey)
	_, err = svc.GetPeriodDetails(ctx, "2024", "GOLD")
	assert.ErrorIs(t, err, ErrInvalidPaymentType)
}

func TestGetStatistics(t *testing.T) {
	st := memory.NewStore()
	storetest.Insert(t, st,
		storetest.Tx("O1", "2023-12-31", models.PaymentCash, 10),
		storetest.Tx("O2", "2024-01-01", models.PaymentCard, 20),
		storetest.Tx("O3", "2024-01-02", models.PaymentReturn, 5),
		storetest.Tx("O4", "2024-01-03", models.PaymentUnknown, 1),
	)

	stats, err := NewService(st).GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(31)))
	assert.True(t, stats.Returns.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(1), stats.ReturnsCount)
	assert.Equal(t, int64(1), stats.ByPaymentType[models.PaymentCash].Count)
	assert.True(t, stats.ByPaymentType[models.PaymentReturn].Sum.Equal(decimal.NewFromInt(5)))
}

func TestGetStatistics_AfterClear(t *testing.T) {
	st := memory.NewStore()
	ingestRows(t, st, scenarioRow())
	require.NoError(t, st.Clear(context.Background()))

	stats, err := NewService(st).GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.True(t, stats.TotalRevenue.IsZero())
}

func TestReportsData(t *testing.T) {
	st := memory.NewStore()
	ret := storetest.Tx("O3", "2024-03-16", models.PaymentReturn, 5)
	storetest.Insert(t, st,
		storetest.Tx("O1", "2024-03-15", models.PaymentCash, 10),
		storetest.Tx("O2", "2024-03-15", models.PaymentCard, 20),
		ret,
	)

	data, err := NewService(st).ReportsData(context.Background())
	require.NoError(t, err)

	require.Len(t, data.Yearly, 1)
	assert.Equal(t, "2024", data.Yearly[0].PeriodKey)
	assert.Equal(t, int64(3), data.Yearly[0].Total.Count)

	require.Len(t, data.Monthly, 1)
	assert.Equal(t, "2024_03", data.Monthly[0].DetailsKey)

	require.Len(t, data.Daily, 2)
	assert.Equal(t, "2024-03-15", data.Daily[0].PeriodKey)
	assert.Equal(t, "2024_03_15", data.Daily[0].DetailsKey)
	assert.True(t, data.Daily[0].ByPaymentType[models.PaymentCard].Sum.Equal(decimal.NewFromInt(20)))

	require.Len(t, data.Products, 1)
	assert.True(t, data.Products[0].Revenue.Equal(decimal.NewFromInt(30)))
	assert.True(t, data.Products[0].NetRevenue.Equal(decimal.NewFromInt(25)))
}

func TestNewTransactionViews(t *testing.T) {
	tx := storetest.Tx("O1", "2024-03-15", models.PaymentCash, 20)
	tx.ProductVariant = "Red"

	views := NewTransactionViews([]models.Transaction{*tx})
	require.Len(t, views, 1)
	assert.Equal(t, "Widget", views[0].Product)
	assert.Equal(t, "Red", views[0].Flavor)
	assert.True(t, views[0].Price.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "2024-03-15", views[0].Date)
	assert.Equal(t, "O1", views[0].OrderNumber)
}
