package gormstore

import (
	"context"
	"path/filepath"
	"testing"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"
	"sales-analytics-backend/internal/store/storetest"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "sales.db"), zerolog.Nop())
	require.NoError(t, err)
	return st
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newSQLiteStore(t) })
}

func TestOpenSQLite_InMemory(t *testing.T) {
	st, err := OpenSQLite(":memory:", zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	storetest.Insert(t, st, storetest.Tx("O1", "2024-03-15", models.PaymentCash, 20))
	count, err := st.CountTransactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStore_DataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.db")

	st, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	tx := storetest.Tx("O1", "2024-03-15", models.PaymentVIP, 20)
	tx.TotalAmount = decimal.RequireFromString("19.99")
	storetest.Insert(t, st, tx)
	require.NoError(t, st.Close())

	st, err = OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	defer st.Close()

	txs, err := st.ListTransactions(context.Background(), store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].TotalAmount.Equal(decimal.RequireFromString("19.99")))

	bucket, err := st.GetBucket(context.Background(), models.GranularityMonth, "2024-03")
	require.NoError(t, err)
	assert.True(t, bucket[models.PaymentVIP].Sum.Equal(decimal.RequireFromString("19.99")))

	info, err := st.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, info.Backend)
}
