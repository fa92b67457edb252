package ingest

import (
	"context"
	"fmt"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"
)

// DedupGate rejects a transaction whose (order number, check number, date)
// triple is already in the ledger. The match is exact: a row that differs
// only in amount is still a duplicate.
type DedupGate struct{}

// IsDuplicate must be called with the Writer of an open WithinWriteLock, so
// that the check and the following append are one unit.
func (DedupGate) IsDuplicate(ctx context.Context, w store.Writer, tx *models.Transaction) (bool, error) {
	exists, err := w.TransactionExists(ctx, tx.DedupKey())
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return exists, nil
}
