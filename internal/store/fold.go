package store

import (
	"strings"

	"sales-analytics-backend/internal/models"
)

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// BucketKeys returns the year, month and day bucket keys a transaction
// contributes to.
func BucketKeys(t *models.Transaction) map[models.Granularity]string {
	d := t.Date()
	keys := make(map[models.Granularity]string, len(models.Granularities))
	for _, g := range models.Granularities {
		keys[g] = g.PeriodKey(d)
	}
	return keys
}
