// Package reports answers the read side: period details, statistics,
// rollups for the reports screen and the export workbooks.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPeriodKey   = errors.New("invalid period key")
	ErrInvalidPaymentType = errors.New("invalid payment type")
)

// PeriodKey is a parsed details key: YYYY, YYYY_MM or YYYY_MM_DD.
// Month and Day are zero when the key is coarser.
type PeriodKey struct {
	Year  int
	Month int
	Day   int
}

// ParsePeriodKey splits on "_" and reads one, two or three integer parts, so
// "2024_3" and "2024_03" are the same month.
func ParsePeriodKey(s string) (PeriodKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "_")
	if len(parts) < 1 || len(parts) > 3 {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
		}
		nums[i] = n
	}

	k := PeriodKey{Year: nums[0]}
	if len(nums) > 1 {
		k.Month = nums[1]
	}
	if len(nums) > 2 {
		k.Day = nums[2]
	}
	if k.Year < 1 || k.Year > 9999 ||
		(len(nums) > 1 && (k.Month < 1 || k.Month > 12)) ||
		(len(nums) > 2 && (k.Day < 1 || k.Day > 31)) {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
	}
	return k, nil
}

func (k PeriodKey) Granularity() models.Granularity {
	switch {
	case k.Day != 0:
		return models.GranularityDay
	case k.Month != 0:
		return models.GranularityMonth
	default:
		return models.GranularityYear
	}
}

// Filter is the ledger scan that selects the period.
func (k PeriodKey) Filter() store.TransactionFilter {
	return store.TransactionFilter{Year: k.Year, Month: k.Month, Day: k.Day}
}

// DetailsKey turns an aggregate key (YYYY-MM-DD) into the details form
// (YYYY_MM_DD).
func DetailsKey(aggregateKey string) string {
	return strings.ReplaceAll(aggregateKey, "-", "_")
}

// ParsePaymentFilter reads a query-side payment type. "" and "ALL" mean no
// filter and return "".
func ParsePaymentFilter(s string) (models.PaymentType, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, models.PaymentTypeAll) {
		return "", nil
	}
	pt, ok := models.ParsePaymentType(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentType, s)
	}
	return pt, nil
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// GetPeriodDetails lists the transactions of one period, optionally of one
// payment type.
func (s *Service) GetPeriodDetails(ctx context.Context, periodKey, paymentType string) ([]models.Transaction, error) {
	key, err := ParsePeriodKey(periodKey)
	if err != nil {
		return nil, err
	}
	pt, err := ParsePaymentFilter(paymentType)
	if err != nil {
		return nil, err
	}
	f := key.Filter()
	f.PaymentType = pt
	return s.store.ListTransactions(ctx, f)
}

func (s *Service) ListOrders(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// Statistics - dashboard headline numbers. Returns are kept out of
// TotalRevenue.
type Statistics struct {
	Total         int64                 `json:"total"`
	TotalRevenue  decimal.Decimal       `json:"totalRevenue"`
	Returns       decimal.Decimal       `json:"returns"`
	ReturnsCount  int64                 `json:"returnsCount"`
	ByPaymentType models.PaymentTypeMap `json:"byPaymentType"`
}

// GetStatistics folds the year buckets, which together cover the whole ledger.
func (s *Service) GetStatistics(ctx context.Context) (Statistics, error) {
	years, err := s.store.ListBuckets(ctx, models.GranularityYear)
	if err != nil {
		return Statistics{}, fmt.Errorf("statistics: %w", err)
	}

	stats := Statistics{ByPaymentType: make(models.PaymentTypeMap)}
	for _, b := range years {
		stats.Total += b.Count
		if b.PaymentType == models.PaymentReturn {
			stats.Returns = stats.Returns.Add(b.Sum)
			stats.ReturnsCount += b.Count
		} else {
			stats.TotalRevenue = stats.TotalRevenue.Add(b.Sum)
		}
		stats.ByPaymentType.Merge(models.PaymentTypeMap{
			b.PaymentType: {Count: b.Count, Sum: b.Sum},
		})
	}
	return stats, nil
}

// PeriodSummary - one bucket of the reports screen.
type PeriodSummary struct {
	PeriodKey     string                `json:"periodKey"`
	DetailsKey    string                `json:"detailsKey"`
	ByPaymentType models.PaymentTypeMap `json:"byPaymentType"`
	Total         models.BucketValue    `json:"total"`
}

type ProductSummary struct {
	models.ProductAggregate
	NetRevenue decimal.Decimal `json:"netRevenue"`
}

type ReportData struct {
	Yearly   []PeriodSummary  `json:"yearly"`
	Monthly  []PeriodSummary  `json:"monthly"`
	Daily    []PeriodSummary  `json:"daily"`
	Products []ProductSummary `json:"products"`
}

// ReportsData returns every rollup, periods in ascending order.
func (s *Service) ReportsData(ctx context.Context) (ReportData, error) {
	var data ReportData
	for _, g := range models.Granularities {
		summaries, err := s.Periods(ctx, g)
		if err != nil {
			return data, err
		}
		switch g {
		case models.GranularityYear:
			data.Yearly = summaries
		case models.GranularityMonth:
			data.Monthly = summaries
		case models.GranularityDay:
			data.Daily = summaries
		}
	}

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return data, fmt.Errorf("products: %w", err)
	}
	data.Products = make([]ProductSummary, 0, len(products))
	for _, p := range products {
		data.Products = append(data.Products, ProductSummary{ProductAggregate: p, NetRevenue: p.NetRevenue()})
	}
	return data, nil
}

// Periods groups the buckets of one granularity by period key.
func (s *Service) Periods(ctx context.Context, g models.Granularity) ([]PeriodSummary, error) {
	buckets, err := s.store.ListBuckets(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("%s buckets: %w", g, err)
	}

	out := make([]PeriodSummary, 0)
	index := make(map[string]int)
	for _, b := range buckets {
		i, ok := index[b.PeriodKey]
		if !ok {
			i = len(out)
			index[b.PeriodKey] = i
			out = append(out, PeriodSummary{
				PeriodKey:     b.PeriodKey,
				DetailsKey:    DetailsKey(b.PeriodKey),
				ByPaymentType: make(models.PaymentTypeMap),
			})
		}
		out[i].ByPaymentType[b.PaymentType] = models.BucketValue{Count: b.Count, Sum: b.Sum}
	}
	for i := range out {
		out[i].Total = out[i].ByPaymentType.Total()
	}
	return out, nil
}

// TransactionView is the JSON shape of a ledger row. product, flavor, price
// and date repeat canonical fields for older clients.
type TransactionView struct {
	models.Transaction
	Product string          `json:"product"`
	Flavor  string          `json:"flavor"`
	Price   decimal.Decimal `json:"price"`
	Date    string          `json:"date"`
}

func NewTransactionViews(txs []models.Transaction) []TransactionView {
	out := make([]TransactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, TransactionView{
			Transaction: t,
			Product:     t.ProductName,
			Flavor:      t.ProductVariant,
			Price:       t.TotalAmount,
			Date:        t.OperationDate,
		})
	}
	return out
}
