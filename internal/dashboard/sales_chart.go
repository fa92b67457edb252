package dashboard

import (
	"context"
	"fmt"
	"time"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SalesChartPoint struct {
	Label   string                                 `json:"label"` // bucket key: YYYY, YYYY-MM or YYYY-MM-DD
	ByType  map[models.PaymentType]decimal.Decimal `json:"byType"`
	Sales   decimal.Decimal                        `json:"sales"`
	Returns decimal.Decimal                        `json:"returns"`
	Net     decimal.Decimal                        `json:"net"`
	Count   int64                                  `json:"count"`
}

type SalesChartGrandTotals struct {
	ByType  map[models.PaymentType]decimal.Decimal `json:"byType"`
	Sales   decimal.Decimal                        `json:"sales"`
	Returns decimal.Decimal                        `json:"returns"`
	Net     decimal.Decimal                        `json:"net"`
	Count   int64                                  `json:"count"`
}

type SalesChartResponse struct {
	Period      string                `json:"period"` // daily | monthly | yearly
	From        string                `json:"from"`
	To          string                `json:"to"`
	Points      []SalesChartPoint     `json:"points"`
	GrandTotals SalesChartGrandTotals `json:"grand_totals"`
}

var periodGranularity = map[string]models.Granularity{
	"daily":   models.GranularityDay,
	"monthly": models.GranularityMonth,
	"yearly":  models.GranularityYear,
}

var defaultCount = map[string]int{
	"daily":   7,
	"monthly": 12,
	"yearly":  5,
}

// chartRange returns the first and last day covered by count periods
// ending at today.
func chartRange(period string, count int, today time.Time) (time.Time, time.Time) {
	switch period {
	case "monthly":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -(count - 1), 0), today
	case "yearly":
		first := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(-(count - 1), 0, 0), today
	default:
		return today.AddDate(0, 0, -(count - 1)), today
	}
}

// BuildSalesChart reads the aggregate buckets of the period's granularity
// between from and to (inclusive) and turns them into chart points.
func BuildSalesChart(ctx context.Context, aggs store.Aggregates, period string, from, to models.CalendarDate) (SalesChartResponse, error) {
	g, ok := periodGranularity[period]
	if !ok {
		return SalesChartResponse{}, fmt.Errorf("unknown period %q", period)
	}

	buckets, err := aggs.ListBuckets(ctx, g)
	if err != nil {
		return SalesChartResponse{}, err
	}

	fromKey, toKey := g.PeriodKey(from), g.PeriodKey(to)

	// buckets arrive ordered by period key
	points := make([]SalesChartPoint, 0)
	index := make(map[string]int)
	grand := SalesChartGrandTotals{ByType: make(map[models.PaymentType]decimal.Decimal)}

	for _, b := range buckets {
		if b.PeriodKey < fromKey || b.PeriodKey > toKey {
			continue
		}
		i, ok := index[b.PeriodKey]
		if !ok {
			i = len(points)
			index[b.PeriodKey] = i
			points = append(points, SalesChartPoint{
				Label:  b.PeriodKey,
				ByType: make(map[models.PaymentType]decimal.Decimal),
			})
		}
		p := &points[i]
		p.ByType[b.PaymentType] = p.ByType[b.PaymentType].Add(b.Sum)
		p.Count += b.Count
		if b.PaymentType == models.PaymentReturn {
			p.Returns = p.Returns.Add(b.Sum)
		} else {
			p.Sales = p.Sales.Add(b.Sum)
		}

		grand.ByType[b.PaymentType] = grand.ByType[b.PaymentType].Add(b.Sum)
		grand.Count += b.Count
	}

	for i := range points {
		points[i].Net = points[i].Sales.Sub(points[i].Returns)
		grand.Sales = grand.Sales.Add(points[i].Sales)
		grand.Returns = grand.Returns.Add(points[i].Returns)
	}
	grand.Net = grand.Sales.Sub(grand.Returns)

	return SalesChartResponse{
		Period:      period,
		From:        from.ISO(),
		To:          to.ISO(),
		Points:      points,
		GrandTotals: grand,
	}, nil
}

// GET /api/reports/chart?period=daily&count=7
// GET /api/reports/chart?period=monthly&from=2024-01-01&to=2024-12-31
func SalesChartHandler(aggs store.Aggregates, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		if _, ok := periodGranularity[period]; !ok {
			return fiber.NewError(fiber.StatusBadRequest, "period must be daily, monthly or yearly")
		}

		var from, to models.CalendarDate
		fromStr, toStr := c.Query("from"), c.Query("to")
		if fromStr != "" || toStr != "" {
			var err error
			if from, err = models.ParseISODate(fromStr); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from is invalid")
			}
			if to, err = models.ParseISODate(toStr); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to is invalid")
			}
			if to.ISO() < from.ISO() {
				return fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
			}
		} else {
			count := c.QueryInt("count", defaultCount[period])
			if count <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "count is invalid")
			}
			n := now()
			today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
			start, end := chartRange(period, count, today)
			from, to = models.NewCalendarDate(start), models.NewCalendarDate(end)
		}

		resp, err := BuildSalesChart(c.UserContext(), aggs, period, from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to build chart")
		}
		return c.JSON(resp)
	}
}
