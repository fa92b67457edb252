package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sales-analytics-backend/internal/logger"
	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ParseOrderFilter builds a ledger filter from the order list query
// parameters. Dates must be YYYY-MM-DD.
func ParseOrderFilter(startDate, endDate, paymentType, product string) (store.TransactionFilter, error) {
	var f store.TransactionFilter
	for _, d := range []string{startDate, endDate} {
		if d == "" {
			continue
		}
		if _, err := models.ParseISODate(d); err != nil {
			return f, err
		}
	}
	pt, err := ParsePaymentFilter(paymentType)
	if err != nil {
		return f, err
	}
	f.StartDate = startDate
	f.EndDate = endDate
	f.PaymentType = pt
	f.ProductContains = strings.TrimSpace(product)
	return f, nil
}

func filterFromQuery(c *fiber.Ctx) (store.TransactionFilter, error) {
	f, err := ParseOrderFilter(c.Query("startDate"), c.Query("endDate"), c.Query("paymentType"), c.Query("product"))
	if err != nil {
		return f, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return f, nil
}

// toHTTPError maps query errors to 400 and everything else to 500.
func toHTTPError(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, ErrInvalidPeriodKey) || errors.Is(err, ErrInvalidPaymentType) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	log := logger.FromContext(c.UserContext())
	log.Error().Err(err).Str("path", c.Path()).Msg(msg)
	return fiber.NewError(fiber.StatusInternalServerError, msg)
}

// GET /api/reports/data
func DataHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := svc.ReportsData(c.UserContext())
		if err != nil {
			return toHTTPError(c, err, "Failed to load report data")
		}
		return c.JSON(data)
	}
}

// GET /api/reports/details?period=2024_03&type=CASH
func DetailsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := strings.TrimSpace(c.Query("period"))
		paymentType := c.Query("type", models.PaymentTypeAll)

		var (
			txs []models.Transaction
			err error
		)
		if period == "" || strings.EqualFold(period, "all") {
			var pt models.PaymentType
			pt, err = ParsePaymentFilter(paymentType)
			if err == nil {
				txs, err = svc.ListOrders(c.UserContext(), store.TransactionFilter{PaymentType: pt})
			}
		} else {
			txs, err = svc.GetPeriodDetails(c.UserContext(), period, paymentType)
		}
		if err != nil {
			return toHTTPError(c, err, "Failed to load period details")
		}
		return c.JSON(NewTransactionViews(txs))
	}
}

// GET /api/reports/export
func ExportReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := svc.ReportsData(c.UserContext())
		if err != nil {
			return toHTTPError(c, err, "Failed to load report data")
		}
		buf, err := ReportWorkbook(data)
		if err != nil {
			return toHTTPError(c, err, "Failed to build report workbook")
		}
		return sendWorkbook(c, "report", buf.Bytes())
	}
}

// GET /api/export?startDate=&endDate=&paymentType=&product=
func ExportOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := filterFromQuery(c)
		if err != nil {
			return err
		}
		txs, err := svc.ListOrders(c.UserContext(), f)
		if err != nil {
			return toHTTPError(c, err, "Failed to load orders")
		}
		buf, err := OrdersWorkbook(txs)
		if err != nil {
			return toHTTPError(c, err, "Failed to build orders workbook")
		}
		return sendWorkbook(c, "orders", buf.Bytes())
	}
}

// GET /api/orders
func ListOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := filterFromQuery(c)
		if err != nil {
			return err
		}
		txs, err := svc.ListOrders(c.UserContext(), f)
		if err != nil {
			return toHTTPError(c, err, "Failed to load orders")
		}
		return c.JSON(NewTransactionViews(txs))
	}
}

// GET /api/orders/stats
func StatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := svc.GetStatistics(c.UserContext())
		if err != nil {
			return toHTTPError(c, err, "Failed to load statistics")
		}
		return c.JSON(stats)
	}
}

func sendWorkbook(c *fiber.Ctx, prefix string, body []byte) error {
	name := fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().Format("20060102_150405"))
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(body)
}
