package ingest

import (
	"strconv"
	"strings"
	"time"

	"sales-analytics-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

// Bare numbers are read as Excel serials only within 1970-01-01 (25569)
// and 2099-12-31 (73050), so a year or day typed as text falls back.
const (
	minExcelSerial = 25569
	maxExcelSerial = 73050
)

// ParseDate normalizes a raw date cell. It never fails: anything it does not
// understand becomes now's calendar date and ok is false.
//
// Accepted forms: an Excel date serial, YYYY-MM-DD, DD.MM.YYYY and
// MM/DD/YYYY. Anything after the first space or "T" is ignored.
func ParseDate(raw string, now time.Time) (d models.CalendarDate, ok bool) {
	fallback := models.NewCalendarDate(now)

	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, " T"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return fallback, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minExcelSerial || serial > maxExcelSerial {
			return fallback, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return fallback, false
		}
		return models.NewCalendarDate(t), true
	}

	var year, month, day int
	var parsed bool
	switch {
	case strings.Contains(s, "-"):
		year, month, day, parsed = splitDate(s, "-", 0, 1, 2)
	case strings.Contains(s, "."):
		year, month, day, parsed = splitDate(s, ".", 2, 1, 0)
	case strings.Contains(s, "/"):
		year, month, day, parsed = splitDate(s, "/", 2, 0, 1)
	}
	if !parsed {
		return fallback, false
	}

	d = models.CalendarDate{Year: year, Month: month, Day: day}
	if d.Year < 1 || d.Year > 9999 || !d.Valid() {
		return fallback, false
	}
	return d, true
}

// splitDate reads three integer parts of s in the given positions.
func splitDate(s, sep string, yi, mi, di int) (year, month, day int, ok bool) {
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	return nums[yi], nums[mi], nums[di], true
}
