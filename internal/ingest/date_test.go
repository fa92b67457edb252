package ingest

import (
	"testing"
	"time"

	"sales-analytics-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2025, time.June, 10, 15, 4, 5, 0, time.UTC)

func TestParseDate_Formats(t *testing.T) {
	cases := []struct {
		raw  string
		want models.CalendarDate
	}{
		{"2024-03-15", models.CalendarDate{Year: 2024, Month: 3, Day: 15}},
		{"2024-03-15 12:30:00", models.CalendarDate{Year: 2024, Month: 3, Day: 15}},
		{"2024-03-15T12:30:00Z", models.CalendarDate{Year: 2024, Month: 3, Day: 15}},
		{"15.03.2024", models.CalendarDate{Year: 2024, Month: 3, Day: 15}},
		{"5.3.2024 08:00", models.CalendarDate{Year: 2024, Month: 3, Day: 5}},
		{"03/15/2024", models.CalendarDate{Year: 2024, Month: 3, Day: 15}},
		{"29.02.2024", models.CalendarDate{Year: 2024, Month: 2, Day: 29}},
		{"45366", models.CalendarDate{Year: 2024, Month: 3, Day: 15}},
		{"45366.75", models.CalendarDate{Year: 2024, Month: 3, Day: 15}},
		{"25569", models.CalendarDate{Year: 1970, Month: 1, Day: 1}},
		{"73050", models.CalendarDate{Year: 2099, Month: 12, Day: 31}},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseDate(tc.raw, fixedNow)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want.ISO(), got.ISO())
		})
	}
}

func TestParseDate_FallsBackToNow(t *testing.T) {
	today := models.CalendarDate{Year: 2025, Month: 6, Day: 10}

	for _, raw := range []string{
		"",
		"   ",
		"not-a-date",
		"13.45.2020",
		"2020-13-01",
		"00.01.2020",
		"31.02.2023",
		"29.02.2023",
		"2024/03",
		"12/32/2024",
		"-5",
		"99999999",
		"2024",
		"15",
		"1",
		"25568",
		"73051",
	} {
		t.Run(raw, func(t *testing.T) {
			got, ok := ParseDate(raw, fixedNow)
			assert.False(t, ok)
			assert.Equal(t, today, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestParseDate_ResultIsConsistent(t *testing.T) {
	for _, raw := range []string{"2024-01-31", "garbage", "01/01/1999", "13.45.2020"} {
		d, _ := ParseDate(raw, fixedNow)
		parsed, err := models.ParseISODate(d.ISO())
		assert.NoError(t, err)
		assert.Equal(t, d, parsed)
	}
}
