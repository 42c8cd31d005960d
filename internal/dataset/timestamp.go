package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/danu-shop/insights/internal/domain"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// excelEpoch is day zero of the 1900 date system, shifted for the 1900 leap year bug
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseTimestamp parses the purchase timestamp formats seen in the order exports,
// including Excel serial day numbers.
func ParseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, ok := domain.ParseNumber(v); ok && serial > 0 && serial < 2958466 {
		days := math.Floor(serial)
		frac := serial - days
		t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(frac * float64(24*time.Hour)).Round(time.Second))
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

// Period is the calendar month of a timestamp, e.g. "2018-03"
func Period(t time.Time) string {
	return t.Format("2006-01")
}
