package us

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"marketlens/internal/domain"
)

// CalendarClient is the subset of the Alpaca trading client used to read
// the market calendar.
type CalendarClient interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

// NewCalendarClient returns an Alpaca trading client for calendar lookups.
func NewCalendarClient(apiKey, apiSecret, baseURL string) *alpaca.Client {
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
}

var eastern = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// LatestFinishedTradingDay returns the most recent trading day whose session
// has ended as of now (after 20:05 ET, once extended-hours bars settle). The
// result is a calendar date at UTC midnight.
func LatestFinishedTradingDay(cal CalendarClient, now time.Time) (time.Time, error) {
	now = now.In(eastern)
	calendar, err := cal.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}
	if len(calendar) == 0 {
		return time.Time{}, fmt.Errorf("no trading days returned from calendar")
	}

	today := now.Format(domain.DateLayout)
	settled := time.Date(now.Year(), now.Month(), now.Day(), 20, 5, 0, 0, eastern)

	for i := len(calendar) - 1; i >= 0; i-- {
		day := calendar[i]
		if day.Date > today {
			continue
		}
		if day.Date == today && !now.After(settled) {
			continue
		}
		t, err := time.Parse(domain.DateLayout, day.Date)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("could not determine latest finished trading day")
}
