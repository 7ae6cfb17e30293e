// Package gather defines the interface shared by the market and news
// gatherers.
package gather

import (
	"context"
	"fmt"
	"time"

	"marketlens/internal/domain"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass. It returns early when ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents an inclusive time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate reports an error when End precedes Start.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("range end %s before start %s",
			r.End.Format(domain.DateLayout), r.Start.Format(domain.DateLayout))
	}
	return nil
}

// Lookback returns the range of days calendar days ending at end.
func Lookback(end time.Time, days int) DateRange {
	return DateRange{Start: end.AddDate(0, 0, -days), End: end}
}

// Batches splits items into consecutive groups of at most size.
func Batches(items []string, size int) [][]string {
	size = max(size, 1)
	var out [][]string
	for i := 0; i < len(items); i += size {
		out = append(out, items[i:min(i+size, len(items))])
	}
	return out
}
