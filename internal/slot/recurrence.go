package slot

import (
	"net/http"
	"time"

	"github.com/slotwise/booking-backend/internal/pkg/apperror"
)

var (
	ErrInvalidPattern    = apperror.New(http.StatusBadRequest, "recurrence pattern must be daily or weekly")
	ErrInvalidInterval   = apperror.New(http.StatusBadRequest, "recurrence interval must be at least 1")
	ErrInvalidOccurrence = apperror.New(http.StatusBadRequest, "occurrences must be between 1 and 366")
)

type Pattern string

const (
	PatternDaily  Pattern = "daily"
	PatternWeekly Pattern = "weekly"
)

const maxOccurrences = 366

// Recurrence describes how a slot template repeats. Either Occurrences or
// Until bounds the expansion; when both are set the tighter bound wins.
type Recurrence struct {
	Pattern     Pattern
	Interval    int
	Occurrences int
	Until       *time.Time
}

// Window is a single expanded time range.
type Window struct {
	Start time.Time
	End   time.Time
}

func (r Recurrence) Validate() error {
	if r.Pattern != PatternDaily && r.Pattern != PatternWeekly {
		return ErrInvalidPattern
	}
	if r.Interval < 1 {
		return ErrInvalidInterval
	}
	if r.Until == nil {
		if r.Occurrences < 1 || r.Occurrences > maxOccurrences {
			return ErrInvalidOccurrence
		}
	} else if r.Occurrences < 0 || r.Occurrences > maxOccurrences {
		return ErrInvalidOccurrence
	}
	return nil
}

// Expand generates the concrete windows for a template starting at
// (start, end). Each window becomes an independent slot thereafter.
func (r Recurrence) Expand(start, end time.Time) ([]Window, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}

	var step time.Duration
	switch r.Pattern {
	case PatternDaily:
		step = time.Duration(r.Interval) * 24 * time.Hour
	case PatternWeekly:
		step = time.Duration(r.Interval) * 7 * 24 * time.Hour
	}

	limit := r.Occurrences
	if limit == 0 {
		limit = maxOccurrences
	}

	windows := make([]Window, 0, limit)
	for i := 0; i < limit; i++ {
		s := start.Add(time.Duration(i) * step)
		if r.Until != nil && s.After(*r.Until) {
			break
		}
		windows = append(windows, Window{Start: s, End: end.Add(time.Duration(i) * step)})
	}
	return windows, nil
}
