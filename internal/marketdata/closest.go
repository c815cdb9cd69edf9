package marketdata

import "time"

// ClosestQuote finds the record applicable to targetDate in a chronologically
// ascending series: the most recent record dated at or before the target.
// When the target predates the whole series, the earliest record is returned
// instead of nil, so that a series never produces a hole at its start.
// Only an empty series yields nil.
func ClosestQuote(series []HistoricalQuote, targetDate time.Time) *HistoricalQuote {
	if len(series) == 0 {
		return nil
	}

	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].Date.After(targetDate) {
			return &series[i]
		}
	}

	// Target predates all records: clamp to the earliest one.
	return &series[0]
}
