package domain

import "sort"

// DailyObservation is one day's temperature summary for a station. A nil
// temperature means the source reported no value for that day, which is
// distinct from zero degrees.
type DailyObservation struct {
	Date string // ISO calendar day, "2006-01-02"
	Min  *float64
	Max  *float64
	Mean *float64
}

// ObservationSet maps ISO dates to observations. Keys are unique by
// construction; re-adding a date replaces the in-memory entry. A walk builds
// one set incrementally, a month at a time.
type ObservationSet map[string]DailyObservation

// Merge copies every entry of other into the set. On a key collision the
// entry from other wins, matching a month being re-parsed as a whole.
func (s ObservationSet) Merge(other ObservationSet) {
	for date, obs := range other {
		s[date] = obs
	}
}

// Dates returns the set's keys in ascending calendar order. ISO dates sort
// lexically, so plain string ordering is chronological.
func (s ObservationSet) Dates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// MeasuredCount reports how many observations carry at least one temperature.
// A day can be present but unmeasured when the station reported nothing.
func (s ObservationSet) MeasuredCount() int {
	n := 0
	for _, obs := range s {
		if obs.Min != nil || obs.Max != nil || obs.Mean != nil {
			n++
		}
	}
	return n
}

// StoredObservation is a persisted row as read back from storage, including
// the location key the observation was saved under.
type StoredObservation struct {
	ID       int64
	Date     string
	Location string
	Min      *float64
	Max      *float64
	Mean     *float64
}
