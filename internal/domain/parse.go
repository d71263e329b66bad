package domain

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

// Header spellings observed in bulk exports over the years. The degree symbol
// arrives differently depending on how a page was encoded, so each logical
// field carries an ordered candidate list. Resolution is case-insensitive.
var (
	dateHeaders = []string{"Date/Time", "Date", "Local Date"}
	maxHeaders  = []string{"Max Temp (°C)", "Max Temp (Â°C)", "Max Temp (C)"}
	minHeaders  = []string{"Min Temp (°C)", "Min Temp (Â°C)", "Min Temp (C)"}
	meanHeaders = []string{"Mean Temp (°C)", "Mean Temp (Â°C)", "Mean Temp (C)"}
)

// ParseMonth converts one month's raw CSV text into an ObservationSet keyed
// by ISO date. It is a pure function of its input and never fails: unreadable
// headers yield an empty set, malformed cells degrade to absent values, and
// rows outside the requested month (footer or summary lines) are dropped.
// Days whose temperatures are all absent are still included.
func ParseMonth(text string, month YearMonth) ObservationSet {
	set := make(ObservationSet)

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return set
	}

	cols := resolveColumns(header)
	if cols.date < 0 {
		return set
	}

	prefix := month.String()
	for {
		row, err := r.Read()
		if err != nil {
			// io.EOF, or a line the reader cannot recover from. Keep what
			// parsed so far rather than discarding the page.
			break
		}

		date, ok := rowDate(row, cols.date, prefix)
		if !ok {
			continue
		}

		set[date] = DailyObservation{
			Date: date,
			Min:  parseTemp(cell(row, cols.min)),
			Max:  parseTemp(cell(row, cols.max)),
			Mean: parseTemp(cell(row, cols.mean)),
		}
	}
	return set
}

// columnIndexes holds the resolved position of each logical field, -1 when
// none of the field's header spellings appear on this page.
type columnIndexes struct {
	date int
	max  int
	min  int
	mean int
}

func resolveColumns(header []string) columnIndexes {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return columnIndexes{
		date: findColumn(byName, dateHeaders),
		max:  findColumn(byName, maxHeaders),
		min:  findColumn(byName, minHeaders),
		mean: findColumn(byName, meanHeaders),
	}
}

// findColumn returns the index of the first candidate present in the header
// set, or -1 when the field is missing from the page entirely. A missing
// field blanks that temperature for every row; it is not an error.
func findColumn(byName map[string]int, candidates []string) int {
	for _, c := range candidates {
		if i, ok := byName[strings.ToLower(c)]; ok {
			return i
		}
	}
	return -1
}

// rowDate validates a row's date cell: at least a full ISO day long, the
// first 10 characters parse as a calendar date, and the row falls inside the
// requested month. Bulk exports sometimes append aggregate rows after the
// daily block; the month-prefix check drops them.
func rowDate(row []string, idx int, monthPrefix string) (string, bool) {
	raw := strings.TrimSpace(cell(row, idx))
	if len(raw) < 10 {
		return "", false
	}
	day := raw[:10]
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return "", false
	}
	if day[:7] != monthPrefix {
		return "", false
	}
	return day, true
}

// cell returns the value at idx, tolerating short rows and absent columns.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseTemp converts a temperature cell to a value, or nil when the cell is
// empty, flagged unavailable ("NA", "M"), or fails numeric parsing. Malformed
// cells degrade to missing data; they never abort the page.
func parseTemp(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "NA") || strings.EqualFold(s, "M") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
