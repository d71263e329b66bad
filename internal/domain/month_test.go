package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearMonthPrev(t *testing.T) {
	tests := []struct {
		name     string
		in       YearMonth
		expected YearMonth
	}{
		{"mid-year", YearMonth{2024, time.July}, YearMonth{2024, time.June}},
		{"january rolls year", YearMonth{2024, time.January}, YearMonth{2023, time.December}},
		{"february", YearMonth{2024, time.February}, YearMonth{2024, time.January}},
		{"december", YearMonth{2024, time.December}, YearMonth{2024, time.November}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.in.Prev())
		})
	}
}

func TestYearMonthBefore(t *testing.T) {
	tests := []struct {
		name     string
		a, b     YearMonth
		expected bool
	}{
		{"earlier year", YearMonth{2023, time.December}, YearMonth{2024, time.January}, true},
		{"later year", YearMonth{2024, time.January}, YearMonth{2023, time.December}, false},
		{"same year earlier month", YearMonth{2024, time.March}, YearMonth{2024, time.September}, true},
		{"same month", YearMonth{2024, time.March}, YearMonth{2024, time.March}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Before(tt.b))
		})
	}
}

func TestYearMonthString(t *testing.T) {
	assert.Equal(t, "2024-05", YearMonth{2024, time.May}.String())
	assert.Equal(t, "2023-12", YearMonth{2023, time.December}.String())
	assert.Equal(t, "0987-01", YearMonth{987, time.January}.String())
}

func TestYearMonthOf(t *testing.T) {
	ts := time.Date(2024, time.May, 15, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, YearMonth{2024, time.May}, YearMonthOf(ts))
}

func TestParseYearMonth(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ym, err := ParseYearMonth("2024-05")
		require.NoError(t, err)
		assert.Equal(t, YearMonth{2024, time.May}, ym)
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		ym, err := ParseYearMonth("  2023-12 ")
		require.NoError(t, err)
		assert.Equal(t, YearMonth{2023, time.December}, ym)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for _, in := range []string{"", "2024", "2024-13", "05-2024", "2024/05"} {
			_, err := ParseYearMonth(in)
			assert.Error(t, err, "input %q", in)
		}
	})
}
