package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationSetMerge(t *testing.T) {
	base := ObservationSet{
		"2024-05-01": {Date: "2024-05-01", Max: ptr(18.3)},
		"2024-05-02": {Date: "2024-05-02", Max: ptr(21.0)},
	}
	incoming := ObservationSet{
		"2024-05-02": {Date: "2024-05-02", Max: ptr(22.5)},
		"2024-04-30": {Date: "2024-04-30", Max: ptr(16.1)},
	}

	base.Merge(incoming)

	require.Len(t, base, 3)
	assert.Equal(t, 22.5, *base["2024-05-02"].Max, "incoming entry wins on collision")
	assert.Equal(t, 16.1, *base["2024-04-30"].Max)
}

func TestObservationSetDates(t *testing.T) {
	set := ObservationSet{
		"2024-05-02": {Date: "2024-05-02"},
		"2023-12-31": {Date: "2023-12-31"},
		"2024-05-01": {Date: "2024-05-01"},
	}

	assert.Equal(t, []string{"2023-12-31", "2024-05-01", "2024-05-02"}, set.Dates())
	assert.Empty(t, ObservationSet{}.Dates())
}

func TestObservationSetMeasuredCount(t *testing.T) {
	set := ObservationSet{
		"2024-05-01": {Date: "2024-05-01", Max: ptr(18.3)},
		"2024-05-02": {Date: "2024-05-02", Mean: ptr(14.2)},
		"2024-05-03": {Date: "2024-05-03"},
	}

	assert.Equal(t, 2, set.MeasuredCount())
}
