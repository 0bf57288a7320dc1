package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	checkIn := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration time.Duration
		rate     float64
		want     float64
	}{
		{name: "ninety minutes rounds up to two hours", duration: 90 * time.Minute, rate: 10, want: 20},
		{name: "zero duration costs nothing", duration: 0, rate: 10, want: 0},
		{name: "one minute past the hour", duration: 61 * time.Minute, rate: 10, want: 20},
		{name: "exact hour", duration: time.Hour, rate: 10, want: 10},
		{name: "one second is a full hour", duration: time.Second, rate: 12.5, want: 12.5},
		{name: "half a second is a full hour", duration: 500 * time.Millisecond, rate: 10, want: 10},
		{name: "one nanosecond is a full hour", duration: time.Nanosecond, rate: 10, want: 10},
		{name: "clock skew never goes negative", duration: -30 * time.Minute, rate: 10, want: 0},
		{name: "fractional rate keeps cents", duration: 3 * time.Hour, rate: 0.1, want: 0.3},
		{name: "cents multiply exactly", duration: 3 * time.Hour, rate: 10.13, want: 30.39},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCost(checkIn, checkIn.Add(tt.duration), tt.rate)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBillableHours(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(0), BillableHours(start, start))
	assert.Equal(t, int64(0), BillableHours(start, start.Add(-time.Hour)))
	assert.Equal(t, int64(1), BillableHours(start, start.Add(59*time.Minute)))
	assert.Equal(t, int64(2), BillableHours(start, start.Add(time.Hour+time.Nanosecond)))
	assert.Equal(t, int64(24), BillableHours(start, start.Add(24*time.Hour)))
}
