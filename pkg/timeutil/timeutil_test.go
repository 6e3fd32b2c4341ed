package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"18:00", 1080, false},
		{"18:30:00", 1110, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"", 0, true},
		{"9", 0, true},
		{"25:00", 0, true},
		{"10:75", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestMinutesOfDay(t *testing.T) {
	// 12:30 UTC is 18:00 IST
	utc := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, 18*60, MinutesOfDay(utc))
}

func TestBusinessDay(t *testing.T) {
	// 20:00 UTC on March 10 is already March 11 in IST
	utc := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-11", BusinessDay(utc))

	morning := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-10", BusinessDay(morning))
}

func TestFormatClock12(t *testing.T) {
	assert.Equal(t, "6:00 PM", FormatClock12("18:00"))
	assert.Equal(t, "9:30 AM", FormatClock12("09:30"))
	assert.Equal(t, "12:15 PM", FormatClock12("12:15"))
	assert.Equal(t, "12:05 AM", FormatClock12("00:05"))
	assert.Equal(t, "", FormatClock12(""))
}

func TestIsOpen(t *testing.T) {
	// 11:00 IST
	now := time.Date(2025, 3, 10, 5, 30, 0, 0, time.UTC)

	t.Run("open within hours", func(t *testing.T) {
		check := IsOpen("09:00", "21:00", false, now)
		assert.True(t, check.Open)
	})

	t.Run("manually closed overrides hours", func(t *testing.T) {
		check := IsOpen("09:00", "21:00", true, now)
		assert.False(t, check.Open)
		assert.Contains(t, check.Message, "closed by the owner")
	})

	t.Run("before opening", func(t *testing.T) {
		check := IsOpen("12:00", "21:00", false, now)
		assert.False(t, check.Open)
		assert.Contains(t, check.Message, "not open yet")
	})

	t.Run("after closing", func(t *testing.T) {
		check := IsOpen("06:00", "10:00", false, now)
		assert.False(t, check.Open)
		assert.Contains(t, check.Message, "closed for the day")
	})
}

func TestCanFinishBeforeClose(t *testing.T) {
	t.Run("rejected past buffer", func(t *testing.T) {
		// close 18:00, buffer 10, wait 50, duration 40, now 17:00
		// finish = 1020+50+40 = 1110 > 1080-10 = 1070
		result := CanFinishBeforeClose("18:00", 1020, 50, 40, 10)
		assert.False(t, result.CanJoin)
		assert.Equal(t, "6:30 PM", result.FinishTime)
		assert.Equal(t, "6:00 PM", result.ClosingTime)
		assert.Contains(t, result.Message, "fully booked")
	})

	t.Run("fits before buffer", func(t *testing.T) {
		result := CanFinishBeforeClose("18:00", 1020, 10, 30, 10)
		assert.True(t, result.CanJoin)
	})

	t.Run("boundary is allowed", func(t *testing.T) {
		// finish exactly at close - buffer
		result := CanFinishBeforeClose("18:00", 1020, 20, 30, 10)
		assert.True(t, result.CanJoin)
	})
}
