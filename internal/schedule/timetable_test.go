package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.November, day, hour, minute, 30, 0, time.UTC)
}

func TestClassifyClosedDay(t *testing.T) {
	tt := Default()

	// 2024-11-18 is a Monday.
	for h := 0; h < 24; h++ {
		status, label := tt.Classify(at(18, h, 15))
		assert.Equal(t, Closed, status, "hour %d", h)
		assert.Equal(t, ClosedLabel, label)
	}
}

func TestClassifyOpenDay(t *testing.T) {
	tt := Default()

	tests := []struct {
		name   string
		t      time.Time
		status Status
		label  string
	}{
		{"before opening", at(19, 13, 59), Closed, ClosedLabel},
		{"opening minute", at(19, 14, 0), Open, "shared sauna"},
		{"closing minute inclusive", at(19, 21, 30), Open, "shared sauna"},
		{"after closing", at(19, 21, 31), Closed, ClosedLabel},
		{"wednesday women", at(20, 18, 0), Open, "women only"},
		{"wednesday men", at(20, 20, 45), Open, "men only"},
		{"shared boundary goes to earlier window", at(20, 17, 30), Open, "shared sauna"},
		{"weekend noon", at(23, 12, 0), Open, "shared sauna"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, label := tt.Classify(tc.t)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.label, label)
		})
	}
}

func TestClassifyMissingWeekdayIsClosed(t *testing.T) {
	tt, err := New(map[time.Weekday]Day{
		time.Tuesday: {Windows: []Window{{Start: 600, End: 700, Label: "morning"}}},
	}, nil)
	require.NoError(t, err)

	status, _ := tt.Classify(at(20, 10, 30)) // Wednesday
	assert.Equal(t, Closed, status)
}

func TestNewRejectsOverlappingWindows(t *testing.T) {
	_, err := New(map[time.Weekday]Day{
		time.Friday: {Windows: []Window{
			{Start: 600, End: 720, Label: "a"},
			{Start: 700, End: 800, Label: "b"},
		}},
	}, nil)
	assert.Error(t, err)

	_, err = New(map[time.Weekday]Day{
		time.Friday: {Windows: []Window{{Start: 720, End: 600, Label: "a"}}},
	}, nil)
	assert.Error(t, err)
}

func TestIsHolidayIsYearIndependent(t *testing.T) {
	tt := Default()

	for _, year := range []int{1999, 2024, 2031} {
		name, ok := tt.IsHoliday(time.Date(year, time.December, 24, 18, 0, 0, 0, time.UTC))
		assert.True(t, ok)
		assert.Equal(t, "Christmas Eve", name)
	}

	_, ok := tt.IsHoliday(time.Date(2024, time.December, 23, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
	_, ok = tt.IsHoliday(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("17:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(17*60+30), c)
	assert.Equal(t, "17:30", c.String())

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}
