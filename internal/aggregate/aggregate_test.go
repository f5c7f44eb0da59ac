package aggregate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baranekm/sauna-attendance/internal/dailylog"
	"github.com/baranekm/sauna-attendance/internal/record"
)

const header = "timestamp,day,session_type,occupancy_primary,temperature_home,weather_description_home,temperature_site,weather_description_site,national_holiday\n"

func row(ts, session, count string) string {
	return ts + ",Saturday," + session + "," + count + ",4.5,cloudy,N/A,N/A,No\n"
}

func writeLog(t *testing.T, dir, name string, rows ...string) {
	t.Helper()
	content := header + strings.Join(rows, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newAggregator(t *testing.T, dir string) *Aggregator {
	t.Helper()
	s, err := dailylog.New(dailylog.Options{Dir: dir, Location: time.UTC})
	require.NoError(t, err)
	return New(s, nil)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func raws(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Raw
	}
	return out
}

func TestRepairDropouts(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"isolated interior zero", []float64{5, 0, 7}, []float64{5, 6, 7}},
		{"leading zeros", []float64{0, 0, 7}, []float64{0, 0, 7}},
		{"trailing zeros", []float64{5, 0, 0}, []float64{5, 0, 0}},
		{"run of zeros", []float64{5, 0, 0, 7}, []float64{5, 0, 0, 7}},
		{"two separate dropouts", []float64{5, 0, 7, 0, 9}, []float64{5, 6, 7, 8, 9}},
		{"too short", []float64{0, 3}, []float64{0, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			samples := make([]sample, len(tc.in))
			for i, v := range tc.in {
				samples[i].value = v
			}
			repairDropouts(samples)
			got := make([]float64, len(samples))
			for i, s := range samples {
				got[i] = s.value
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAggregateRepairsAndSummarises(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241123.csv",
		row("2024-11-23 14:00:00", "shared sauna", "5"),
		row("2024-11-23 14:03:30", "shared sauna", "0"),
		row("2024-11-23 14:07:00", "shared sauna", "7"),
		row("2024-11-23 14:10:30", "shared sauna", "N/A"),
		row("2024-11-23 14:14:00", "shared sauna", "12"),
	)

	res, err := newAggregator(t, dir).Aggregate(Query{Dates: []time.Time{day(2024, 11, 23)}, Window: 1})
	require.NoError(t, err)
	require.Len(t, res.Series, 1)

	s := res.Series[0]
	assert.Equal(t, []float64{5, 6, 7, 12}, raws(s.Points))
	assert.Equal(t, "14:03:30", s.Points[1].Time.String())
	assert.True(t, s.Stats.HasData)
	assert.InDelta(t, 7.5, s.Stats.Mean, 1e-9)
	assert.Equal(t, 12.0, s.Stats.Peak)
	assert.Equal(t, "2024-11-23 - Average: 7.50, Peak: 12", s.Stats.Text())
	assert.Nil(t, res.Average)
}

func TestAggregateSmoothing(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241123.csv",
		row("2024-11-23 14:00:00", "shared sauna", "2"),
		row("2024-11-23 14:05:00", "shared sauna", "4"),
		row("2024-11-23 14:10:00", "shared sauna", "6"),
		row("2024-11-23 14:15:00", "shared sauna", "11"),
	)

	res, err := newAggregator(t, dir).Aggregate(Query{Dates: []time.Time{day(2024, 11, 23)}, Window: 3})
	require.NoError(t, err)

	points := res.Series[0].Points
	require.Len(t, points, 4)
	for _, p := range points[:2] {
		_, ok := p.Smoothed.Get()
		assert.False(t, ok)
	}
	v, ok := points[2].Smoothed.Get()
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)
	v, ok = points[3].Smoothed.Get()
	require.True(t, ok)
	assert.InDelta(t, 7.0, v, 1e-9)
}

func TestAggregateAlignsByTimeOfDay(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241123.csv", row("2024-11-23 09:00:00", "shared sauna", "3"))
	writeLog(t, dir, "sauna_data_20241130.csv", row("2024-11-30 09:05:00", "shared sauna", "8"))

	res, err := newAggregator(t, dir).Aggregate(Query{
		Dates:       []time.Time{day(2024, 11, 23), day(2024, 11, 30)},
		Window:      1,
		WithAverage: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Series, 2)

	assert.Equal(t, "09:00:00", res.Series[0].Points[0].Time.String())
	assert.Equal(t, "09:05:00", res.Series[1].Points[0].Time.String())

	require.Len(t, res.Average, 2)
	assert.Equal(t, AveragePoint{Time: 9 * 3600, Value: 3, Dates: 1}, res.Average[0])
	assert.Equal(t, AveragePoint{Time: 9*3600 + 300, Value: 8, Dates: 1}, res.Average[1])
}

func TestAverageUsesOnlyDatesPresentAtSlot(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241116.csv",
		row("2024-11-16 15:00:00", "shared sauna", "4"),
		row("2024-11-16 15:05:00", "shared sauna", "6"),
	)
	writeLog(t, dir, "sauna_data_20241123.csv",
		row("2024-11-23 15:05:00", "shared sauna", "9"),
	)
	writeLog(t, dir, "sauna_data_20241130.csv",
		row("2024-11-30 15:00:00", "shared sauna", "10"),
		row("2024-11-30 15:05:00", "shared sauna", "3"),
	)

	res, err := newAggregator(t, dir).Aggregate(Query{
		Dates:       []time.Time{day(2024, 11, 16), day(2024, 11, 23), day(2024, 11, 30)},
		Window:      2,
		WithAverage: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Average, 2)

	assert.Equal(t, "15:00:00", res.Average[0].Time.String())
	assert.InDelta(t, 7.0, res.Average[0].Value, 1e-9)
	assert.Equal(t, 2, res.Average[0].Dates)

	assert.InDelta(t, 6.0, res.Average[1].Value, 1e-9)
	assert.Equal(t, 3, res.Average[1].Dates)
}

func TestAggregateMissingDateReportsNoData(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241123.csv", row("2024-11-23 14:00:00", "shared sauna", "5"))

	res, err := newAggregator(t, dir).Aggregate(Query{
		Dates:  []time.Time{day(2024, 11, 23), day(2024, 11, 24)},
		Window: 3,
	})
	require.NoError(t, err)
	require.Len(t, res.Series, 2)

	assert.True(t, res.Series[0].Stats.HasData)
	assert.False(t, res.Series[1].Stats.HasData)
	assert.Empty(t, res.Series[1].Points)
	assert.Equal(t, "No data available for 2024-11-24.", res.Series[1].Stats.Text())
	assert.False(t, res.Empty())
}

func TestAggregateEmptyInputs(t *testing.T) {
	dir := t.TempDir()
	a := newAggregator(t, dir)

	res, err := a.Aggregate(Query{Dates: []time.Time{day(2024, 11, 23)}, Window: 3, WithAverage: true})
	require.NoError(t, err)
	assert.Empty(t, res.Series)
	assert.Empty(t, res.Average)

	writeLog(t, dir, "sauna_data_20241123.csv", row("2024-11-23 14:00:00", "shared sauna", "5"))
	res, err = a.Aggregate(Query{Window: 3, WithAverage: true})
	require.NoError(t, err)
	assert.Empty(t, res.Series)
	assert.True(t, res.Empty())
}

func TestAggregateRejectsBadWindow(t *testing.T) {
	_, err := newAggregator(t, t.TempDir()).Aggregate(Query{Window: 0})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestAggregateOpenOnly(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241123.csv",
		row("2024-11-23 11:55:00", "closed", "0"),
		row("2024-11-23 12:00:00", "shared sauna", "4"),
		row("2024-11-23 12:05:00", "shared sauna", "8"),
	)
	a := newAggregator(t, dir)

	res, err := a.Aggregate(Query{Dates: []time.Time{day(2024, 11, 23)}, Window: 1, OpenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 8}, raws(res.Series[0].Points))

	res, err = a.Aggregate(Query{Dates: []time.Time{day(2024, 11, 23)}, Window: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 4, 8}, raws(res.Series[0].Points))
}

func TestLoadAcceptsLegacyColumnsAndTornRows(t *testing.T) {
	dir := t.TempDir()
	content := "timestamp,day,persons_sauna,temperature\n" +
		"2024-11-23 14:00:00,Saturday,3,4.0\n" +
		"not a time,Saturday,5,4.0\n" +
		"2024-11-23 14:05:00,Saturday,4,4.0\n" +
		"2024-11-23 14:10:00,Sat"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sauna_data_20241123.csv"), []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	res, err := newAggregator(t, dir).Aggregate(Query{Dates: []time.Time{day(2024, 11, 23)}, Window: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, raws(res.Series[0].Points))
}

func TestAggregateReadsStoreOutput(t *testing.T) {
	dir := t.TempDir()
	s, err := dailylog.New(dailylog.Options{Dir: dir, TwoZone: true, Location: time.UTC})
	require.NoError(t, err)

	l, err := s.EnsureLogFor(day(2024, 11, 23))
	require.NoError(t, err)
	for i, n := range []int{2, 0, 4} {
		require.NoError(t, s.Append(l, record.Observation{
			Timestamp:   time.Date(2024, 11, 23, 14, i*5, 0, 0, time.UTC),
			Weekday:     time.Saturday,
			SessionType: "shared sauna",
			Primary:     record.Some(n),
			Secondary:   record.Some(1),
		}))
	}

	res, err := New(s, nil).Aggregate(Query{Dates: []time.Time{day(2024, 11, 23)}, Window: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, raws(res.Series[0].Points))
}

func TestDates(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241130.csv", row("2024-11-30 12:00:00", "shared sauna", "1"))
	writeLog(t, dir, "sauna_data_20241123.csv",
		row("2024-11-23 12:00:00", "shared sauna", "1"),
		row("2024-11-23 12:05:00", "shared sauna", "2"),
	)

	dates, err := newAggregator(t, dir).Dates()
	require.NoError(t, err)
	require.Len(t, dates, 2)

	assert.Equal(t, "2024-11-23", dates[0].Value)
	assert.Equal(t, 47, dates[0].Week)
	assert.Equal(t, time.Saturday, dates[0].Weekday)
	assert.Equal(t, "2024-11-23 (Saturday, Week 47)", dates[0].Label)
	assert.Equal(t, "2024-11-30", dates[1].Value)
}

func TestTimeOfDayText(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.UnmarshalText([]byte("14:03:30")))
	assert.Equal(t, TimeOfDay(14*3600+3*60+30), tod)

	text, err := tod.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "14:03:30", string(text))

	assert.Error(t, tod.UnmarshalText([]byte("25:00:00")))
	assert.Error(t, tod.UnmarshalText([]byte("noon")))
}

func TestAggregateIsIndependentOfSelection(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241122.csv",
		row("2024-11-22 21:20:00", "shared sauna", "5"),
		row("2024-11-22 21:25:00", "shared sauna", "4"),
	)
	writeLog(t, dir, "sauna_data_20241123.csv",
		row("2024-11-23 12:00:00", "shared sauna", "0"),
		row("2024-11-23 12:05:00", "shared sauna", "6"),
	)
	a := newAggregator(t, dir)

	alone, err := a.Aggregate(Query{Dates: []time.Time{day(2024, 11, 23)}, Window: 1})
	require.NoError(t, err)
	both, err := a.Aggregate(Query{Dates: []time.Time{day(2024, 11, 22), day(2024, 11, 23)}, Window: 1})
	require.NoError(t, err)

	require.Len(t, both.Series, 2)
	assert.Equal(t, raws(alone.Series[0].Points), raws(both.Series[1].Points))
	assert.Equal(t, alone.Series[0].Stats.Text(), both.Series[1].Stats.Text())
	// The first row of the day follows a non-zero row in the previous log.
	assert.Equal(t, []float64{5, 6}, raws(alone.Series[0].Points))
}

func TestAggregateAssignsRowsByTimestamp(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "sauna_data_20241122215000.csv",
		row("2024-11-22 23:58:00", "closed", "0"),
		row("2024-11-23 00:01:30", "closed", "0"),
	)
	a := newAggregator(t, dir)

	dates, err := a.Dates()
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-11-23", dates[1].Value)

	res, err := a.Aggregate(Query{Dates: []time.Time{dates[1].Date}, Window: 1})
	require.NoError(t, err)
	require.Len(t, res.Series, 1)
	assert.True(t, res.Series[0].Stats.HasData)
	assert.Equal(t, "00:01:30", res.Series[0].Points[0].Time.String())
}
