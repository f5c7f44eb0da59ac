// Package record defines the observation written once per polling tick and the
// builder that assembles it from the schedule and the upstream readers.
package record

import (
	"time"
)

// TimestampLayout is the persisted timestamp format (facility-local, second precision).
const TimestampLayout = "2006-01-02 15:04:05"

// Observation is one row of a daily log.
type Observation struct {
	Timestamp   time.Time    `json:"timestamp"`
	Weekday     time.Weekday `json:"-"`
	SessionType string       `json:"sessionType"`
	Primary     Opt[int]     `json:"occupancyPrimary"`
	Secondary   Opt[int]     `json:"occupancySecondary"`
	TempHome    Opt[float64] `json:"temperatureHome"`
	DescHome    Opt[string]  `json:"weatherDescriptionHome"`
	TempSite    Opt[float64] `json:"temperatureSite"`
	DescSite    Opt[string]  `json:"weatherDescriptionSite"`
	Holiday     string       `json:"holiday,omitempty"`
}

// IsHoliday reports whether the observation fell on a calendar holiday.
func (o Observation) IsHoliday() bool {
	return o.Holiday != ""
}

// Columns returns the header row. twoZone adds the secondary occupancy column.
func Columns(twoZone bool) []string {
	cols := []string{"timestamp", "day", "session_type", "occupancy_primary"}
	if twoZone {
		cols = append(cols, "occupancy_secondary")
	}
	return append(cols,
		"temperature_home", "weather_description_home",
		"temperature_site", "weather_description_site",
		"national_holiday",
	)
}

// Fields renders the observation in Columns order.
func (o Observation) Fields(twoZone bool) []string {
	holiday := "No"
	if o.IsHoliday() {
		holiday = "Yes"
	}

	row := []string{
		o.Timestamp.Format(TimestampLayout),
		o.Weekday.String(),
		o.SessionType,
		formatInt(o.Primary),
	}
	if twoZone {
		row = append(row, formatInt(o.Secondary))
	}
	return append(row,
		formatFloat(o.TempHome), formatString(o.DescHome),
		formatFloat(o.TempSite), formatString(o.DescSite),
		holiday,
	)
}
