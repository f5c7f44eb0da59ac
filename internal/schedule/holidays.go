package schedule

import "time"

// MonthDay identifies a recurring annual date.
type MonthDay struct {
	Month time.Month
	Day   int
}

// Holidays is a fixed calendar of recurring annual holidays.
// No year dependency and no observed-day shifting.
type Holidays map[MonthDay]string

// Lookup returns the holiday falling on t's month and day, if any.
func (h Holidays) Lookup(t time.Time) (string, bool) {
	name, ok := h[MonthDay{Month: t.Month(), Day: t.Day()}]
	return name, ok
}

// CzechHolidays returns the Czech national holidays with fixed dates.
func CzechHolidays() Holidays {
	return Holidays{
		{time.January, 1}:    "New Year's Day",
		{time.May, 1}:        "Labor Day",
		{time.May, 8}:        "Liberation Day",
		{time.July, 5}:       "Saints Cyril and Methodius Day",
		{time.July, 6}:       "Jan Hus Day",
		{time.September, 28}: "Czech Statehood Day",
		{time.October, 28}:   "Independent Czechoslovak State Day",
		{time.November, 17}:  "Struggle for Freedom and Democracy Day",
		{time.December, 24}:  "Christmas Eve",
		{time.December, 25}:  "Christmas Day",
		{time.December, 26}:  "Saint Stephen's Day",
	}
}
