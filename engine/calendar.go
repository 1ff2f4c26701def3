package engine

import "time"

// Calendar resolves which dates a bundle has trading activity on.
// EngineConfig.Calendar names one; this module ships the single "NYSE"
// calendar (weekdays minus the standard US market holidays), matching the
// source project's default zipline calendar closely enough for
// deterministic day-count scenarios.
type Calendar struct {
	name string
}

// NewCalendar resolves a calendar by name. Unknown names fall back to the
// default NYSE calendar rather than failing — EngineConfig.Calendar naming
// a calendar the bundle doesn't actually vary by is not, on its own, a
// ConfigError in this synthetic-bundle implementation.
func NewCalendar(name string) *Calendar {
	return &Calendar{name: name}
}

// IsTradingDay reports whether t (truncated to a date) is a trading day on
// this calendar.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !isUSMarketHoliday(t)
}

// Days returns every trading day in [start, end], inclusive.
func (c *Calendar) Days(start, end time.Time) []time.Time {
	var days []time.Time
	for d := dateOnly(start); !d.After(dateOnly(end)); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isUSMarketHoliday(t time.Time) bool {
	y := t.Year()
	d := dateOnly(t)

	if d.Equal(observedNewYears(y)) {
		return true
	}
	if d.Equal(nthWeekday(y, time.January, time.Monday, 3)) { // MLK Day
		return true
	}
	if d.Equal(nthWeekday(y, time.February, time.Monday, 3)) { // Washington's Birthday
		return true
	}
	if d.Equal(goodFriday(y)) {
		return true
	}
	if d.Equal(lastWeekday(y, time.May, time.Monday)) { // Memorial Day
		return true
	}
	if y >= 2021 && d.Equal(time.Date(y, time.June, 19, 0, 0, 0, 0, time.UTC)) { // Juneteenth
		return true
	}
	if d.Equal(time.Date(y, time.July, 4, 0, 0, 0, 0, time.UTC)) { // Independence Day
		return true
	}
	if d.Equal(nthWeekday(y, time.September, time.Monday, 1)) { // Labor Day
		return true
	}
	if d.Equal(nthWeekday(y, time.November, time.Thursday, 4)) { // Thanksgiving
		return true
	}
	if d.Equal(time.Date(y, time.December, 25, 0, 0, 0, 0, time.UTC)) { // Christmas
		return true
	}
	return false
}

func observedNewYears(y int) time.Time {
	d := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

func nthWeekday(y int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(y, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(y int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(y, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// goodFriday computes the Friday before Easter Sunday via the anonymous
// Gregorian algorithm (Meeus/Jones/Butcher).
func goodFriday(y int) time.Time {
	a := y % 19
	b := y / 100
	c := y % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}
