package engine

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendarSkipsWeekends(t *testing.T) {
	c := NewCalendar("NYSE")
	if c.IsTradingDay(date(2020, time.January, 11)) { // Saturday
		t.Fatal("Saturday should not be a trading day")
	}
	if c.IsTradingDay(date(2020, time.January, 12)) { // Sunday
		t.Fatal("Sunday should not be a trading day")
	}
	if !c.IsTradingDay(date(2020, time.January, 13)) { // Monday
		t.Fatal("Monday should be a trading day")
	}
}

func TestCalendarSkipsMLKDay(t *testing.T) {
	c := NewCalendar("NYSE")
	if c.IsTradingDay(date(2020, time.January, 20)) {
		t.Fatal("MLK Day (2020-01-20) should not be a trading day")
	}
}

func TestCalendarDaysMatchesHappyPathScenario(t *testing.T) {
	c := NewCalendar("NYSE")
	days := c.Days(date(2020, time.January, 7), date(2020, time.February, 1))
	if len(days) != 18 {
		t.Fatalf("len(days) = %d, want 18", len(days))
	}
}
