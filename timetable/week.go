package timetable

import (
	"time"
)

var NowFunc = time.Now // mockable

// WeekRange returns the smallest and largest week any course meets in,
// or (1, 1) when there are no weeks at all.
func WeekRange(courses []Course) (first, last int) {
	found := false
	for _, c := range courses {
		for _, w := range c.OnWeeks {
			if !found {
				first, last = w, w
				found = true
				continue
			}
			if w < first {
				first = w
			}
			if w > last {
				last = w
			}
		}
	}
	if !found {
		return 1, 1
	}
	return first, last
}

// CurrentWeek returns the teaching week containing now: whole weeks elapsed
// since the start date, plus one. Without a start date it returns the first
// week of the range; the result is always clamped into the week range.
func CurrentWeek(startDate *time.Time, courses []Course, now time.Time) int {
	first, last := WeekRange(courses)
	if startDate == nil {
		return first
	}
	start := startOfDay(*startDate)
	today := startOfDay(now.In(startDate.Location()))
	week := floorDiv(daysBetween(start, today), 7) + 1
	if week < first {
		return first
	}
	if week > last {
		return last
	}
	return week
}

// WeekStart returns the first day of the given week of a semester.
func WeekStart(startDate time.Time, week int) time.Time {
	return startOfDay(startDate).AddDate(0, 0, (week-1)*7)
}

// ClosestMonday returns midnight of the first Monday on or after t.
func ClosestMonday(t time.Time) time.Time {
	daysToMonday := (8 - int(t.Weekday())) % 7
	return startOfDay(t).AddDate(0, 0, daysToMonday)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days, ignoring DST shifts.
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
