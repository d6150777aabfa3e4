package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fullSemester(weekCount int) []Course {
	weeks := make([]int, weekCount)
	for i := range weeks {
		weeks[i] = i + 1
	}
	return []Course{{Code: "X", OnWeeks: weeks}}
}

func TestCurrentWeek(t *testing.T) {
	now := time.Date(2024, 11, 13, 10, 0, 0, 0, CampusLocation) // Wednesday
	courses := fullSemester(18)

	date := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name  string
		start *time.Time
		want  int
	}{
		{name: "no start date", start: nil, want: 1},
		{name: "started twenty weeks ago", start: date(now.AddDate(0, 0, -20*7)), want: 18},
		{name: "starts next month", start: date(now.AddDate(0, 1, 0)), want: 1},
		{name: "first week", start: date(time.Date(2024, 11, 11, 0, 0, 0, 0, CampusLocation)), want: 1},
		{name: "third week", start: date(time.Date(2024, 10, 28, 0, 0, 0, 0, CampusLocation)), want: 3},
		{name: "start on sunday counts elapsed weeks", start: date(time.Date(2024, 11, 10, 0, 0, 0, 0, CampusLocation)), want: 1},
		{name: "start on friday five days back", start: date(time.Date(2024, 11, 8, 0, 0, 0, 0, CampusLocation)), want: 1},
		{name: "started exactly a week ago", start: date(time.Date(2024, 11, 6, 0, 0, 0, 0, CampusLocation)), want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentWeek(tt.start, courses, now))
		})
	}
}

func TestCurrentWeekFridayStart(t *testing.T) {
	start := time.Date(2024, 9, 6, 0, 0, 0, 0, CampusLocation) // Friday
	courses := fullSemester(18)

	assert.Equal(t, 1, CurrentWeek(&start, courses, time.Date(2024, 9, 9, 9, 0, 0, 0, CampusLocation)))
	assert.Equal(t, 1, CurrentWeek(&start, courses, time.Date(2024, 9, 12, 23, 0, 0, 0, CampusLocation)))
	assert.Equal(t, 2, CurrentWeek(&start, courses, time.Date(2024, 9, 13, 0, 0, 0, 0, CampusLocation)))
}

func TestCurrentWeekClampsToCourseRange(t *testing.T) {
	courses := []Course{{OnWeeks: []int{3, 4, 5}}, {OnWeeks: []int{9}}}
	start := time.Date(2024, 9, 2, 0, 0, 0, 0, CampusLocation)

	assert.Equal(t, 3, CurrentWeek(&start, courses, start))
	assert.Equal(t, 9, CurrentWeek(&start, courses, start.AddDate(0, 3, 0)))
	assert.Equal(t, 3, CurrentWeek(nil, courses, start))
}

func TestWeekRange(t *testing.T) {
	first, last := WeekRange(nil)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, last)

	first, last = WeekRange([]Course{{OnWeeks: []int{4, 2}}, {OnWeeks: []int{16}}})
	assert.Equal(t, 2, first)
	assert.Equal(t, 16, last)
}

func TestClosestMonday(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2024, 9, 2, 15, 0, 0, 0, time.UTC), time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in.Weekday().String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ClosestMonday(tt.in))
		})
	}
}

func TestWeekStart(t *testing.T) {
	start := time.Date(2024, 9, 2, 0, 0, 0, 0, CampusLocation)
	assert.Equal(t, start, WeekStart(start, 1))
	assert.Equal(t, time.Date(2024, 9, 16, 0, 0, 0, 0, CampusLocation), WeekStart(start, 3))
}
