package timetable

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// StudentType selects which institutional system a timetable comes from.
type StudentType string

const (
	Undergraduate StudentType = "undergrad"
	Graduate      StudentType = "grad"
)

// ProgressFunc receives the fraction of work completed, in [0, 1].
type ProgressFunc func(progress float64)

// RawLessonFragment is one lesson record as reported by a portal, before
// merging. Weekday, Start and End are already 0-based.
type RawLessonFragment struct {
	CourseName string
	CourseCode string
	Teacher    string
	Location   string
	Weekday    int
	Start      int
	End        int
	// Weeks is the explicit week set when the source provides one.
	Weeks []int
}

func (f RawLessonFragment) normalized() RawLessonFragment {
	if f.Weekday < 0 {
		f.Weekday = 0
	}
	if f.Start < 0 {
		f.Start = 0
	}
	if f.End < 0 {
		f.End = 0
	}
	if f.Start > f.End {
		f.Start, f.End = f.End, f.Start
	}
	return f
}

// Course is a consolidated scheduled block of a course.
type Course struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Code     string    `json:"code"`
	Teacher  string    `json:"teacher"`
	Location string    `json:"location"`
	Weekday  int       `json:"weekday"`
	Start    int       `json:"start"`
	End      int       `json:"end"`
	OnWeeks  []int     `json:"onWeeks"`
}

// OpenOn reports whether the course meets in the given week.
func (c Course) OpenOn(week int) bool {
	for _, w := range c.OnWeeks {
		if w == week {
			return true
		}
	}
	return false
}

// ConflictsWith reports whether both courses occupy a common slot in a common week.
func (c Course) ConflictsWith(other Course) bool {
	if c.Weekday != other.Weekday {
		return false
	}
	if c.End < other.Start || other.End < c.Start {
		return false
	}
	for _, w := range c.OnWeeks {
		if other.OpenOn(w) {
			return true
		}
	}
	return false
}

func (c Course) Recurrence() Recurrence {
	return ClassifyRecurrence(c.OnWeeks)
}

// SameBlock reports whether two courses are the same scheduled block.
func (c Course) SameBlock(other Course) bool {
	return blockKey(c.Code, c.Weekday, c.Start, c.End, c.OnWeeks) ==
		blockKey(other.Code, other.Weekday, other.Start, other.End, other.OnWeeks)
}

// CoursesInWeek returns the courses meeting in week, preserving order.
func CoursesInWeek(courses []Course, week int) []Course {
	var out []Course
	for _, c := range courses {
		if c.OpenOn(week) {
			out = append(out, c)
		}
	}
	return out
}

// CourseKey groups sections of the same course for calendar export.
type CourseKey struct {
	Code string
	Name string
}

func (c Course) Key() CourseKey {
	return CourseKey{Code: c.Code, Name: c.Name}
}

// GroupByCourseKey groups courses by (code, name).
func GroupByCourseKey(courses []Course) map[CourseKey][]Course {
	groups := make(map[CourseKey][]Course)
	for _, c := range courses {
		groups[c.Key()] = append(groups[c.Key()], c)
	}
	return groups
}

func sortedUnique(weeks []int) []int {
	seen := make(map[int]struct{}, len(weeks))
	out := make([]int, 0, len(weeks))
	for _, w := range weeks {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}

func joinWeeks(weeks []int) string {
	var b strings.Builder
	for i, w := range weeks {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(w))
	}
	return b.String()
}
