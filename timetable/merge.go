package timetable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// courseNamespace seeds deterministic course ids.
var courseNamespace = uuid.MustParse("5b0c8f3e-6a52-4a4d-9d1e-2f6f1c7e9a10")

type courseBuilder struct {
	name      string
	code      string
	weekday   int
	start     int
	end       int
	weeks     map[int]struct{}
	teachers  tokenSet
	locations tokenSet
}

func newCourseBuilder(f RawLessonFragment) *courseBuilder {
	return &courseBuilder{
		name:      f.CourseName,
		code:      f.CourseCode,
		weekday:   f.Weekday,
		start:     f.Start,
		end:       f.End,
		weeks:     make(map[int]struct{}),
		teachers:  tokenSet{},
		locations: tokenSet{},
	}
}

func (b *courseBuilder) matches(f RawLessonFragment) bool {
	return b.code == f.CourseCode && b.weekday == f.Weekday &&
		b.start == f.Start && b.end == f.End
}

func (b *courseBuilder) absorb(f RawLessonFragment) {
	// keep the name choice independent of arrival order
	if f.CourseName != "" && (b.name == "" || f.CourseName < b.name) {
		b.name = f.CourseName
	}
	b.teachers.addJoined(f.Teacher)
	b.locations.addJoined(f.Location)
}

func (b *courseBuilder) sortedWeeks() []int {
	weeks := make([]int, 0, len(b.weeks))
	for w := range b.weeks {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// MergeWeekly folds per-week fragments into courses. Weeks are visited in
// ascending order. A fragment extends the builder with the same code,
// weekday and slot range; a fragment whose slots differ from every existing
// builder of that (code, weekday) starts a separate course.
func MergeWeekly(byWeek map[int][]RawLessonFragment, weekCount int) []Course {
	weeks := make([]int, 0, len(byWeek))
	for w := range byWeek {
		if w >= 1 && w <= weekCount {
			weeks = append(weeks, w)
		}
	}
	sort.Ints(weeks)

	var builders []*courseBuilder
	for _, week := range weeks {
		for _, f := range byWeek[week] {
			f = f.normalized()
			var found *courseBuilder
			for _, b := range builders {
				if b.matches(f) {
					found = b
					break
				}
			}
			if found == nil {
				found = newCourseBuilder(f)
				builders = append(builders, found)
			}
			found.weeks[week] = struct{}{}
			found.absorb(f)
		}
	}
	return finish(builders)
}

// MergeFlat folds fragments that carry their own week sets. Fragments with
// the same name, code, weekday, slot range and weeks collapse into one
// course whose teachers and locations are the union of theirs.
func MergeFlat(fragments []RawLessonFragment, weekCount int) []Course {
	index := make(map[string]*courseBuilder)
	var builders []*courseBuilder
	for _, f := range fragments {
		f = f.normalized()
		weeks := filterWeeks(f.Weeks, weekCount)
		if len(weeks) == 0 {
			continue
		}
		key := fmt.Sprintf("%s-%s-%d-%d-%d-%s", f.CourseName, f.CourseCode, f.Weekday, f.Start, f.End, joinWeeks(weeks))
		b, ok := index[key]
		if !ok {
			b = newCourseBuilder(f)
			index[key] = b
			builders = append(builders, b)
		}
		for _, w := range weeks {
			b.weeks[w] = struct{}{}
		}
		b.absorb(f)
	}
	return finish(builders)
}

func filterWeeks(weeks []int, weekCount int) []int {
	out := make([]int, 0, len(weeks))
	for _, w := range sortedUnique(weeks) {
		if w >= 1 && w <= weekCount {
			out = append(out, w)
		}
	}
	return out
}

func blockKey(code string, weekday, start, end int, weeks []int) string {
	return fmt.Sprintf("%s|%d|%d|%d|%s", code, weekday, start, end, joinWeeks(sortedUnique(weeks)))
}

// finish drops builders without weeks, collapses identical blocks and
// returns the courses in (weekday, start, code) order.
func finish(builders []*courseBuilder) []Course {
	blocks := make(map[string]*courseBuilder)
	var order []string
	for _, b := range builders {
		if len(b.weeks) == 0 {
			continue
		}
		key := blockKey(b.code, b.weekday, b.start, b.end, b.sortedWeeks())
		existing, ok := blocks[key]
		if !ok {
			blocks[key] = b
			order = append(order, key)
			continue
		}
		if b.name != "" && (existing.name == "" || b.name < existing.name) {
			existing.name = b.name
		}
		existing.teachers.union(b.teachers)
		existing.locations.union(b.locations)
	}

	courses := make([]Course, 0, len(order))
	for _, key := range order {
		b := blocks[key]
		courses = append(courses, Course{
			ID:       uuid.NewSHA1(courseNamespace, []byte(key)),
			Name:     b.name,
			Code:     b.code,
			Teacher:  b.teachers.String(),
			Location: b.locations.String(),
			Weekday:  b.weekday,
			Start:    b.start,
			End:      b.end,
			OnWeeks:  b.sortedWeeks(),
		})
	}
	sort.SliceStable(courses, func(i, j int) bool {
		a, c := courses[i], courses[j]
		if a.Weekday != c.Weekday {
			return a.Weekday < c.Weekday
		}
		if a.Start != c.Start {
			return a.Start < c.Start
		}
		if a.Code != c.Code {
			return a.Code < c.Code
		}
		if a.End != c.End {
			return a.End < c.End
		}
		return joinWeeks(a.OnWeeks) < joinWeeks(c.OnWeeks)
	})
	return courses
}

// tokenSet holds comma separated names such as rooms or teachers.
type tokenSet map[string]struct{}

func (s tokenSet) addJoined(joined string) {
	for _, tok := range strings.Split(joined, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || tok == "null" {
			continue
		}
		s[tok] = struct{}{}
	}
}

func (s tokenSet) union(other tokenSet) {
	for tok := range other {
		s[tok] = struct{}{}
	}
}

func (s tokenSet) String() string {
	toks := make([]string, 0, len(s))
	for tok := range s {
		toks = append(toks, tok)
	}
	sort.Strings(toks)
	return strings.Join(toks, ", ")
}
