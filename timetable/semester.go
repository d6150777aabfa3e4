package timetable

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// SemesterType is the season of a semester within a school year.
type SemesterType int

const (
	First SemesterType = iota
	Winter
	Second
	Summer
)

var semesterTypeNames = map[SemesterType]string{
	First:  "first",
	Winter: "winter",
	Second: "second",
	Summer: "summer",
}

func (t SemesterType) String() string {
	if name, ok := semesterTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SemesterType(%d)", int(t))
}

// MarshalText keeps the cache file readable and stable across reorderings.
func (t SemesterType) MarshalText() ([]byte, error) {
	name, ok := semesterTypeNames[t]
	if !ok {
		return nil, errors.Errorf("unknown semester type %d", int(t))
	}
	return []byte(name), nil
}

func (t *SemesterType) UnmarshalText(text []byte) error {
	for typ, name := range semesterTypeNames {
		if name == string(text) {
			*t = typ
			return nil
		}
	}
	return errors.Errorf("unknown semester type %q", string(text))
}

// Semester is one term of a school year. Year is the first calendar year of
// the school year ("2023-2024" has Year 2023).
type Semester struct {
	Year       int          `json:"year"`
	Type       SemesterType `json:"type"`
	SemesterID int          `json:"semesterId"`
	StartDate  *time.Time   `json:"startDate,omitempty"`
	WeekCount  int          `json:"weekCount"`
}

// SemesterKey is the identity of a Semester. StartDate and WeekCount are not part of it.
type SemesterKey struct {
	Year       int
	Type       SemesterType
	SemesterID int
}

func (s Semester) Key() SemesterKey {
	return SemesterKey{Year: s.Year, Type: s.Type, SemesterID: s.SemesterID}
}

// Equal compares identity only.
func (s Semester) Equal(other Semester) bool {
	return s.Key() == other.Key()
}

// Less orders semesters chronologically.
func (s Semester) Less(other Semester) bool {
	if s.Year != other.Year {
		return s.Year < other.Year
	}
	if s.Type != other.Type {
		return s.Type < other.Type
	}
	return s.SemesterID < other.SemesterID
}

// Name renders the semester the way the portals label it.
func (s Semester) Name() string {
	var season string
	switch s.Type {
	case First:
		season = "第一学期"
	case Second:
		season = "第二学期"
	case Winter:
		season = "寒假学期"
	case Summer:
		season = "暑期学期"
	}
	return fmt.Sprintf("%d-%d学年%s", s.Year, s.Year+1, season)
}

// SortSemesters sorts in place, oldest first.
func SortSemesters(semesters []Semester) {
	sort.SliceStable(semesters, func(i, j int) bool {
		return semesters[i].Less(semesters[j])
	})
}

// FindSemester returns the semester with the given identity.
func FindSemester(semesters []Semester, key SemesterKey) (Semester, bool) {
	for _, s := range semesters {
		if s.Key() == key {
			return s, true
		}
	}
	return Semester{}, false
}

// FilterRecent keeps semesters that started within the last five school
// years of now, plus selected even if it is older. The result is sorted.
func FilterRecent(semesters []Semester, selected *Semester, now time.Time) []Semester {
	earliest := now.Year() - 5
	filtered := make([]Semester, 0, len(semesters))
	seenSelected := false
	for _, s := range semesters {
		if selected != nil && s.Equal(*selected) {
			seenSelected = true
			filtered = append(filtered, s)
			continue
		}
		if s.Year > earliest && s.Year <= now.Year() {
			filtered = append(filtered, s)
		}
	}
	if selected != nil && !seenSelected {
		filtered = append(filtered, *selected)
	}
	SortSemesters(filtered)
	return filtered
}
