package timetable

import "time"

// ReconcileStartDates returns a copy of semesters with StartDate taken from
// context (keyed by semester id) wherever context has an entry. Semesters
// missing from context keep the start date they already had. The input is
// never modified.
func ReconcileStartDates(semesters []Semester, context map[int]time.Time) []Semester {
	out := make([]Semester, len(semesters))
	for i, s := range semesters {
		if date, ok := context[s.SemesterID]; ok {
			d := date
			s.StartDate = &d
		} else if s.StartDate != nil {
			d := *s.StartDate
			s.StartDate = &d
		}
		out[i] = s
	}
	return out
}
