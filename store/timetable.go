package store

import (
	"context"
	"time"

	"campus-timetable/timetable"
)

// Timetable is a consistent snapshot of one semester for presentation.
type Timetable struct {
	Semester  timetable.Semester
	Semesters []timetable.Semester
	Courses   []timetable.Course
	// Week is the current teaching week, clamped into the course week range.
	Week int
}

// Load refreshes the semester list, applies startDates (semester id to
// start date, undergraduate only) and refreshes the courses of the current semester. When the
// source reports no current semester the latest one is used.
func (s *Store) Load(ctx context.Context, startDates map[int]time.Time, progress timetable.ProgressFunc) (*Timetable, error) {
	return s.load(ctx, startDates, progress, true)
}

// LoadCached is Load served from the cache wherever it has data.
func (s *Store) LoadCached(ctx context.Context, startDates map[int]time.Time, progress timetable.ProgressFunc) (*Timetable, error) {
	return s.load(ctx, startDates, progress, false)
}

func (s *Store) load(ctx context.Context, startDates map[int]time.Time, progress timetable.ProgressFunc, refresh bool) (*Timetable, error) {
	var (
		semesters []timetable.Semester
		current   *timetable.Semester
		err       error
	)
	if refresh {
		semesters, current, err = s.GetRefreshedSemesters(ctx)
	} else {
		semesters, current, err = s.GetCachedSemesters(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(semesters) == 0 {
		return nil, timetable.ErrNoSemesters
	}

	// graduate semesters carry no portal id, so an id mapping cannot address them
	if len(startDates) > 0 && s.StudentType() != timetable.Graduate {
		if err := s.ApplyStartDateContext(startDates); err != nil {
			return nil, err
		}
		semesters = timetable.ReconcileStartDates(semesters, startDates)
		if current != nil {
			current = &timetable.ReconcileStartDates([]timetable.Semester{*current}, startDates)[0]
		}
	}

	selected := semesters[len(semesters)-1]
	if current != nil {
		selected = *current
	}
	return s.Select(ctx, selected, semesters, progress, refresh)
}

// Select builds the timetable of semester.
func (s *Store) Select(ctx context.Context, semester timetable.Semester, semesters []timetable.Semester, progress timetable.ProgressFunc, refresh bool) (*Timetable, error) {
	var (
		courses []timetable.Course
		err     error
	)
	if refresh {
		courses, err = s.GetRefreshedCourses(ctx, semester, progress)
	} else {
		courses, err = s.GetCachedCourses(ctx, semester, progress)
	}
	if err != nil {
		return nil, err
	}
	return &Timetable{
		Semester:  semester,
		Semesters: semesters,
		Courses:   courses,
		Week:      timetable.CurrentWeek(semester.StartDate, courses, timetable.NowFunc()),
	}, nil
}

func (t *Timetable) WeekRange() (int, int) {
	return timetable.WeekRange(t.Courses)
}

func (t *Timetable) CoursesInWeek(week int) []timetable.Course {
	return timetable.CoursesInWeek(t.Courses, week)
}

// WeekStart is the first day of the current week, or nil without a start date.
func (t *Timetable) WeekStart() *time.Time {
	if t.Semester.StartDate == nil {
		return nil
	}
	start := timetable.WeekStart(*t.Semester.StartDate, t.Week)
	return &start
}

// FilteredSemesters lists recent semesters plus the selected one.
func (t *Timetable) FilteredSemesters(now time.Time) []timetable.Semester {
	return timetable.FilterRecent(t.Semesters, &t.Semester, now)
}

// CalendarMap groups the courses by course for calendar export.
func (t *Timetable) CalendarMap() map[timetable.CourseKey][]timetable.Course {
	return timetable.GroupByCourseKey(t.Courses)
}
