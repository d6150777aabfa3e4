package timetable

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// CampusLocation is the time zone lesson slots are expressed in.
var CampusLocation = loadCampusLocation()

func loadCampusLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// CalendarExporter publishes consolidated courses of a semester to a calendar.
type CalendarExporter interface {
	Export(ctx context.Context, semester Semester, courses []Course) error
}

// Occurrence is one meeting of a course.
type Occurrence struct {
	Course Course
	Week   int
	Start  time.Time
	End    time.Time
}

// OccurrenceIn computes when the course meets in the given week of a
// semester starting on startDate.
func (c Course) OccurrenceIn(startDate time.Time, week int) (Occurrence, error) {
	first, err := Slot(c.Start + 1)
	if err != nil {
		return Occurrence{}, err
	}
	last, err := Slot(c.End + 1)
	if err != nil {
		return Occurrence{}, err
	}
	day := startOfDay(startDate.In(CampusLocation)).AddDate(0, 0, (week-1)*7+c.Weekday)
	return Occurrence{
		Course: c,
		Week:   week,
		Start:  first.Start.On(day),
		End:    last.End.On(day),
	}, nil
}

// Occurrences enumerates every meeting of the course in the semester.
func (c Course) Occurrences(semester Semester) ([]Occurrence, error) {
	if semester.StartDate == nil {
		return nil, errors.Wrap(ErrNoStartDate, semester.Name())
	}
	out := make([]Occurrence, 0, len(c.OnWeeks))
	for _, w := range c.OnWeeks {
		o, err := c.OccurrenceIn(*semester.StartDate, w)
		if err != nil {
			return nil, errors.Wrapf(err, "course %s", c.Code)
		}
		out = append(out, o)
	}
	return out, nil
}
