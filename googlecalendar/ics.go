package googlecalendar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"campus-timetable/timetable"
)

const productID = "-//campus-timetable//timetable export//ZH"

// ICSExporter writes a semester's courses to an iCalendar file. Weekly and
// biweekly courses become one recurring event, irregular ones get one event
// per week.
type ICSExporter struct {
	Path string
	Now  func() time.Time
}

var _ timetable.CalendarExporter = (*ICSExporter)(nil)

func NewICSExporter(path string) *ICSExporter {
	return &ICSExporter{Path: path, Now: time.Now}
}

func (e *ICSExporter) Export(ctx context.Context, semester timetable.Semester, courses []timetable.Course) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	cal, err := BuildCalendar(semester, courses, now())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(e.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(e.Path, []byte(cal.Serialize()), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", e.Path)
	}
	return nil
}

// BuildCalendar renders courses as events. The semester must have a start date.
func BuildCalendar(semester timetable.Semester, courses []timetable.Course, stamp time.Time) (*ics.Calendar, error) {
	if semester.StartDate == nil {
		return nil, errors.Wrap(timetable.ErrNoStartDate, semester.Name())
	}
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(semester.Name())

	for _, c := range courses {
		if len(c.OnWeeks) == 0 {
			continue
		}
		rec := c.Recurrence()
		count := timetable.OccurrenceCount(c.OnWeeks)
		if rec == timetable.Irregular || count == 1 {
			occurrences, err := c.Occurrences(semester)
			if err != nil {
				return nil, err
			}
			for _, o := range occurrences {
				addEvent(cal, fmt.Sprintf("%s-w%d", c.ID, o.Week), o, stamp, "")
			}
			continue
		}

		first, err := c.OccurrenceIn(*semester.StartDate, c.OnWeeks[0])
		if err != nil {
			return nil, errors.Wrapf(err, "course %s", c.Code)
		}
		rrule := fmt.Sprintf("FREQ=WEEKLY;INTERVAL=%d;COUNT=%d", rec.Interval(), count)
		addEvent(cal, c.ID.String(), first, stamp, rrule)
	}
	return cal, nil
}

func addEvent(cal *ics.Calendar, uid string, o timetable.Occurrence, stamp time.Time, rrule string) {
	event := cal.AddEvent(uid + "@campus-timetable")
	event.SetDtStampTime(stamp)
	event.SetSummary(o.Course.Name)
	if o.Course.Location != "" {
		event.SetLocation(o.Course.Location)
	}
	event.SetDescription(describe(o.Course))
	event.SetStartAt(o.Start)
	event.SetEndAt(o.End)
	if rrule != "" {
		event.SetProperty(ics.ComponentPropertyRrule, rrule)
	}
}

func describe(c timetable.Course) string {
	parts := []string{c.Code}
	if c.Teacher != "" {
		parts = append(parts, c.Teacher)
	}
	return strings.Join(parts, " ")
}
