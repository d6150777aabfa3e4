package scraper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"campus-timetable/timetable"
)

var (
	gradYearRe = regexp.MustCompile(`(\d+)-\d+`)

	errMissingMatch = errors.New("expected pattern not found")
)

type envelope struct {
	E json.Number     `json:"e"`
	M string          `json:"m"`
	D json.RawMessage `json:"d"`
}

// unwrapEnvelope returns the d member of a {e, m, d} response, failing when
// e is not zero.
func unwrapEnvelope(source string, body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, timetable.NewSchemaError(source, "", err)
	}
	if env.E.String() != "0" {
		return nil, errors.Wrapf(timetable.ErrRemote, "%s: e=%s %s", source, env.E.String(), env.M)
	}
	if len(env.D) == 0 {
		return nil, timetable.NewSchemaError(source, "d", errMissingMatch)
	}
	return env.D, nil
}

// flexInt accepts 3 and "3".
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*i = flexInt(v)
	return nil
}

type gradTerm struct {
	Year      string  `json:"year"`
	Term      string  `json:"term"`
	StartDay  string  `json:"startday"`
	CountWeek flexInt `json:"countweek"`
}

type gradIndex struct {
	Params struct {
		Year string `json:"year"`
		Term string `json:"term"`
	} `json:"params"`
	TermInfo []gradTerm `json:"termInfo"`
}

func gradSemesterType(term string) timetable.SemesterType {
	if strings.TrimSpace(term) == "1" {
		return timetable.First
	}
	return timetable.Second
}

func gradStartYear(year string) (int, bool) {
	m := gradYearRe.FindStringSubmatch(year)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	return y, err == nil
}

// ParseGraduateSemesters parses the graduate system index. Start dates are
// moved to the first Monday on or after the reported start day. The current
// semester is nil when the reported year and term match no parsed semester.
func ParseGraduateSemesters(body []byte) ([]timetable.Semester, *timetable.Semester, error) {
	d, err := unwrapEnvelope("graduate index", body)
	if err != nil {
		return nil, nil, err
	}
	var index gradIndex
	if err := json.Unmarshal(d, &index); err != nil {
		return nil, nil, timetable.NewSchemaError("graduate index", "termInfo", err)
	}

	semesters := make([]timetable.Semester, 0, len(index.TermInfo))
	for _, term := range index.TermInfo {
		year, ok := gradStartYear(term.Year)
		if !ok {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(term.StartDay), timetable.CampusLocation)
		if err != nil {
			return nil, nil, timetable.NewSchemaError("graduate index", "startday", err)
		}
		start := timetable.ClosestMonday(day)
		semesters = append(semesters, timetable.Semester{
			Year:      year,
			Type:      gradSemesterType(term.Term),
			StartDate: &start,
			WeekCount: int(term.CountWeek),
		})
	}
	timetable.SortSemesters(semesters)

	var current *timetable.Semester
	if year, ok := gradStartYear(index.Params.Year); ok {
		typ := gradSemesterType(index.Params.Term)
		for i := range semesters {
			if semesters[i].Year == year && semesters[i].Type == typ {
				s := semesters[i]
				current = &s
				break
			}
		}
	}
	return semesters, current, nil
}

type gradClass struct {
	CourseID   string  `json:"course_id"`
	CourseName string  `json:"course_name"`
	Location   string  `json:"location"`
	Weekday    flexInt `json:"weekday"`
	Lessons    string  `json:"lessons"`
	Teacher    string  `json:"teacher"`
}

type gradClassGroup struct {
	CourseID string
	Weekday  int
}

// ParseGraduateWeek parses one week of the graduate timetable. The system
// reports one record per lesson slot, so records of the same course on the
// same weekday are folded into a single meeting spanning their slots. A
// lessons value that is not an integer fails the whole week.
func ParseGraduateWeek(body []byte) ([]timetable.RawLessonFragment, error) {
	d, err := unwrapEnvelope("graduate week", body)
	if err != nil {
		return nil, err
	}
	var data struct {
		Classes []gradClass `json:"classes"`
	}
	if err := json.Unmarshal(d, &data); err != nil {
		return nil, timetable.NewSchemaError("graduate week", "classes", err)
	}

	var (
		order  []gradClassGroup
		groups = make(map[gradClassGroup]*timetable.RawLessonFragment)
	)
	for _, class := range data.Classes {
		slot, err := strconv.Atoi(strings.TrimSpace(class.Lessons))
		if err != nil {
			return nil, timetable.NewSchemaError("graduate week", "lessons", err)
		}
		slot--

		key := gradClassGroup{CourseID: class.CourseID, Weekday: int(class.Weekday)}
		f, ok := groups[key]
		if !ok {
			weekday := int(class.Weekday) - 1
			if weekday < 0 {
				weekday = 0
			}
			f = &timetable.RawLessonFragment{
				CourseName: class.CourseName,
				CourseCode: class.CourseID,
				Teacher:    class.Teacher,
				Location:   class.Location,
				Weekday:    weekday,
				Start:      slot,
				End:        slot,
			}
			groups[key] = f
			order = append(order, key)
			continue
		}
		if slot < f.Start {
			f.Start = slot
		}
		if slot > f.End {
			f.End = slot
		}
	}

	fragments := make([]timetable.RawLessonFragment, 0, len(order))
	for _, key := range order {
		fragments = append(fragments, *groups[key])
	}
	return fragments, nil
}
