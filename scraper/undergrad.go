package scraper

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"campus-timetable/timetable"
)

const undergradWeekCount = 18

var (
	bareKeyRe     = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)\s*:`)
	schoolYearRe  = regexp.MustCompile(`(\d+)-(\d+)`)
	loginMarkerRe = regexp.MustCompile(`onload\s*=\s*["']doSubmit\(\)["']`)
	ticketRe      = regexp.MustCompile(`<input[^>]*(?:id|name)\s*=\s*["']ticket["'][^>]*value\s*=\s*["']([^"']+)["']`)
	ticketAltRe   = regexp.MustCompile(`<input[^>]*value\s*=\s*["']([^"']+)["'][^>]*(?:id|name)\s*=\s*["']ticket["']`)
	formActionRe  = regexp.MustCompile(`<form[^>]*action\s*=\s*["']([^"']+)["']`)
)

type legacySemester struct {
	ID         *int    `json:"id"`
	SchoolYear *string `json:"schoolYear"`
	Name       *string `json:"name"`
}

type legacySemesterCalendar struct {
	Semesters  map[string][]legacySemester `json:"semesters"`
	SemesterID json.RawMessage             `json:"semesterId"`
}

// ParseLegacySemesterList parses the semester calendar returned by the
// undergraduate portal. The payload is a JavaScript object literal with
// unquoted keys, so keys are quoted before decoding. It returns the sorted
// semesters and the id of the semester the portal marks as active (0 when
// absent). Entries missing an id, school year or name are skipped.
func ParseLegacySemesterList(text []byte) ([]timetable.Semester, int, error) {
	repaired := bytes.ReplaceAll(text, []byte("\r"), nil)
	repaired = bytes.ReplaceAll(repaired, []byte("\n"), nil)
	repaired = bareKeyRe.ReplaceAll(repaired, []byte(`$1"$2":`))

	var calendar legacySemesterCalendar
	if err := json.Unmarshal(repaired, &calendar); err != nil {
		return nil, 0, timetable.NewSchemaError("semester calendar", "", err)
	}

	var semesters []timetable.Semester
	for _, group := range calendar.Semesters {
		for _, s := range group {
			if s.ID == nil || s.SchoolYear == nil || s.Name == nil {
				continue
			}
			match := schoolYearRe.FindStringSubmatch(*s.SchoolYear)
			if match == nil {
				continue
			}
			year, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			semesters = append(semesters, timetable.Semester{
				Year:       year,
				Type:       semesterTypeFromName(*s.Name),
				SemesterID: *s.ID,
				WeekCount:  undergradWeekCount,
			})
		}
	}
	timetable.SortSemesters(semesters)

	return semesters, activeSemesterID(calendar.SemesterID), nil
}

// activeSemesterID reads the active id sent as a number or a string. Any
// other value means no active semester.
func activeSemesterID(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var id flexInt
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0
	}
	return int(id)
}

func semesterTypeFromName(name string) timetable.SemesterType {
	switch {
	case strings.Contains(name, "1"):
		return timetable.First
	case strings.Contains(name, "2"):
		return timetable.Second
	case strings.Contains(name, "暑"):
		return timetable.Summer
	case strings.Contains(name, "寒"):
		return timetable.Winter
	default:
		return timetable.First
	}
}

// IsLoginRedirect reports whether body is the auto-submitting page the
// portal serves instead of data when the session needs a ticket.
func IsLoginRedirect(body []byte) bool {
	return loginMarkerRe.Match(body)
}

// ExtractTicketRedirect finds the ticket and form action on a login
// redirect page and returns the action URL, resolved against base, with the
// ticket appended as a query parameter.
func ExtractTicketRedirect(body []byte, base *url.URL) (*url.URL, error) {
	ticket := ticketRe.FindSubmatch(body)
	if ticket == nil {
		ticket = ticketAltRe.FindSubmatch(body)
	}
	if ticket == nil {
		return nil, timetable.NewSchemaError("login redirect", "ticket", timetable.ErrTicketNotFound)
	}
	action := formActionRe.FindSubmatch(body)
	if action == nil {
		return nil, timetable.NewSchemaError("login redirect", "action", timetable.ErrTicketNotFound)
	}

	target, err := url.Parse(htmlUnescape(string(action[1])))
	if err != nil {
		return nil, timetable.NewSchemaError("login redirect", "action", errors.Wrap(timetable.ErrTicketNotFound, err.Error()))
	}
	if base != nil {
		target = base.ResolveReference(target)
	}
	query := target.Query()
	query.Set("ticket", htmlUnescape(string(ticket[1])))
	target.RawQuery = query.Encode()
	return target, nil
}

func htmlUnescape(s string) string {
	return strings.NewReplacer("&amp;", "&", "&quot;", `"`, "&#39;", "'").Replace(s)
}

// flexStrings decodes a string, a list of strings or null into a list,
// dropping empty and "null" placeholders. Non-string list items are ignored.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && s != "null" {
			out = append(out, s)
		}
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		add(single)
		*f = out
		return nil
	}
	var list []interface{}
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			add(s)
		}
	}
	*f = out
	return nil
}

type printLesson struct {
	CourseName  *string     `json:"courseName"`
	LessonCode  *string     `json:"lessonCode"`
	Weekday     *int        `json:"weekday"`
	StartUnit   *int        `json:"startUnit"`
	EndUnit     *int        `json:"endUnit"`
	Teachers    flexStrings `json:"teachers"`
	Room        flexStrings `json:"room"`
	WeekIndexes []int       `json:"weekIndexes"`
}

func (l printLesson) valid() bool {
	return l.CourseName != nil && l.LessonCode != nil && l.Weekday != nil &&
		l.StartUnit != nil && l.EndUnit != nil
}

func zeroBased(v int) int {
	if v <= 1 {
		return 0
	}
	return v - 1
}

// ParsePrintData extracts lessons from the course table print data. The
// payload is either {studentTableVms:[{activities:[...]}]} or a flat map of
// lesson objects. Lessons missing a required field are skipped and counted.
func ParsePrintData(body []byte) ([]timetable.RawLessonFragment, int, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, 0, timetable.NewSchemaError("print data", "", err)
	}

	var raws []json.RawMessage
	if vms, ok := root["studentTableVms"]; ok {
		var tables []struct {
			Activities []json.RawMessage `json:"activities"`
		}
		if err := json.Unmarshal(vms, &tables); err != nil {
			return nil, 0, timetable.NewSchemaError("print data", "studentTableVms", err)
		}
		for _, table := range tables {
			raws = append(raws, table.Activities...)
		}
	} else {
		keys := make([]string, 0, len(root))
		for k := range root {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			raws = append(raws, root[k])
		}
	}

	fragments := make([]timetable.RawLessonFragment, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		var lesson printLesson
		if err := json.Unmarshal(raw, &lesson); err != nil || !lesson.valid() {
			skipped++
			continue
		}
		fragments = append(fragments, timetable.RawLessonFragment{
			CourseName: *lesson.CourseName,
			CourseCode: *lesson.LessonCode,
			Teacher:    strings.Join(lesson.Teachers, ", "),
			Location:   strings.Join(lesson.Room, ", "),
			Weekday:    zeroBased(*lesson.Weekday),
			Start:      zeroBased(*lesson.StartUnit),
			End:        zeroBased(*lesson.EndUnit),
			Weeks:      lesson.WeekIndexes,
		})
	}
	return fragments, skipped, nil
}
