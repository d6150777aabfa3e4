package scraper

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"campus-timetable/timetable"
)

var (
	taskActivityRe = regexp.MustCompile(`new TaskActivity\(".*","(.*)","(\d+)\((.*)\)","(.*)\(.*\)","(.*?)","(.*)","([01]+)"\);`)
	activityTimeRe = regexp.MustCompile(`index\s*=\s*(\d+)\s*\*\s*unitCount\s*\+\s*(\d+)`)
	courseIDsRe    = regexp.MustCompile(`bg\.form\.addInput\(form,\s*"ids",\s*"(\d+)"\);`)
	semesterIDRe   = regexp.MustCompile(`empty:\s*"false",\s*onChange:\s*"",\s*value:\s*"(\d+)"`)
)

// CourseTableParams are the hidden parameters the legacy course table needs.
type CourseTableParams struct {
	SemesterID int
	IDs        string
}

// ParseCourseTableParams reads the student ids and selected semester from
// the legacy course table landing page.
func ParseCourseTableParams(html []byte) (CourseTableParams, error) {
	ids := courseIDsRe.FindSubmatch(html)
	if ids == nil {
		return CourseTableParams{}, timetable.NewSchemaError("course table page", "ids", errMissingMatch)
	}
	sem := semesterIDRe.FindSubmatch(html)
	if sem == nil {
		return CourseTableParams{}, timetable.NewSchemaError("course table page", "semester.id", errMissingMatch)
	}
	semesterID, err := strconv.Atoi(string(sem[1]))
	if err != nil {
		return CourseTableParams{}, timetable.NewSchemaError("course table page", "semester.id", err)
	}
	return CourseTableParams{SemesterID: semesterID, IDs: string(ids[1])}, nil
}

type activityBuilder struct {
	fragment timetable.RawLessonFragment
	placed   bool
}

func (b *activityBuilder) place(weekday, unit int) {
	b.fragment.Weekday = weekday
	if !b.placed {
		b.fragment.Start, b.fragment.End = unit, unit
		b.placed = true
		return
	}
	if unit < b.fragment.Start {
		b.fragment.Start = unit
	}
	if unit > b.fragment.End {
		b.fragment.End = unit
	}
}

// ParseTaskActivityScript extracts lessons from the legacy course table
// page. The page builds its grid in an inline script: each activity line is
// followed by one "index = weekday*unitCount+unit" line per occupied slot.
// Indices in the script are already 0-based and bit i of the week mask is
// week i. A page without such a script has no courses.
func ParseTaskActivityScript(html []byte) ([]timetable.RawLessonFragment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, timetable.NewSchemaError("course table", "", err)
	}

	var script string
	doc.Find("body > script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, "new TaskActivity") {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil, nil
	}

	var (
		fragments []timetable.RawLessonFragment
		current   *activityBuilder
	)
	flush := func() {
		if current != nil && current.placed {
			fragments = append(fragments, current.fragment)
		}
	}
	for _, line := range strings.Split(script, "\n") {
		if m := taskActivityRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &activityBuilder{fragment: timetable.RawLessonFragment{
				Teacher:    m[1],
				CourseCode: m[3],
				CourseName: m[4],
				Location:   m[6],
				Weeks:      weeksFromMask(m[7]),
			}}
			continue
		}
		if m := activityTimeRe.FindStringSubmatch(line); m != nil && current != nil {
			weekday, _ := strconv.Atoi(m[1])
			unit, _ := strconv.Atoi(m[2])
			current.place(weekday, unit)
		}
	}
	flush()
	return fragments, nil
}

func weeksFromMask(mask string) []int {
	var weeks []int
	for i, c := range mask {
		if c == '1' {
			weeks = append(weeks, i)
		}
	}
	return weeks
}
