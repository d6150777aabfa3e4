package scraper

import (
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-timetable/timetable"
)

const semesterCalendarFixture = `{yearDom:"<tr>
<td class='calendar-bar-td-blankBorder' index='0'>1994-1995</td>
<td class='calendar-bar-td-blankBorder' index='1'>1995-1996</td>
</tr>",semesters:{y0:[{id:163,schoolYear:"1994-1995",name:"1"},
{id:164,schoolYear:"1994-1995",name:"2"}],
y29:[{id:444,schoolYear:"2023-2024",name:"1"},{id:465,schoolYear:"2023-2024",name:"寒假"},{id:464,schoolYear:"2023-2024",name:"2"},{id:466,schoolYear:"2023-2024",name:"暑期"}],
y30:[{id:500,name:"1"},{schoolYear:"2024-2025",name:"1"}]},
yearIndex:"29",termIndex:"2",semesterId:"464"}`

func TestParseLegacySemesterList(t *testing.T) {
	semesters, active, err := ParseLegacySemesterList([]byte(semesterCalendarFixture))
	require.NoError(t, err)
	assert.Equal(t, 464, active)
	require.Len(t, semesters, 6)

	assert.Equal(t, timetable.Semester{Year: 1994, Type: timetable.First, SemesterID: 163, WeekCount: 18}, semesters[0])
	assert.Equal(t, timetable.Semester{Year: 1994, Type: timetable.Second, SemesterID: 164, WeekCount: 18}, semesters[1])

	types := map[int]timetable.SemesterType{}
	for _, s := range semesters[2:] {
		assert.Equal(t, 2023, s.Year)
		assert.Nil(t, s.StartDate)
		types[s.SemesterID] = s.Type
	}
	assert.Equal(t, map[int]timetable.SemesterType{
		444: timetable.First,
		465: timetable.Winter,
		464: timetable.Second,
		466: timetable.Summer,
	}, types)
}

func TestParseLegacySemesterListActiveID(t *testing.T) {
	const list = `semesters:{y29:[{id:444,schoolYear:"2023-2024",name:"1"},{id:464,schoolYear:"2023-2024",name:"2"}]}`
	tests := []struct {
		name   string
		suffix string
		want   int
	}{
		{name: "quoted", suffix: `,semesterId:"464"`, want: 464},
		{name: "bare number", suffix: `,semesterId:444`, want: 444},
		{name: "null", suffix: `,semesterId:null`, want: 0},
		{name: "object", suffix: `,semesterId:{value:1}`, want: 0},
		{name: "empty string", suffix: `,semesterId:""`, want: 0},
		{name: "absent", suffix: ``, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			semesters, active, err := ParseLegacySemesterList([]byte("{" + list + tc.suffix + "}"))
			require.NoError(t, err)
			assert.Len(t, semesters, 2)
			assert.Equal(t, tc.want, active)
		})
	}
}

func TestParseLegacySemesterListRejectsGarbage(t *testing.T) {
	_, _, err := ParseLegacySemesterList([]byte(`<html>maintenance</html>`))
	require.Error(t, err)
	assert.True(t, timetable.IsSchemaError(err))
}

const redirectPage = `<html><body onload="doSubmit()">
<form id="logon" method="get" action="/student/sso/login?next=%2Fhome&amp;lang=zh">
<input type="hidden" id="ticket" name="ticket" value="ST-1024-abcXYZ" />
</form></body></html>`

func TestExtractTicketRedirect(t *testing.T) {
	assert.True(t, IsLoginRedirect([]byte(redirectPage)))
	assert.False(t, IsLoginRedirect([]byte(`{"studentTableVms":[]}`)))

	base, _ := url.Parse("https://fdjwgl.fudan.edu.cn/student/for-std/course-table/semester/464/print-data")
	target, err := ExtractTicketRedirect([]byte(redirectPage), base)
	require.NoError(t, err)
	assert.Equal(t, "fdjwgl.fudan.edu.cn", target.Host)
	assert.Equal(t, "/student/sso/login", target.Path)
	assert.Equal(t, "ST-1024-abcXYZ", target.Query().Get("ticket"))
	assert.Equal(t, "zh", target.Query().Get("lang"))
}

func TestExtractTicketRedirectMissingParts(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{name: "no ticket", page: `<body onload="doSubmit()"><form action="/x"></form></body>`},
		{name: "no action", page: `<body onload="doSubmit()"><input id="ticket" value="ST-1"/></body>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractTicketRedirect([]byte(tt.page), nil)
			assert.True(t, errors.Is(err, timetable.ErrTicketNotFound))
		})
	}
}

func TestParsePrintDataNested(t *testing.T) {
	body := `{"studentTableVms":[{"activities":[
		{"courseName":"Circuits","lessonCode":"EE201.01","weekday":2,"startUnit":3,"endUnit":4,"teachers":["Wang","", "null"],"room":"A101","weekIndexes":[1,2,3]},
		{"courseName":"Circuits","lessonCode":"EE201.01","weekday":2,"startUnit":3,"endUnit":4,"teachers":"Zhao","room":["B202"],"weekIndexes":[1,2,3]},
		{"courseName":"Broken","weekday":1,"startUnit":1,"endUnit":2},
		{"courseName":"Early","lessonCode":"X1","weekday":0,"startUnit":0,"endUnit":1,"teachers":null,"room":null,"weekIndexes":[5]}
	]}]}`

	fragments, skipped, err := ParsePrintData([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, fragments, 3)

	assert.Equal(t, timetable.RawLessonFragment{
		CourseName: "Circuits", CourseCode: "EE201.01", Teacher: "Wang", Location: "A101",
		Weekday: 1, Start: 2, End: 3, Weeks: []int{1, 2, 3},
	}, fragments[0])
	assert.Equal(t, "Zhao", fragments[1].Teacher)
	assert.Equal(t, "B202", fragments[1].Location)

	// indices floor at zero
	assert.Equal(t, 0, fragments[2].Weekday)
	assert.Equal(t, 0, fragments[2].Start)
	assert.Equal(t, 0, fragments[2].End)
	assert.Empty(t, fragments[2].Location)

	courses := timetable.MergeFlat(fragments, 18)
	require.Len(t, courses, 2)
	assert.Equal(t, "A101, B202", courses[1].Location)
	assert.Equal(t, "Wang, Zhao", courses[1].Teacher)
}

func TestParsePrintDataFlatMap(t *testing.T) {
	body := `{
		"b":{"courseName":"Optics","lessonCode":"PHY3","weekday":5,"startUnit":6,"endUnit":7,"teachers":["Sun"],"room":"H2","weekIndexes":[2,4,6]},
		"a":{"courseName":"Algebra","lessonCode":"MATH1","weekday":1,"startUnit":1,"endUnit":2,"teachers":["Li"],"room":"H1","weekIndexes":[1]},
		"meta":"not a lesson"
	}`
	fragments, skipped, err := ParsePrintData([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, fragments, 2)
	assert.Equal(t, "MATH1", fragments[0].CourseCode)
	assert.Equal(t, "PHY3", fragments[1].CourseCode)
	assert.Equal(t, 4, fragments[1].Weekday)
}

func TestParsePrintDataNotJSON(t *testing.T) {
	_, _, err := ParsePrintData([]byte(redirectPage))
	assert.True(t, timetable.IsSchemaError(err))
}
