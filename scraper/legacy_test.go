package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const courseTableIndexPage = `<html><body><script>
semesterCalendar({empty:"false",onChange:"",value:"464"},"searchTable()");
if(jQuery("#courseTableType").val()=="std"){
  bg.form.addInput(form,"ids","987654");
} else {
  bg.form.addInput(form,"ids","");
}
</script></body></html>`

const courseTablePage = `<html><head><script>var ignored = 1;</script></head><body>
<script>var unitCount = 14;</script>
<script language="JavaScript">
var teachers = [];
activity = new TaskActivity("1001","Wang","12345(COMP110001.01)","Programming(COMP110001.01)","","H3108","0111111111111111100000000000000000000000000000000000");
index =1*unitCount+2;
table0.activities[index][table0.activities[index].length]=activity;
index =1*unitCount+3;
table0.activities[index][table0.activities[index].length]=activity;
activity = new TaskActivity("1002","Li","12346(MATH120001.02)","Calculus(MATH120001.02)","","H2201","0101010101010101010000000000000000000000000000000000");
index =4*unitCount+7;
table0.activities[index][table0.activities[index].length]=activity;
index =4*unitCount+5;
index =4*unitCount+6;
activity = new TaskActivity("1003","Zhou","12347(PE101.01)","Swimming(PE101.01)","","Pool","0100000000000000000000000000000000000000000000000000");
</script></body></html>`

func TestParseCourseTableParams(t *testing.T) {
	params, err := ParseCourseTableParams([]byte(courseTableIndexPage))
	require.NoError(t, err)
	assert.Equal(t, CourseTableParams{SemesterID: 464, IDs: "987654"}, params)

	_, err = ParseCourseTableParams([]byte(`<html></html>`))
	assert.Error(t, err)
}

func TestParseTaskActivityScript(t *testing.T) {
	fragments, err := ParseTaskActivityScript([]byte(courseTablePage))
	require.NoError(t, err)
	// the last activity never gets a slot and is dropped
	require.Len(t, fragments, 2)

	prog := fragments[0]
	assert.Equal(t, "Programming", prog.CourseName)
	assert.Equal(t, "COMP110001.01", prog.CourseCode)
	assert.Equal(t, "Wang", prog.Teacher)
	assert.Equal(t, "H3108", prog.Location)
	assert.Equal(t, 1, prog.Weekday)
	assert.Equal(t, 2, prog.Start)
	assert.Equal(t, 3, prog.End)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, prog.Weeks)

	calc := fragments[1]
	assert.Equal(t, 4, calc.Weekday)
	assert.Equal(t, 5, calc.Start)
	assert.Equal(t, 7, calc.End)
	assert.Equal(t, []int{1, 3, 5, 7, 9, 11, 13, 15, 17}, calc.Weeks)
}

func TestParseTaskActivityScriptWithoutCourses(t *testing.T) {
	fragments, err := ParseTaskActivityScript([]byte(`<html><body><script>var x;</script></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, fragments)
}
