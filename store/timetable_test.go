package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-timetable/timetable"
)

func TestLoadUsesContextStartDate(t *testing.T) {
	start := time.Date(2024, 9, 9, 0, 0, 0, 0, timetable.CampusLocation)
	timetable.NowFunc = func() time.Time { return start.AddDate(0, 0, 9) }
	defer func() { timetable.NowFunc = time.Now }()

	s, err := Open(cachePath(t, timetable.Undergraduate), newUndergradSource(), nil)
	require.NoError(t, err)

	var progress []float64
	tt, err := s.Load(context.Background(), map[int]time.Time{484: start}, func(p float64) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.True(t, tt.Semester.Equal(autumn))
	require.NotNil(t, tt.Semester.StartDate)
	assert.Equal(t, 2, tt.Week)
	assert.Equal(t, []float64{1}, progress)

	assert.Len(t, tt.CoursesInWeek(2), 2)
	assert.Len(t, tt.CoursesInWeek(5), 0)
	first, last := tt.WeekRange()
	assert.Equal(t, 1, first)
	assert.Equal(t, 6, last)

	require.NotNil(t, tt.WeekStart())
	assert.True(t, time.Date(2024, 9, 16, 0, 0, 0, 0, timetable.CampusLocation).Equal(*tt.WeekStart()))
	assert.Len(t, tt.CalendarMap(), 2)
	assert.Len(t, tt.FilteredSemesters(start), 2)
}

func TestLoadFallsBackToLatestSemester(t *testing.T) {
	src := newUndergradSource()
	src.current = nil
	s, err := Open(cachePath(t, timetable.Undergraduate), src, nil)
	require.NoError(t, err)

	tt, err := s.Load(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, tt.Semester.Equal(autumn))
	// no start date: first week of the range
	assert.Equal(t, 1, tt.Week)
	assert.Nil(t, tt.WeekStart())
}

func TestLoadCachedAvoidsRefetch(t *testing.T) {
	src := newUndergradSource()
	s, err := Open(cachePath(t, timetable.Undergraduate), src, nil)
	require.NoError(t, err)

	_, err = s.Load(context.Background(), nil, nil)
	require.NoError(t, err)
	_, err = s.LoadCached(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.semesterCalls)
	assert.Equal(t, int32(1), src.courseCalls)
}

func TestLoadIgnoresStartDatesForGraduates(t *testing.T) {
	reported := time.Date(2024, 9, 9, 0, 0, 0, 0, timetable.CampusLocation)
	autumnGrad := timetable.Semester{Year: 2024, Type: timetable.First, StartDate: &reported, WeekCount: 18}
	springGrad := timetable.Semester{Year: 2023, Type: timetable.Second, WeekCount: 18}
	src := &fakeSource{
		studentType: timetable.Graduate,
		semesters:   []timetable.Semester{autumnGrad, springGrad},
		current:     &autumnGrad,
	}
	s, err := Open(cachePath(t, timetable.Graduate), src, nil)
	require.NoError(t, err)

	override := time.Date(2020, 1, 6, 0, 0, 0, 0, timetable.CampusLocation)
	tt, err := s.Load(context.Background(), map[int]time.Time{0: override}, nil)
	require.NoError(t, err)

	require.NotNil(t, tt.Semester.StartDate)
	assert.True(t, reported.Equal(*tt.Semester.StartDate))
	for _, sem := range tt.Semesters {
		if sem.StartDate != nil {
			assert.False(t, override.Equal(*sem.StartDate), sem.Name())
		}
	}
}
