package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"campus-timetable/logger"
	"campus-timetable/timetable"
)

type GraduateEndpoints struct {
	IndexURL string `mapstructure:"index_url" json:"index_url" validate:"required,url"`
	DataURL  string `mapstructure:"data_url" json:"data_url" validate:"required,url"`
}

var DefaultGraduateEndpoints = GraduateEndpoints{
	IndexURL: "https://zlapp.fudan.edu.cn/fudanyjskb/wap/default/get-index",
	DataURL:  "https://zlapp.fudan.edu.cn/fudanyjskb/wap/default/get-data",
}

// GraduateSource loads semesters and courses from the graduate system,
// which only serves the timetable one week at a time.
type GraduateSource struct {
	auth      Authenticator
	endpoints GraduateEndpoints
	fetcher   WeeklyFetcher
	logger    logger.Logger
}

func NewGraduateSource(auth Authenticator, endpoints GraduateEndpoints, concurrency int, log logger.Logger) *GraduateSource {
	if log == nil {
		log = logger.Discard
	}
	return &GraduateSource{
		auth:      auth,
		endpoints: endpoints,
		fetcher:   WeeklyFetcher{Concurrency: concurrency},
		logger:    log,
	}
}

func (s *GraduateSource) StudentType() timetable.StudentType {
	return timetable.Graduate
}

func (s *GraduateSource) FetchSemesters(ctx context.Context) ([]timetable.Semester, *timetable.Semester, error) {
	req, err := newGetRequest(ctx, s.endpoints.IndexURL)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	semesters, current, err := ParseGraduateSemesters(body)
	if err != nil {
		return nil, nil, err
	}
	if len(semesters) == 0 {
		return nil, nil, timetable.ErrNoSemesters
	}
	return semesters, current, nil
}

// FetchCourses fetches every week of semester concurrently and merges them.
func (s *GraduateSource) FetchCourses(ctx context.Context, semester timetable.Semester, progress timetable.ProgressFunc) ([]timetable.Course, error) {
	byWeek, err := s.fetcher.FetchAll(ctx, semester.WeekCount, func(ctx context.Context, week int) ([]timetable.RawLessonFragment, error) {
		return s.fetchWeek(ctx, semester, week)
	}, progress)
	if err != nil {
		return nil, err
	}
	courses := timetable.MergeWeekly(byWeek, semester.WeekCount)
	s.logger.Debug("graduate courses merged", map[string]interface{}{"semester": semester.Name(), "courses": len(courses)})
	return courses, nil
}

func (s *GraduateSource) fetchWeek(ctx context.Context, semester timetable.Semester, week int) ([]timetable.RawLessonFragment, error) {
	term := "2"
	if semester.Type == timetable.First {
		term = "1"
	}
	form := url.Values{
		"year": {fmt.Sprintf("%d-%d", semester.Year, semester.Year+1)},
		"term": {term},
		"week": {strconv.Itoa(week)},
		"type": {"1"},
	}
	req, err := newFormRequest(ctx, s.endpoints.DataURL, form)
	if err != nil {
		return nil, err
	}
	body, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseGraduateWeek(body)
}
