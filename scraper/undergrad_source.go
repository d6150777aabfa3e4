package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"campus-timetable/logger"
	"campus-timetable/timetable"
)

// UndergraduateEndpoints are the undergraduate portal URLs. PrintDataURL
// takes the semester id as its only format verb.
type UndergraduateEndpoints struct {
	ExamTableURL        string `mapstructure:"exam_table_url" json:"exam_table_url" validate:"required,url"`
	SemesterCalendarURL string `mapstructure:"semester_calendar_url" json:"semester_calendar_url" validate:"required,url"`
	PrintDataURL        string `mapstructure:"print_data_url" json:"print_data_url" validate:"required,contains=%d"`
	CourseTableIndexURL string `mapstructure:"course_table_index_url" json:"course_table_index_url" validate:"required,url"`
	CourseTableURL      string `mapstructure:"course_table_url" json:"course_table_url" validate:"required,url"`
}

var DefaultUndergraduateEndpoints = UndergraduateEndpoints{
	ExamTableURL:        "https://jwfw.fudan.edu.cn/eams/stdExamTable!examTable.action",
	SemesterCalendarURL: "https://jwfw.fudan.edu.cn/eams/dataQuery.action",
	PrintDataURL:        "https://fdjwgl.fudan.edu.cn/student/for-std/course-table/semester/%d/print-data",
	CourseTableIndexURL: "https://jwfw.fudan.edu.cn/eams/courseTableForStd.action",
	CourseTableURL:      "https://jwfw.fudan.edu.cn/eams/courseTableForStd!courseTable.action",
}

// UndergraduateSource loads semesters and courses from the undergraduate portal.
type UndergraduateSource struct {
	auth      Authenticator
	endpoints UndergraduateEndpoints
	logger    logger.Logger
	// Legacy reads the inline-script course table instead of print data.
	Legacy bool
}

func NewUndergraduateSource(auth Authenticator, endpoints UndergraduateEndpoints, log logger.Logger) *UndergraduateSource {
	if log == nil {
		log = logger.Discard
	}
	return &UndergraduateSource{auth: auth, endpoints: endpoints, logger: log}
}

func (s *UndergraduateSource) StudentType() timetable.StudentType {
	return timetable.Undergraduate
}

// FetchSemesters returns all semesters and the one the portal marks as
// active. Start dates are never provided by the portal.
func (s *UndergraduateSource) FetchSemesters(ctx context.Context) ([]timetable.Semester, *timetable.Semester, error) {
	// the exam table sets the semester cookie the calendar query depends on
	warmup, err := newGetRequest(ctx, s.endpoints.ExamTableURL)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.auth.Authenticate(ctx, warmup); err != nil {
		return nil, nil, err
	}

	req, err := newFormRequest(ctx, s.endpoints.SemesterCalendarURL, url.Values{"dataType": {"semesterCalendar"}})
	if err != nil {
		return nil, nil, err
	}
	body, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	semesters, activeID, err := ParseLegacySemesterList(body)
	if err != nil {
		return nil, nil, err
	}
	if len(semesters) == 0 {
		return nil, nil, timetable.ErrNoSemesters
	}

	var current *timetable.Semester
	for i := range semesters {
		if semesters[i].SemesterID == activeID {
			sem := semesters[i]
			current = &sem
			break
		}
	}
	s.logger.Debug("undergraduate semesters parsed", map[string]interface{}{"count": len(semesters), "active": activeID})
	return semesters, current, nil
}

// FetchCourses loads and merges the course table of semester.
func (s *UndergraduateSource) FetchCourses(ctx context.Context, semester timetable.Semester, progress timetable.ProgressFunc) ([]timetable.Course, error) {
	var (
		fragments []timetable.RawLessonFragment
		err       error
	)
	if s.Legacy {
		fragments, err = s.fetchLegacy(ctx, semester)
	} else {
		fragments, err = s.fetchPrintData(ctx, semester)
	}
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(1)
	}
	return timetable.MergeFlat(fragments, semester.WeekCount), nil
}

func (s *UndergraduateSource) fetchPrintData(ctx context.Context, semester timetable.Semester) ([]timetable.RawLessonFragment, error) {
	target := fmt.Sprintf(s.endpoints.PrintDataURL, semester.SemesterID)
	body, err := s.getFollowingTicket(ctx, target)
	if err != nil {
		return nil, err
	}
	fragments, skipped, err := ParsePrintData(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Debug("skipped malformed lessons", map[string]interface{}{"semester": semester.SemesterID, "skipped": skipped})
	}
	return fragments, nil
}

// getFollowingTicket fetches target. When the portal answers with a login
// redirect page, the ticket is redeemed once and target is fetched again; a
// second redirect page is an error.
func (s *UndergraduateSource) getFollowingTicket(ctx context.Context, target string) ([]byte, error) {
	req, err := newGetRequest(ctx, target)
	if err != nil {
		return nil, err
	}
	body, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !IsLoginRedirect(body) {
		return body, nil
	}

	redirect, err := ExtractTicketRedirect(body, req.URL)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("redeeming login ticket", map[string]interface{}{"action": redirect.Host + redirect.Path})
	ticketReq, err := newGetRequest(ctx, redirect.String())
	if err != nil {
		return nil, err
	}
	if _, err := s.auth.Authenticate(ctx, ticketReq); err != nil {
		return nil, err
	}

	retry, err := newGetRequest(ctx, target)
	if err != nil {
		return nil, err
	}
	body, err = s.auth.Authenticate(ctx, retry)
	if err != nil {
		return nil, err
	}
	if IsLoginRedirect(body) {
		return nil, timetable.NewSchemaError("print data", "", errors.Wrap(timetable.ErrTicketNotFound, "still redirected after redeeming ticket"))
	}
	return body, nil
}

func (s *UndergraduateSource) fetchLegacy(ctx context.Context, semester timetable.Semester) ([]timetable.RawLessonFragment, error) {
	indexReq, err := newGetRequest(ctx, s.endpoints.CourseTableIndexURL)
	if err != nil {
		return nil, err
	}
	page, err := s.auth.Authenticate(ctx, indexReq)
	if err != nil {
		return nil, err
	}
	params, err := ParseCourseTableParams(page)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"ignoreHead":   {"1"},
		"semester.id":  {strconv.Itoa(semester.SemesterID)},
		"startWeek":    {"1"},
		"setting.kind": {"std"},
		"ids":          {params.IDs},
	}
	req, err := newFormRequest(ctx, s.endpoints.CourseTableURL, form)
	if err != nil {
		return nil, err
	}
	body, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseTaskActivityScript(body)
}
