package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"campus-timetable/logger"
	"campus-timetable/timetable"
)

// Source fetches timetable data for one student type.
type Source interface {
	StudentType() timetable.StudentType
	FetchSemesters(ctx context.Context) ([]timetable.Semester, *timetable.Semester, error)
	FetchCourses(ctx context.Context, semester timetable.Semester, progress timetable.ProgressFunc) ([]timetable.Course, error)
}

// CacheFileName returns the cache file used for a student type.
func CacheFileName(studentType timetable.StudentType) string {
	return string(studentType) + "-timetable.json"
}

// Store is the persisted timetable of one student type. Reads are served
// from memory; refreshes fetch without holding the lock and then swap the
// new state in and persist it.
type Store struct {
	path   string
	source Source
	logger logger.Logger

	mu        sync.RWMutex
	semesters []timetable.Semester
	current   *timetable.Semester
	courses   map[timetable.SemesterKey][]timetable.Course

	// writeMu serializes cache file writes; each write stores the state
	// current at the time it runs.
	writeMu sync.Mutex
}

// Open loads the cache at path. A cache written for another student type,
// or one that cannot be decoded, is deleted and the store starts empty.
func Open(path string, source Source, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Discard
	}
	s := &Store{
		path:    path,
		source:  source,
		logger:  log,
		courses: make(map[timetable.SemesterKey][]timetable.Course),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read cache %s", path)
	}

	var c cacheFile
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warn("discarding unreadable timetable cache", err, map[string]interface{}{"path": path})
		return s, s.removeCache()
	}
	if c.StudentType != source.StudentType() {
		s.logger.Info("discarding timetable cache of another student type", map[string]interface{}{
			"path": path, "cached": c.StudentType, "wanted": source.StudentType(),
		})
		return s, s.removeCache()
	}

	s.semesters = c.Semesters
	s.current = c.Current
	for _, entry := range c.Courses {
		s.courses[entry.Semester.Key()] = entry.Courses
	}
	return s, nil
}

func (s *Store) removeCache() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove cache %s", s.path)
	}
	return nil
}

func (s *Store) StudentType() timetable.StudentType {
	return s.source.StudentType()
}

// GetCachedSemesters returns the stored semesters, refreshing when none are stored.
func (s *Store) GetCachedSemesters(ctx context.Context) ([]timetable.Semester, *timetable.Semester, error) {
	s.mu.RLock()
	semesters, current := cloneSemesters(s.semesters), cloneSemester(s.current)
	s.mu.RUnlock()
	if len(semesters) > 0 {
		return semesters, current, nil
	}
	return s.GetRefreshedSemesters(ctx)
}

// GetRefreshedSemesters fetches the semester list and replaces the stored
// one. Start dates already known for a semester are kept when the source
// does not report one.
func (s *Store) GetRefreshedSemesters(ctx context.Context) ([]timetable.Semester, *timetable.Semester, error) {
	semesters, current, err := s.source.FetchSemesters(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(semesters) == 0 {
		return nil, nil, timetable.ErrNoSemesters
	}
	semesters = cloneSemesters(semesters)
	timetable.SortSemesters(semesters)

	s.mu.Lock()
	known := make(map[timetable.SemesterKey]*time.Time, len(s.semesters))
	for _, old := range s.semesters {
		known[old.Key()] = old.StartDate
	}
	for i := range semesters {
		if semesters[i].StartDate == nil {
			semesters[i].StartDate = known[semesters[i].Key()]
		}
	}
	if current != nil {
		if sem, ok := timetable.FindSemester(semesters, current.Key()); ok {
			current = &sem
		}
	}
	s.semesters = semesters
	s.current = cloneSemester(current)
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return nil, nil, err
	}
	return cloneSemesters(semesters), cloneSemester(current), nil
}

// GetCachedCourses returns the stored courses of semester, refreshing when
// none are stored.
func (s *Store) GetCachedCourses(ctx context.Context, semester timetable.Semester, progress timetable.ProgressFunc) ([]timetable.Course, error) {
	s.mu.RLock()
	courses, ok := s.courses[semester.Key()]
	s.mu.RUnlock()
	if ok {
		return cloneCourses(courses), nil
	}
	return s.GetRefreshedCourses(ctx, semester, progress)
}

// GetRefreshedCourses fetches and merges the courses of semester and stores
// them. Nothing is stored when the fetch fails.
func (s *Store) GetRefreshedCourses(ctx context.Context, semester timetable.Semester, progress timetable.ProgressFunc) ([]timetable.Course, error) {
	courses, err := s.source.FetchCourses(ctx, semester, progress)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []timetable.Course{}
	}

	s.mu.Lock()
	s.courses[semester.Key()] = cloneCourses(courses)
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return nil, err
	}
	return courses, nil
}

// SetSemesterStartDate records a start date chosen by the user.
func (s *Store) SetSemesterStartDate(semester timetable.Semester, date time.Time) error {
	s.mu.Lock()
	found := false
	for i := range s.semesters {
		if s.semesters[i].Equal(semester) {
			d := date
			s.semesters[i].StartDate = &d
			found = true
		}
	}
	if s.current != nil && s.current.Equal(semester) {
		d := date
		s.current.StartDate = &d
	}
	s.mu.Unlock()

	if !found {
		return errors.Errorf("unknown semester %s", semester.Name())
	}
	return s.persist()
}

// ApplyStartDateContext fills start dates from an id to date mapping.
func (s *Store) ApplyStartDateContext(startDates map[int]time.Time) error {
	if len(startDates) == 0 {
		return nil
	}
	s.mu.Lock()
	s.semesters = timetable.ReconcileStartDates(s.semesters, startDates)
	if s.current != nil {
		reconciled := timetable.ReconcileStartDates([]timetable.Semester{*s.current}, startDates)
		s.current = &reconciled[0]
	}
	s.mu.Unlock()
	return s.persist()
}

func cloneSemester(s *timetable.Semester) *timetable.Semester {
	if s == nil {
		return nil
	}
	c := *s
	if s.StartDate != nil {
		d := *s.StartDate
		c.StartDate = &d
	}
	return &c
}

func cloneSemesters(in []timetable.Semester) []timetable.Semester {
	if in == nil {
		return nil
	}
	out := make([]timetable.Semester, len(in))
	for i := range in {
		out[i] = *cloneSemester(&in[i])
	}
	return out
}

func cloneCourses(in []timetable.Course) []timetable.Course {
	out := make([]timetable.Course, len(in))
	for i, c := range in {
		c.OnWeeks = append([]int(nil), c.OnWeeks...)
		out[i] = c
	}
	return out
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
