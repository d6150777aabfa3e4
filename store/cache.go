package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"campus-timetable/timetable"
)

// cacheFile is the on-disk form of a Store. JSON objects cannot be keyed by
// a struct, so the course map is stored as a list of entries.
type cacheFile struct {
	StudentType timetable.StudentType `json:"studentType"`
	Semesters   []timetable.Semester  `json:"semesters"`
	Current     *timetable.Semester   `json:"current,omitempty"`
	Courses     []cacheEntry          `json:"courseMap"`
}

type cacheEntry struct {
	Semester timetable.Semester `json:"semester"`
	Courses  []timetable.Course `json:"courses"`
}

func (s *Store) snapshot() cacheFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := cacheFile{
		StudentType: s.source.StudentType(),
		Semesters:   cloneSemesters(s.semesters),
		Current:     cloneSemester(s.current),
		Courses:     make([]cacheEntry, 0, len(s.courses)),
	}
	for key, courses := range s.courses {
		sem, ok := timetable.FindSemester(s.semesters, key)
		if !ok {
			sem = timetable.Semester{Year: key.Year, Type: key.Type, SemesterID: key.SemesterID}
		}
		c.Courses = append(c.Courses, cacheEntry{Semester: sem, Courses: cloneCourses(courses)})
	}
	sort.Slice(c.Courses, func(i, j int) bool {
		return c.Courses[i].Semester.Less(c.Courses[j].Semester)
	})
	return c
}

// persist writes the current state through a temporary file so a crash
// never leaves a truncated cache behind.
func (s *Store) persist() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode timetable cache")
	}
	if err := ensureDir(s.path); err != nil {
		return errors.Wrapf(err, "create cache dir for %s", s.path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp cache")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp cache")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp cache")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "replace cache %s", s.path)
	}
	return nil
}
