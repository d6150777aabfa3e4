package scraper

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"campus-timetable/timetable"
)

// DefaultConcurrency bounds in-flight week requests so the portal session
// is not flooded.
const DefaultConcurrency = 6

// WeekFunc fetches and parses one week of a semester.
type WeekFunc func(ctx context.Context, week int) ([]timetable.RawLessonFragment, error)

// WeeklyFetcher fetches every week of a semester concurrently.
type WeeklyFetcher struct {
	Concurrency int
}

// FetchAll calls fetch for weeks 1..weekCount and collects the results by
// week. progress, when set, receives completed/weekCount after each week
// finishes; weeks finish in any order but the reported value only grows.
// The first failing week cancels the others and its error is returned
// as-is; results of the weeks that did succeed are discarded.
func (f WeeklyFetcher) FetchAll(ctx context.Context, weekCount int, fetch WeekFunc, progress timetable.ProgressFunc) (map[int][]timetable.RawLessonFragment, error) {
	if weekCount <= 0 {
		return nil, errors.Wrapf(timetable.ErrInvalidWeekCount, "got %d", weekCount)
	}
	limit := f.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if limit > weekCount {
		limit = weekCount
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var (
		mu        sync.Mutex
		completed int
		results   = make(map[int][]timetable.RawLessonFragment, weekCount)
	)
	for week := 1; week <= weekCount; week++ {
		week := week
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fragments, err := fetch(gctx, week)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			results[week] = fragments
			completed++
			if progress != nil {
				progress(float64(completed) / float64(weekCount))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
