package googlecalendar

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"campus-timetable/logger"
	"campus-timetable/timetable"
)

const (
	ownerProperty = "campusTimetable"
	timeZone      = "Asia/Shanghai"
)

// Syncer mirrors a semester's courses into a Google calendar. Only events
// it created itself are touched.
type Syncer struct {
	service    *calendar.Service
	calendarID string
	logger     logger.Logger
}

var _ timetable.CalendarExporter = (*Syncer)(nil)

func NewSyncer(service *calendar.Service, calendarID string, log logger.Logger) *Syncer {
	if log == nil {
		log = logger.Discard
	}
	return &Syncer{service: service, calendarID: calendarID, logger: log}
}

// Export deletes stale events, updates changed ones and inserts the rest.
func (s *Syncer) Export(ctx context.Context, semester timetable.Semester, courses []timetable.Course) error {
	wanted := make(map[string]*calendar.Event)
	for _, c := range courses {
		occurrences, err := c.Occurrences(semester)
		if err != nil {
			return err
		}
		for _, o := range occurrences {
			id, event := s.toEvent(o)
			wanted[id] = event
		}
	}

	existingEvents, err := s.GetAllEvents(ctx)
	if err != nil {
		return err
	}
	existing := make(map[string]*calendar.Event)
	for _, event := range existingEvents {
		if event == nil || event.Status == "cancelled" || event.Start == nil || event.End == nil {
			continue
		}
		existing[generateEventID(event.Summary, event.Start.DateTime, event.End.DateTime)] = event
	}

	var deleted, updated, inserted int
	for id, event := range existing {
		if _, found := wanted[id]; found {
			continue
		}
		err := s.service.Events.Delete(s.calendarID, event.Id).Context(ctx).Do()
		if err != nil && !isGone(err) {
			return errors.Wrapf(err, "delete event %s", event.Summary)
		}
		deleted++
	}

	for id, event := range wanted {
		if old, found := existing[id]; found {
			if old.Location == event.Location && old.Description == event.Description {
				continue
			}
			if _, err := s.service.Events.Update(s.calendarID, old.Id, event).Context(ctx).Do(); err != nil {
				return errors.Wrapf(err, "update event %s", event.Summary)
			}
			updated++
			continue
		}
		if _, err := s.service.Events.Insert(s.calendarID, event).Context(ctx).Do(); err != nil {
			return errors.Wrapf(err, "insert event %s", event.Summary)
		}
		inserted++
	}

	s.logger.Info("synced google calendar", map[string]interface{}{
		"semester": semester.Name(), "deleted": deleted, "updated": updated, "inserted": inserted,
	})
	return nil
}

// GetAllEvents lists the events this syncer owns, following page tokens.
func (s *Syncer) GetAllEvents(ctx context.Context) ([]*calendar.Event, error) {
	var all []*calendar.Event
	pageToken := ""
	for {
		call := s.service.Events.List(s.calendarID).
			PrivateExtendedProperty(ownerProperty + "=1").
			ShowDeleted(false).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		events, err := call.Do()
		if err != nil {
			return nil, errors.Wrap(err, "list google calendar events")
		}
		all = append(all, events.Items...)

		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return all, nil
}

func (s *Syncer) toEvent(o timetable.Occurrence) (string, *calendar.Event) {
	loc := timetable.CampusLocation
	start := o.Start.In(loc).Format(time.RFC3339)
	end := o.End.In(loc).Format(time.RFC3339)
	return generateEventID(o.Course.Name, start, end), &calendar.Event{
		Summary:     o.Course.Name,
		Location:    o.Course.Location,
		Description: describe(o.Course),
		Start:       &calendar.EventDateTime{DateTime: start, TimeZone: timeZone},
		End:         &calendar.EventDateTime{DateTime: end, TimeZone: timeZone},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{ownerProperty: "1"},
		},
	}
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && (gerr.Code == http.StatusGone || gerr.Code == http.StatusNotFound)
}

func generateEventID(summary, start, end string) string {
	hash := md5.New()
	hash.Write([]byte(summary + start + end))
	return hex.EncodeToString(hash.Sum(nil))
}
