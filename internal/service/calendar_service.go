package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/noah-isme/schedbot-api/internal/models"
	"github.com/noah-isme/schedbot-api/pkg/config"
	appErrors "github.com/noah-isme/schedbot-api/pkg/errors"
)

type tokenLoader interface {
	Load(ctx context.Context) (*oauth2.Token, error)
}

// CalendarService wraps conflict checks, event creation and deletion against
// the remote Google calendar. Every operation requires a stored credential.
//
// Lookups and mutations are not transactional with respect to the remote
// service: a conflict check followed by a create can race with a concurrent
// external change. Accepted for this single-user, low-frequency workload.
type CalendarService struct {
	tokens     tokenLoader
	oauth      *oauth2.Config
	cfg        config.GoogleConfig
	location   *time.Location
	metrics    *MetricsService
	logger     *zap.Logger
	newService func(ctx context.Context) (*calendar.Service, error)
}

// NewCalendarService constructs the gateway. The timezone must be a valid
// IANA name; event timestamps are built in that zone rather than by string
// concatenation so DST boundaries resolve correctly.
func NewCalendarService(tokens tokenLoader, oauthCfg *oauth2.Config, cfg config.GoogleConfig, metrics *MetricsService, logger *zap.Logger) (*CalendarService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load calendar timezone %q: %w", cfg.Timezone, err)
	}

	s := &CalendarService{
		tokens:   tokens,
		oauth:    oauthCfg,
		cfg:      cfg,
		location: location,
		metrics:  metrics,
		logger:   logger,
	}
	s.newService = s.authedService
	return s, nil
}

// observe records one remote calendar call.
func (s *CalendarService) observe(err error, started time.Time) {
	s.metrics.ObserveExternalCall("calendar", err, time.Since(started))
}

func (s *CalendarService) authedService(ctx context.Context) (*calendar.Service, error) {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, token)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "create calendar client")
	}
	return svc, nil
}

// civilTime combines a civil date and wall-clock time in the configured zone.
func (s *CalendarService) civilTime(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, s.location)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date or time")
	}
	return t, nil
}

// HasConflict reports whether any remote event intersects
// [startTime, endTime) on the given date. When the remote call fails the
// outcome depends on ConflictFailOpen: open treats no signal as no conflict
// (the original behavior), closed propagates the failure.
func (s *CalendarService) HasConflict(ctx context.Context, date, startTime, endTime string) (bool, error) {
	start, err := s.civilTime(date, startTime)
	if err != nil {
		return false, err
	}
	end, err := s.civilTime(date, endTime)
	if err != nil {
		return false, err
	}

	svc, err := s.newService(ctx)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	events, err := svc.Events.List(s.calendarID()).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	s.observe(err, started)
	if err != nil {
		if s.cfg.ConflictFailOpen {
			s.logger.Warn("conflict check failed, treating as no conflict", zap.Error(err))
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "conflict check failed")
	}

	return len(events.Items) > 0, nil
}

// CreateEvent inserts the draft as a remote event and returns a user-facing
// link. Completeness of the draft is the caller's precondition.
func (s *CalendarService) CreateEvent(ctx context.Context, draft models.EventDraft) (string, error) {
	start, err := s.civilTime(draft.Date, draft.StartTime)
	if err != nil {
		return "", err
	}
	end, err := s.civilTime(draft.Date, draft.EndTime)
	if err != nil {
		return "", err
	}

	event := &calendar.Event{
		Summary: draft.Title,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: s.cfg.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: s.cfg.Timezone,
		},
	}
	if draft.Location != "" {
		event.Location = draft.Location
	}
	if draft.Notes != "" {
		event.Description = draft.Notes
	}
	if draft.Recurrence != "" {
		event.Recurrence = []string{draft.Recurrence}
	}

	svc, err := s.newService(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	created, err := svc.Events.Insert(s.calendarID(), event).Context(ctx).Do()
	s.observe(err, started)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "failed to create event")
	}

	s.logger.Info("event created",
		zap.String("event_id", created.Id),
		zap.String("date", draft.Date),
		zap.String("start", draft.StartTime),
	)
	return created.HtmlLink, nil
}

// DeleteEvent removes a remote event by its opaque ID.
func (s *CalendarService) DeleteEvent(ctx context.Context, eventID string) error {
	svc, err := s.newService(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	err = svc.Events.Delete(s.calendarID(), eventID).Context(ctx).Do()
	s.observe(err, started)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "failed to delete event")
	}

	s.logger.Info("event deleted", zap.String("event_id", eventID))
	return nil
}

// FindEvent locates the first remote event starting within the minute
// [startTime, startTime+1m) on the given date. Returns an empty ID when no
// event matches; the user states date and time, never the opaque ID.
func (s *CalendarService) FindEvent(ctx context.Context, date, startTime string) (string, error) {
	start, err := s.civilTime(date, startTime)
	if err != nil {
		return "", err
	}

	svc, err := s.newService(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	events, err := svc.Events.List(s.calendarID()).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(start.Add(time.Minute).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	s.observe(err, started)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "event lookup failed")
	}

	for _, item := range events.Items {
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		eventStart, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		if !eventStart.Before(start) && eventStart.Before(start.Add(time.Minute)) {
			return item.Id, nil
		}
	}
	return "", nil
}

// ListUpcoming returns up to max upcoming events starting from now.
func (s *CalendarService) ListUpcoming(ctx context.Context, max int64) ([]models.CalendarEvent, error) {
	svc, err := s.newService(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	events, err := svc.Events.List(s.calendarID()).
		TimeMin(time.Now().In(s.location).Format(time.RFC3339)).
		MaxResults(max).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	s.observe(err, started)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "failed to list events")
	}

	result := make([]models.CalendarEvent, 0, len(events.Items))
	for _, item := range events.Items {
		event := models.CalendarEvent{
			ID:          item.Id,
			Title:       item.Summary,
			Location:    item.Location,
			Description: item.Description,
		}
		if len(item.Recurrence) > 0 {
			event.Recurrence = item.Recurrence[0]
		}
		if item.Start != nil {
			event.Start = parseEventTime(item.Start, s.location)
		}
		if item.End != nil {
			event.End = parseEventTime(item.End, s.location)
		}
		result = append(result, event)
	}
	return result, nil
}

func (s *CalendarService) calendarID() string {
	if s.cfg.CalendarID == "" {
		return "primary"
	}
	return s.cfg.CalendarID
}

// parseEventTime handles both timed events (DateTime) and all-day events
// (Date only).
func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) time.Time {
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t
		}
	}
	if edt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", edt.Date, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
