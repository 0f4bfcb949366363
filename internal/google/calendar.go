package google

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/ARedaUni/teloshousemeet/internal/config"
	"github.com/ARedaUni/teloshousemeet/internal/logger"
	"github.com/ARedaUni/teloshousemeet/internal/matching"
	"github.com/ARedaUni/teloshousemeet/internal/repository"
)

const (
	// DefaultCalendarID targets the account's primary calendar
	DefaultCalendarID = "primary"
	// calendarPageSize is the max results per Events.List page
	calendarPageSize = 250
)

// EventWindow bounds the candidate search around a reference time
type EventWindow struct {
	PastDays   int
	FutureDays int
}

// WindowFromConfig builds the event window from matching configuration
func WindowFromConfig(cfg config.MatchingConfig) EventWindow {
	return EventWindow{
		PastDays:   cfg.WindowPastDays,
		FutureDays: cfg.WindowFutureDays,
	}
}

// settingReader looks up a stored setting (for testability)
type settingReader interface {
	Get(ctx context.Context, key string) (*repository.Setting, error)
}

// CalendarService fetches candidate events from Google Calendar
type CalendarService struct {
	oauthService *OAuthService
	settings     settingReader
	window       EventWindow
}

// NewCalendarService creates a calendar service. The calendar to read from is
// resolved per call from the stored calendar_id setting, falling back to the
// primary calendar. Settings may be nil.
func NewCalendarService(oauthService *OAuthService, settings settingReader, window EventWindow) *CalendarService {
	return &CalendarService{
		oauthService: oauthService,
		settings:     settings,
		window:       window,
	}
}

// resolveCalendarID returns the configured calendar or the primary calendar
// when no setting is stored.
func (s *CalendarService) resolveCalendarID(ctx context.Context) string {
	if s.settings == nil {
		return DefaultCalendarID
	}

	setting, err := s.settings.Get(ctx, repository.SettingCalendarID)
	if err != nil {
		return DefaultCalendarID
	}

	var id string
	if err := json.Unmarshal(setting.Value, &id); err != nil || id == "" {
		return DefaultCalendarID
	}
	return id
}

// CandidateEvents fetches every event within the window around reference,
// mapped to matcher candidates in calendar order.
func (s *CalendarService) CandidateEvents(ctx context.Context, reference time.Time) ([]matching.CandidateEvent, error) {
	client, err := s.oauthService.GetClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("get OAuth client: %w", err)
	}

	calSvc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create Calendar service: %w", err)
	}

	calendarID := s.resolveCalendarID(ctx)
	timeMin := reference.AddDate(0, 0, -s.window.PastDays).Format(time.RFC3339)
	timeMax := reference.AddDate(0, 0, s.window.FutureDays).Format(time.RFC3339)

	logger.Debug().
		Str("calendar", calendarID).
		Str("timeMin", timeMin).
		Str("timeMax", timeMax).
		Msg("fetching candidate calendar events")

	var candidates []matching.CandidateEvent
	var pageToken string
	for {
		req := calSvc.Events.List(calendarID).
			TimeMin(timeMin).
			TimeMax(timeMax).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(calendarPageSize)

		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		resp, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}

		for _, event := range resp.Items {
			candidate, ok := MapEvent(event)
			if !ok {
				continue
			}
			candidates = append(candidates, candidate)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	logger.Info().
		Str("calendar", calendarID).
		Int("candidates", len(candidates)).
		Msg("candidate calendar events fetched")

	return candidates, nil
}

// MapEvent converts a Google Calendar event to a matcher candidate. Cancelled
// events and events without a usable title are dropped.
func MapEvent(event *calendar.Event) (matching.CandidateEvent, bool) {
	if event == nil || event.Status == "cancelled" || event.Summary == "" {
		return matching.CandidateEvent{}, false
	}

	candidate := matching.CandidateEvent{
		ID:          event.Id,
		Title:       event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Organizer != nil {
		candidate.Organizer = event.Organizer.Email
	}

	for _, attendee := range event.Attendees {
		if attendee.Email == "" || attendee.Resource {
			continue
		}
		candidate.Attendees = append(candidate.Attendees, attendee.Email)
	}

	if event.Start != nil {
		start, allDay, err := parseEventTime(event.Start)
		if err != nil {
			logger.Warn().Err(err).Str("eventId", event.Id).Msg("unparseable event start time")
			return matching.CandidateEvent{}, false
		}
		candidate.Start = start
		candidate.AllDay = allDay
	}

	if event.End != nil {
		if end, _, err := parseEventTime(event.End); err == nil {
			candidate.End = end
		}
	}

	candidate.ConferenceLink = conferenceLink(event)

	return candidate, true
}

// parseEventTime handles both timed events (DateTime) and all-day events
// (date-only Date).
func parseEventTime(dt *calendar.EventDateTime) (time.Time, bool, error) {
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, false, err
	}
	if dt.Date != "" {
		t, err := time.Parse("2006-01-02", dt.Date)
		return t, true, err
	}
	return time.Time{}, false, fmt.Errorf("event time has neither dateTime nor date")
}

func conferenceLink(event *calendar.Event) string {
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData != nil {
		for _, entry := range event.ConferenceData.EntryPoints {
			if entry.EntryPointType == "video" && entry.Uri != "" {
				return entry.Uri
			}
		}
	}
	return ""
}
