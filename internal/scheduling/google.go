package scheduling

import (
	"context"
	"fmt"
	"os"
	"time"

	"salonvox/internal/config"
	"salonvox/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendarClient implements the scheduling contract on top of a Google
// Calendar. The scheduling handle is a calendar ID; candidate slots are laid
// out on a fixed grid inside opening hours and filtered through free/busy.
type GoogleCalendarClient struct {
	service      *calendar.Service
	slotDuration time.Duration
	dayStartHour int
	dayEndHour   int
}

func NewGoogleCalendarClient(ctx context.Context, cfg config.GoogleCalendarConfig) (*GoogleCalendarClient, error) {
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %v", err)
	}

	return &GoogleCalendarClient{
		service:      srv,
		slotDuration: time.Duration(cfg.SlotDuration) * time.Minute,
		dayStartHour: cfg.DayStartHour,
		dayEndHour:   cfg.DayEndHour,
	}, nil
}

func (g *GoogleCalendarClient) ListAvailableStartTimes(ctx context.Context, handle string, from, to time.Time) ([]time.Time, error) {
	resp, err := g.service.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: handle}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	var busy []*calendar.TimePeriod
	if cal, ok := resp.Calendars[handle]; ok {
		busy = cal.Busy
	}

	var slots []time.Time
	for cursor := g.alignToGrid(from); cursor.Before(to); cursor = cursor.Add(g.slotDuration) {
		if cursor.Hour() < g.dayStartHour || cursor.Hour() >= g.dayEndHour {
			continue
		}
		if g.overlapsBusy(cursor, busy) {
			continue
		}
		slots = append(slots, cursor)
	}
	return slots, nil
}

func (g *GoogleCalendarClient) CreateBooking(ctx context.Context, handle string, start time.Time, name, email string) (*models.Booking, error) {
	event := &calendar.Event{
		Summary:     fmt.Sprintf("Rendez-vous — %s", name),
		Description: fmt.Sprintf("Réservé par téléphone pour %s (%s)", name, email),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: start.Add(g.slotDuration).Format(time.RFC3339)},
		Attendees:   []*calendar.EventAttendee{{Email: email, DisplayName: name}},
	}

	created, err := g.service.Events.Insert(handle, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	booking := &models.Booking{
		ClientName:  name,
		ClientEmail: email,
		StartTime:   start,
		CreatedAt:   time.Now(),
	}
	// Calendar has no invitee-scoped reschedule links; the event link is the
	// closest thing to a management handle.
	if created.HtmlLink != "" {
		booking.RescheduleURL = created.HtmlLink
	}
	return booking, nil
}

func (g *GoogleCalendarClient) alignToGrid(t time.Time) time.Time {
	aligned := t.Truncate(g.slotDuration)
	if aligned.Before(t) {
		aligned = aligned.Add(g.slotDuration)
	}
	return aligned
}

func (g *GoogleCalendarClient) overlapsBusy(start time.Time, busy []*calendar.TimePeriod) bool {
	end := start.Add(g.slotDuration)
	for _, period := range busy {
		busyStart, err1 := time.Parse(time.RFC3339, period.Start)
		busyEnd, err2 := time.Parse(time.RFC3339, period.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if start.Before(busyEnd) && busyStart.Before(end) {
			return true
		}
	}
	return false
}
