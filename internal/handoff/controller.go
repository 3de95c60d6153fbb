package handoff

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"regexp"
	"strings"
	"time"

	"salonvox/internal/domain"
	"salonvox/internal/events"
	"salonvox/internal/metrics"

	"github.com/rs/zerolog"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Controller finalizes a phone booking through its web confirmation step.
// Resolve is read-only; Finalize consumes the token exactly once, on the
// first successful email submission.
type Controller struct {
	pending   domain.PendingRepository
	scheduler domain.Scheduler
	notifier  domain.Notifier
	bookings  domain.BookingLog
	eventBus  domain.EventPublisher
	salonName string
	logger    *zerolog.Logger
	tmpl      *template.Template
}

func NewController(
	pending domain.PendingRepository,
	scheduler domain.Scheduler,
	notifier domain.Notifier,
	bookings domain.BookingLog,
	eventBus domain.EventPublisher,
	salonName string,
	logger *zerolog.Logger,
) *Controller {
	return &Controller{
		pending:   pending,
		scheduler: scheduler,
		notifier:  notifier,
		bookings:  bookings,
		eventBus:  eventBus,
		salonName: salonName,
		logger:    logger,
		tmpl:      template.Must(template.New("handoff").Parse(pagesHTML)),
	}
}

// HandleForm resolves a token into the pre-filled confirmation form.
// A missing token and an expired one render the same page on purpose.
func (c *Controller) HandleForm(w http.ResponseWriter, r *http.Request, token string) {
	pending, err := c.pending.Get(r.Context(), token)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Error().Err(err).Msg("failed to resolve pending confirmation")
		}
		c.render(w, http.StatusNotFound, "expired", nil)
		return
	}

	c.render(w, http.StatusOK, "form", formData{
		Token:     token,
		Name:      pending.Payload.Name,
		When:      pending.Payload.StartTime.Format("02/01/2006 15:04"),
		SalonName: c.salonName,
	})
}

// HandleSubmit validates the email and finalizes the booking. An invalid
// email re-renders the form and leaves the token untouched; once the token
// is consumed it stays consumed even if booking creation then fails.
func (c *Controller) HandleSubmit(w http.ResponseWriter, r *http.Request, token string) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	if !emailPattern.MatchString(email) {
		pending, err := c.pending.Get(r.Context(), token)
		if err != nil {
			c.render(w, http.StatusNotFound, "expired", nil)
			return
		}
		c.render(w, http.StatusOK, "form", formData{
			Token:     token,
			Name:      pending.Payload.Name,
			When:      pending.Payload.StartTime.Format("02/01/2006 15:04"),
			SalonName: c.salonName,
			Error:     "Adresse e-mail invalide, veuillez réessayer.",
		})
		return
	}

	// Single-use is enforced exactly here.
	pending, err := c.pending.Consume(r.Context(), token)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Error().Err(err).Msg("failed to consume pending confirmation")
		}
		c.render(w, http.StatusNotFound, "expired", nil)
		return
	}

	booking, err := c.scheduler.CreateBooking(r.Context(), pending.Payload.SchedulingHandle,
		pending.Payload.StartTime, pending.Payload.Name, email)
	if err != nil {
		c.logger.Error().Err(err).
			Str("service", string(pending.Payload.Service)).
			Time("start_time", pending.Payload.StartTime).
			Msg("booking creation failed after token consumption")
		_ = c.eventBus.PublishJSON(events.EventBookingFailed, events.BookingEventPayload{
			Phone:     pending.Payload.Phone,
			Name:      pending.Payload.Name,
			Service:   string(pending.Payload.Service),
			StartTime: pending.Payload.StartTime,
			Email:     email,
			Error:     err.Error(),
		})
		c.render(w, http.StatusBadGateway, "error", errorData{SalonName: c.salonName})
		return
	}

	booking.Service = pending.Payload.Service
	booking.ClientPhone = pending.Payload.Phone
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now()
	}

	if c.bookings != nil {
		if err := c.bookings.RecordBooking(r.Context(), booking); err != nil {
			c.logger.Error().Err(err).Msg("failed to record booking")
		}
	}

	recap := fmt.Sprintf("%s : votre rendez-vous du %s est confirmé pour %s.",
		c.salonName, booking.StartTime.Format("02/01/2006 15:04"), booking.ClientName)
	if booking.RescheduleURL != "" {
		recap += " Pour modifier : " + booking.RescheduleURL
	}
	if booking.CancelURL != "" {
		recap += " Pour annuler : " + booking.CancelURL
	}
	if err := c.notifier.SendText(r.Context(), booking.ClientPhone, recap); err != nil {
		c.logger.Error().Err(err).Msg("failed to send booking recap")
	}

	metrics.IncBookingFinalized()
	_ = c.eventBus.PublishJSON(events.EventBookingFinalized, events.BookingEventPayload{
		Phone:     booking.ClientPhone,
		Name:      booking.ClientName,
		Service:   string(booking.Service),
		StartTime: booking.StartTime,
		Email:     email,
	})

	c.render(w, http.StatusOK, "success", successData{
		SalonName:     c.salonName,
		Name:          booking.ClientName,
		When:          booking.StartTime.Format("02/01/2006 15:04"),
		RescheduleURL: booking.RescheduleURL,
		CancelURL:     booking.CancelURL,
	})
}

type formData struct {
	Token     string
	Name      string
	When      string
	SalonName string
	Error     string
}

type successData struct {
	SalonName     string
	Name          string
	When          string
	RescheduleURL string
	CancelURL     string
}

type errorData struct {
	SalonName string
}

func (c *Controller) render(w http.ResponseWriter, status int, page string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.tmpl.ExecuteTemplate(w, page, data); err != nil {
		c.logger.Error().Err(err).Str("page", page).Msg("failed to render page")
	}
}
