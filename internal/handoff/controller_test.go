package handoff

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"salonvox/internal/events"
	"salonvox/internal/models"
	"salonvox/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	booking     *models.Booking
	err         error
	createCalls int
}

func (f *fakeScheduler) ListAvailableStartTimes(ctx context.Context, handle string, from, to time.Time) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeScheduler) CreateBooking(ctx context.Context, handle string, start time.Time, name, email string) (*models.Booking, error) {
	f.createCalls++
	if f.err != nil {
		return nil, f.err
	}
	booking := *f.booking
	booking.ClientName = name
	booking.ClientEmail = email
	booking.StartTime = start
	return &booking, nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) SendText(ctx context.Context, to, body string) error {
	f.sent = append(f.sent, body)
	return nil
}

type fakeBookingLog struct {
	recorded []*models.Booking
}

func (f *fakeBookingLog) RecordBooking(ctx context.Context, booking *models.Booking) error {
	f.recorded = append(f.recorded, booking)
	return nil
}

func (f *fakeBookingLog) ListBookings(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	return f.recorded, nil
}

type controllerFixture struct {
	ctl       *Controller
	pending   *repository.MemoryPendingRepository
	scheduler *fakeScheduler
	notifier  *fakeNotifier
	bookings  *fakeBookingLog
	bus       *events.EventBus
}

func newFixture(t *testing.T) *controllerFixture {
	t.Helper()
	logger := zerolog.Nop()

	f := &controllerFixture{
		pending:   repository.NewMemoryPendingRepository(),
		scheduler: &fakeScheduler{booking: &models.Booking{RescheduleURL: "https://cal.example.com/r/1", CancelURL: "https://cal.example.com/c/1"}},
		notifier:  &fakeNotifier{},
		bookings:  &fakeBookingLog{},
		bus:       events.NewEventBus(),
	}
	f.ctl = NewController(f.pending, f.scheduler, f.notifier, f.bookings, f.bus, "Salon Belle Allure", &logger)
	return f
}

func (f *controllerFixture) putPending(t *testing.T, token string) {
	t.Helper()
	err := f.pending.Put(context.Background(), token, &models.PendingConfirmation{
		ExpiresAt: time.Now().Add(models.PendingTTL),
		Payload: models.ConfirmationPayload{
			Phone:            "+15145551234",
			Name:             "Jean Dupont",
			Service:          models.ServiceWomanCut,
			SchedulingHandle: "handle-woman",
			StartTime:        time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
}

func (f *controllerFixture) getForm(token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/confirm/"+token, nil)
	f.ctl.HandleForm(w, r, token)
	return w
}

func (f *controllerFixture) submit(token, email string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("email", email)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/confirm/"+token, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	f.ctl.HandleSubmit(w, r, token)
	return w
}

func TestHandleForm(t *testing.T) {
	t.Run("ValidToken", func(t *testing.T) {
		f := newFixture(t)
		f.putPending(t, "tok1")

		w := f.getForm("tok1")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Jean Dupont")
		assert.Contains(t, w.Body.String(), "10/09/2026 14:00")

		// Viewing the form leaves the token intact.
		_, err := f.pending.Get(context.Background(), "tok1")
		assert.NoError(t, err)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		f := newFixture(t)

		w := f.getForm("missing")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "expiré")
	})
}

func TestHandleSubmit(t *testing.T) {
	t.Run("Finalizes", func(t *testing.T) {
		f := newFixture(t)
		f.putPending(t, "tok1")

		var finalized int
		f.bus.Subscribe(events.EventBookingFinalized, func(ev *events.Event) error {
			finalized++
			return nil
		})

		w := f.submit("tok1", "jean@example.com")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "confirmé")
		assert.Equal(t, 1, f.scheduler.createCalls)
		assert.Equal(t, 1, finalized)

		require.Len(t, f.bookings.recorded, 1)
		assert.Equal(t, "jean@example.com", f.bookings.recorded[0].ClientEmail)
		assert.Equal(t, models.ServiceWomanCut, f.bookings.recorded[0].Service)
		assert.Equal(t, "+15145551234", f.bookings.recorded[0].ClientPhone)

		require.Len(t, f.notifier.sent, 1)
		assert.Contains(t, f.notifier.sent[0], "https://cal.example.com/r/1")
	})

	t.Run("SecondSubmitSeesExpired", func(t *testing.T) {
		f := newFixture(t)
		f.putPending(t, "tok1")

		first := f.submit("tok1", "jean@example.com")
		assert.Equal(t, http.StatusOK, first.Code)

		second := f.submit("tok1", "jean@example.com")
		assert.Equal(t, http.StatusNotFound, second.Code)
		assert.Equal(t, 1, f.scheduler.createCalls)
	})

	t.Run("InvalidEmailKeepsToken", func(t *testing.T) {
		f := newFixture(t)
		f.putPending(t, "tok1")

		w := f.submit("tok1", "pas-un-email")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "invalide")
		assert.Equal(t, 0, f.scheduler.createCalls)

		// Still usable afterwards.
		retry := f.submit("tok1", "jean@example.com")
		assert.Equal(t, http.StatusOK, retry.Code)
	})

	t.Run("SchedulerFailureConsumesToken", func(t *testing.T) {
		f := newFixture(t)
		f.scheduler.err = errors.New("upstream 500")
		f.putPending(t, "tok1")

		var failed int
		f.bus.Subscribe(events.EventBookingFailed, func(ev *events.Event) error {
			failed++
			return nil
		})

		w := f.submit("tok1", "jean@example.com")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, 1, failed)
		assert.Empty(t, f.bookings.recorded)

		// No retry path: the token was consumed by the attempt.
		_, err := f.pending.Get(context.Background(), "tok1")
		assert.Error(t, err)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		f := newFixture(t)

		w := f.submit("missing", "jean@example.com")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEmailPattern(t *testing.T) {
	valid := []string{"a@b.co", "jean.dupont@example.com", "j+tag@mail.example.org"}
	invalid := []string{"", "jean", "jean@", "@example.com", "jean@example", "jean dupont@example.com"}

	for _, email := range valid {
		assert.True(t, emailPattern.MatchString(email), "should accept %q", email)
	}
	for _, email := range invalid {
		assert.False(t, emailPattern.MatchString(email), "should reject %q", email)
	}
}
