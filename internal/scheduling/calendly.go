package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"salonvox/internal/config"
	"salonvox/internal/models"
)

// CalendlyClient implements the scheduling contract against a Calendly-style
// REST API. The scheduling handle is the event type URI.
type CalendlyClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewCalendlyClient(cfg config.CalendlyConfig) *CalendlyClient {
	return &CalendlyClient{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CalendlyClient) ListAvailableStartTimes(ctx context.Context, handle string, from, to time.Time) ([]time.Time, error) {
	q := url.Values{}
	q.Set("event_type", handle)
	q.Set("start_time", from.UTC().Format(time.RFC3339))
	q.Set("end_time", to.UTC().Format(time.RFC3339))

	var out struct {
		Collection []struct {
			StartTime time.Time `json:"start_time"`
			Status    string    `json:"status"`
		} `json:"collection"`
	}
	if err := c.do(ctx, http.MethodGet, "/event_type_available_times?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("list available times: %w", err)
	}

	slots := make([]time.Time, 0, len(out.Collection))
	for _, item := range out.Collection {
		if item.Status != "" && item.Status != "available" {
			continue
		}
		slots = append(slots, item.StartTime)
	}
	return slots, nil
}

func (c *CalendlyClient) CreateBooking(ctx context.Context, handle string, start time.Time, name, email string) (*models.Booking, error) {
	payload := map[string]string{
		"event_type": handle,
		"start_time": start.UTC().Format(time.RFC3339),
		"name":       name,
		"email":      email,
	}

	var out struct {
		Resource struct {
			URI           string    `json:"uri"`
			StartTime     time.Time `json:"start_time"`
			RescheduleURL string    `json:"reschedule_url"`
			CancelURL     string    `json:"cancel_url"`
			CreatedAt     time.Time `json:"created_at"`
		} `json:"resource"`
	}
	if err := c.do(ctx, http.MethodPost, "/invitees", payload, &out); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	startTime := out.Resource.StartTime
	if startTime.IsZero() {
		startTime = start
	}
	return &models.Booking{
		ClientName:    name,
		ClientEmail:   email,
		StartTime:     startTime,
		RescheduleURL: out.Resource.RescheduleURL,
		CancelURL:     out.Resource.CancelURL,
		CreatedAt:     out.Resource.CreatedAt,
	}, nil
}

func (c *CalendlyClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("scheduling api returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
