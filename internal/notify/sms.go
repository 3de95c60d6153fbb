package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salonvox/internal/config"
	"salonvox/internal/metrics"

	"github.com/rs/zerolog"
)

// SMSNotifier sends text messages through a Twilio-style REST gateway.
// Missing credentials make every send a silent no-op so the dialog can run
// in environments without an SMS account.
type SMSNotifier struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewSMSNotifier(cfg config.SMSConfig, logger *zerolog.Logger) *SMSNotifier {
	return &SMSNotifier{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (n *SMSNotifier) SendText(ctx context.Context, to, body string) error {
	if n.accountSID == "" || n.authToken == "" || n.fromNumber == "" {
		n.logger.Debug().Str("to", to).Msg("sms credentials not configured, skipping send")
		return nil
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", n.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.baseURL, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(n.accountSID, n.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	metrics.IncSMSSent()
	n.logger.Info().Str("to", to).Msg("sms sent")
	return nil
}
