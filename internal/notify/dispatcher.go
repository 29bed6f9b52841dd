// Package notify fans alert events out to a monitor's configured channels.
// Channels are independent: one failing channel never blocks the others, and
// failures are logged rather than propagated.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"safe-monitor/internal/config"
	"safe-monitor/internal/models"
)

// DefaultChannelTimeout bounds each channel's network call.
const DefaultChannelTimeout = 10 * time.Second

// Dispatcher delivers alerts over all supported channel types.
type Dispatcher struct {
	HTTPClient     *http.Client
	TelegramToken  string
	SMTP           config.SMTPConfig
	ChannelTimeout time.Duration
	Logger         *zerolog.Logger

	// sendMail is swappable for tests.
	sendMail mailSender
}

// NewDispatcher creates a dispatcher with per-channel timeouts.
func NewDispatcher(cfg *config.Config, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		HTTPClient:     &http.Client{Timeout: DefaultChannelTimeout},
		TelegramToken:  cfg.Telegram.BotToken,
		SMTP:           cfg.SMTP,
		ChannelTimeout: DefaultChannelTimeout,
		Logger:         logger,
		sendMail:       smtpSend,
	}
}

// Dispatch sends the alert to every configured channel. Each channel builds
// its own payload and performs its own call; errors are logged per channel.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []models.ChannelConfig, alert models.AlertEvent) {
	for _, ch := range channels {
		chCtx, cancel := context.WithTimeout(ctx, d.timeout())
		err := d.send(chCtx, ch, alert)
		cancel()

		if err != nil {
			d.Logger.Error().
				Err(err).
				Str("channel", string(ch.Type)).
				Str("safe", alert.SafeAddress).
				Str("safeTxHash", alert.SafeTxHash).
				Msg("Notification channel delivery failed")
			continue
		}
		d.Logger.Info().
			Str("channel", string(ch.Type)).
			Str("safe", alert.SafeAddress).
			Str("safeTxHash", alert.SafeTxHash).
			Msg("Notification delivered")
	}
}

func (d *Dispatcher) timeout() time.Duration {
	if d.ChannelTimeout > 0 {
		return d.ChannelTimeout
	}
	return DefaultChannelTimeout
}

func (d *Dispatcher) send(ctx context.Context, ch models.ChannelConfig, alert models.AlertEvent) error {
	switch ch.Type {
	case models.ChannelWebhook:
		return d.sendWebhook(ctx, ch.URL, alert)
	case models.ChannelDiscord:
		return d.sendDiscord(ctx, ch.URL, alert)
	case models.ChannelSlack:
		return d.sendSlack(ctx, ch.URL, alert)
	case models.ChannelTelegram:
		return d.sendTelegram(ctx, ch.ChatID, alert)
	case models.ChannelEmail:
		return d.sendEmail(ctx, ch.Email, alert)
	default:
		return fmt.Errorf("unknown channel type %q", ch.Type)
	}
}

// postJSON POSTs a JSON payload and fails on non-2xx responses.
func (d *Dispatcher) postJSON(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, resp.Status)
	}
	return nil
}
