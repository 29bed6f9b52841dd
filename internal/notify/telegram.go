package notify

import (
	"context"
	"fmt"
	"strings"

	"safe-monitor/internal/models"
)

// telegramAPIBase is swappable for tests.
var telegramAPIBase = "https://api.telegram.org"

type telegramPayload struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (d *Dispatcher) sendTelegram(ctx context.Context, chatID string, alert models.AlertEvent) error {
	if d.TelegramToken == "" {
		return fmt.Errorf("telegram bot token not configured")
	}

	var b strings.Builder
	if alert.Suspicious {
		fmt.Fprintf(&b, "⚠️ *Suspicious Safe transaction* (%s risk)\n\n", alert.RiskLevel)
	} else {
		b.WriteString("\U0001F514 *New Safe transaction*\n\n")
	}
	fmt.Fprintf(&b, "*Safe:* `%s`\n", alert.SafeAddress)
	fmt.Fprintf(&b, "*Network:* %s\n", alert.Network)
	fmt.Fprintf(&b, "*Nonce:* %d\n", alert.Nonce)
	fmt.Fprintf(&b, "*Status:* %s\n", alert.Status)
	fmt.Fprintf(&b, "*Description:* %s\n", alert.Description)
	if len(alert.Warnings) > 0 {
		fmt.Fprintf(&b, "*Warnings:* %s\n", strings.Join(alert.Warnings, ", "))
	}
	fmt.Fprintf(&b, "\n[Open in Safe](%s)", alert.Links.SafeApp)

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, d.TelegramToken)
	return d.postJSON(ctx, url, telegramPayload{
		ChatID:                chatID,
		Text:                  b.String(),
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
}
