package notify

import (
	"context"
	"fmt"
	"strings"

	"safe-monitor/internal/models"
)

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string        `json:"type"`
	Text     *slackText    `json:"text,omitempty"`
	Fields   []slackText   `json:"fields,omitempty"`
	Elements []slackButton `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackButton struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url"`
}

func (d *Dispatcher) sendSlack(ctx context.Context, url string, alert models.AlertEvent) error {
	header := ":large_blue_circle: New Safe transaction"
	if alert.Suspicious {
		header = fmt.Sprintf(":red_circle: Suspicious Safe transaction (%s risk)", alert.RiskLevel)
	}

	blocks := []slackBlock{
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", header, alert.Description)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Network:*\n%s", alert.Network)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Nonce:*\n%d", alert.Nonce)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Status:*\n%s", alert.Status)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Hash:*\n`%s`", alert.SafeTxHash)},
			},
		},
	}
	if len(alert.Warnings) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Warnings:*\n" + strings.Join(alert.Warnings, "\n")},
		})
	}

	buttons := []slackButton{
		{Type: "button", Text: slackText{Type: "plain_text", Text: "Open in Safe"}, URL: alert.Links.SafeApp},
		{Type: "button", Text: slackText{Type: "plain_text", Text: "Monitor"}, URL: alert.Links.SafeMonitor},
	}
	if alert.Links.Explorer != "" {
		buttons = append(buttons, slackButton{
			Type: "button", Text: slackText{Type: "plain_text", Text: "Explorer"}, URL: alert.Links.Explorer,
		})
	}
	blocks = append(blocks, slackBlock{Type: "actions", Elements: buttons})

	return d.postJSON(ctx, url, slackPayload{Blocks: blocks})
}
