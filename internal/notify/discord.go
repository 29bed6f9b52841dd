package notify

import (
	"context"
	"fmt"
	"strings"

	"safe-monitor/internal/models"
)

// Discord embed colors, decimal.
const (
	discordRed  = 15158332
	discordBlue = 3447003
)

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title  string         `json:"title"`
	URL    string         `json:"url,omitempty"`
	Color  int            `json:"color"`
	Fields []discordField `json:"fields"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

func (d *Dispatcher) sendDiscord(ctx context.Context, url string, alert models.AlertEvent) error {
	title := "New Safe Transaction"
	color := discordBlue
	if alert.Suspicious {
		title = fmt.Sprintf("Suspicious Safe Transaction (%s risk)", alert.RiskLevel)
		color = discordRed
	}

	fields := []discordField{
		{Name: "Network", Value: alert.Network, Inline: true},
		{Name: "Nonce", Value: fmt.Sprintf("%d", alert.Nonce), Inline: true},
		{Name: "Status", Value: alert.Status, Inline: true},
		{Name: "Description", Value: alert.Description},
		{Name: "Safe Tx Hash", Value: alert.SafeTxHash},
	}
	if len(alert.Warnings) > 0 {
		fields = append(fields, discordField{
			Name:  "Warnings",
			Value: strings.Join(alert.Warnings, "\n"),
		})
	}
	links := fmt.Sprintf("[Open in Safe](%s) | [Monitor](%s)", alert.Links.SafeApp, alert.Links.SafeMonitor)
	if alert.Links.Explorer != "" {
		links += fmt.Sprintf(" | [Explorer](%s)", alert.Links.Explorer)
	}
	fields = append(fields, discordField{Name: "Links", Value: links})

	payload := discordPayload{
		Embeds: []discordEmbed{{
			Title:  title,
			URL:    alert.Links.SafeApp,
			Color:  color,
			Fields: fields,
		}},
	}
	return d.postJSON(ctx, url, payload)
}
