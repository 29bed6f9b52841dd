package models

import (
	"time"
)

// AlertType selects which transactions a monitor wants to be notified about.
type AlertType string

const (
	AlertAll        AlertType = "all"
	AlertSuspicious AlertType = "suspicious"
	AlertManagement AlertType = "management"
)

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	ChannelWebhook  ChannelType = "webhook"
	ChannelDiscord  ChannelType = "discord"
	ChannelSlack    ChannelType = "slack"
	ChannelTelegram ChannelType = "telegram"
	ChannelEmail    ChannelType = "email"
)

// ChannelConfig is a single notification target configured on a monitor.
type ChannelConfig struct {
	Type   ChannelType `json:"type"`
	URL    string      `json:"url,omitempty"`
	ChatID string      `json:"chat_id,omitempty"`
	Email  string      `json:"email,omitempty"`
}

// MonitorSettings is the settings blob stored per monitor.
type MonitorSettings struct {
	Active         bool            `json:"active"`
	AlertType      AlertType       `json:"alert_type"`
	ManagementOnly bool            `json:"management_only"`
	Channels       []ChannelConfig `json:"channels"`
}

// Monitor is a user's subscription to a (safe address, network) pair.
// Monitors are created and edited by the configuration API; the core only
// reads them.
type Monitor struct {
	ID          string
	UserID      string
	SafeAddress string
	Network     string
	CreatedAt   time.Time
	Settings    MonitorSettings
}

// EffectiveAlertType resolves the legacy management-only flag against the
// alert-type selector.
func (m *Monitor) EffectiveAlertType() AlertType {
	if m.Settings.ManagementOnly {
		return AlertManagement
	}
	switch m.Settings.AlertType {
	case AlertAll, AlertSuspicious, AlertManagement:
		return m.Settings.AlertType
	default:
		return AlertSuspicious
	}
}

// Checkpoint is the durable per-(safe, network) poll cursor.
type Checkpoint struct {
	SafeAddress   string
	Network       string
	LastPolledAt  *time.Time
	LastTxFoundAt *time.Time
}
