package validation

import (
	"errors"
	"fmt"
	"regexp"

	"safe-monitor/internal/models"
	"safe-monitor/internal/networks"
)

var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidateAddress validates an EVM wallet address format.
func ValidateAddress(address string) error {
	if address == "" {
		return errors.New("address cannot be empty")
	}
	if !evmAddressRegex.MatchString(address) {
		return errors.New("invalid EVM address format")
	}
	return nil
}

// ValidateMonitor checks a monitor row before the scheduler picks it up.
// Rows written by the configuration API are not trusted blindly.
func ValidateMonitor(m *models.Monitor) error {
	if err := ValidateAddress(m.SafeAddress); err != nil {
		return fmt.Errorf("monitor %s: %w", m.ID, err)
	}
	if !networks.IsSupported(m.Network) {
		return fmt.Errorf("monitor %s: unsupported network %q", m.ID, m.Network)
	}
	for i, ch := range m.Settings.Channels {
		if err := validateChannel(ch); err != nil {
			return fmt.Errorf("monitor %s: channel %d: %w", m.ID, i, err)
		}
	}
	return nil
}

func validateChannel(ch models.ChannelConfig) error {
	switch ch.Type {
	case models.ChannelWebhook, models.ChannelDiscord, models.ChannelSlack:
		if ch.URL == "" {
			return fmt.Errorf("%s channel requires a url", ch.Type)
		}
	case models.ChannelTelegram:
		if ch.ChatID == "" {
			return errors.New("telegram channel requires a chat_id")
		}
	case models.ChannelEmail:
		if ch.Email == "" {
			return errors.New("email channel requires a recipient")
		}
	default:
		return fmt.Errorf("unknown channel type %q", ch.Type)
	}
	return nil
}
