package main

import (
	"context"

	"safe-monitor/internal/database"
	"safe-monitor/internal/logger"
	"safe-monitor/internal/models"
	"safe-monitor/internal/validation"
)

// seedMonitors inserts a few well-known multisig wallets for local
// development. Production monitors are created by the configuration API.
func seedMonitors(ctx context.Context, store *database.Store) {
	monitors := []models.Monitor{
		{
			UserID:      "a4b21045-ea18-42f0-bfe0-798ed7f7a6cb",
			SafeAddress: "0x849D52316331967b6fF1198e5E32A0eB168D039d",
			Network:     "ethereum",
			Settings: models.MonitorSettings{
				Active:    true,
				AlertType: models.AlertSuspicious,
				Channels: []models.ChannelConfig{
					{Type: models.ChannelWebhook, URL: "http://localhost:9000/hooks/safe"},
				},
			},
		},
		{
			UserID:      "a4b21045-ea18-42f0-bfe0-798ed7f7a6cb",
			SafeAddress: "0x0DA0C3e52C977Ed3cBc641fF02DD271c3ED55aFe",
			Network:     "gnosis",
			Settings: models.MonitorSettings{
				Active:    true,
				AlertType: models.AlertManagement,
				Channels: []models.ChannelConfig{
					{Type: models.ChannelWebhook, URL: "http://localhost:9000/hooks/safe"},
				},
			},
		},
		{
			UserID:      "a4b21045-ea18-42f0-bfe0-798ed7f7a6cb",
			SafeAddress: "0xd9Db270c1B5E3Bd161E8c8503c55cEABeE709552",
			Network:     "sepolia",
			Settings: models.MonitorSettings{
				Active:    true,
				AlertType: models.AlertAll,
				Channels: []models.ChannelConfig{
					{Type: models.ChannelWebhook, URL: "http://localhost:9000/hooks/safe"},
				},
			},
		},
	}

	for i := range monitors {
		m := &monitors[i]
		if err := validation.ValidateMonitor(m); err != nil {
			logger.GetLogger().Error().
				Err(err).
				Str("safe", m.SafeAddress).
				Msg("Skipping invalid seed monitor")
			continue
		}
		if err := store.CreateMonitor(ctx, m); err != nil {
			logger.GetLogger().Error().
				Err(err).
				Str("safe", m.SafeAddress).
				Str("network", m.Network).
				Msg("Error seeding monitor")
			continue
		}
		logger.GetLogger().Info().
			Str("monitorID", m.ID).
			Str("safe", m.SafeAddress).
			Str("network", m.Network).
			Msg("Seeded monitor")
	}
}
