package notify

import (
	"context"
	"time"

	"safe-monitor/internal/models"
)

// webhookPayload is the stable envelope generic webhook consumers integrate
// against; field names are part of the contract.
type webhookPayload struct {
	EventType   string             `json:"event_type"`
	AlertType   string             `json:"alert_type"`
	Safe        webhookSafe        `json:"safe"`
	Transaction webhookTransaction `json:"transaction"`
	Links       models.AlertLinks  `json:"links"`
	Timestamp   string             `json:"timestamp"`
}

type webhookSafe struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

type webhookTransaction struct {
	Hash          string `json:"hash"`
	Description   string `json:"description"`
	Nonce         int64  `json:"nonce"`
	Status        string `json:"status"`
	ExecutionHash string `json:"execution_hash,omitempty"`
}

func alertTypeLabel(alert models.AlertEvent) string {
	if alert.Suspicious {
		return "suspicious_transaction"
	}
	return "new_transaction"
}

func (d *Dispatcher) sendWebhook(ctx context.Context, url string, alert models.AlertEvent) error {
	payload := webhookPayload{
		EventType: "safe_transaction",
		AlertType: alertTypeLabel(alert),
		Safe: webhookSafe{
			Address: alert.SafeAddress,
			Network: alert.Network,
		},
		Transaction: webhookTransaction{
			Hash:          alert.SafeTxHash,
			Description:   alert.Description,
			Nonce:         alert.Nonce,
			Status:        alert.Status,
			ExecutionHash: alert.ExecutionHash,
		},
		Links:     alert.Links,
		Timestamp: alert.Timestamp.UTC().Format(time.RFC3339),
	}
	return d.postJSON(ctx, url, payload)
}
