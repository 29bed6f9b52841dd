package interfaces

import (
	"context"
	"time"

	"safe-monitor/internal/analysis"
	"safe-monitor/internal/models"
	"safe-monitor/internal/txservice"
)

// TransactionSource abstracts the per-network Safe transaction service.
type TransactionSource interface {
	// GetSafeInfo probes wallet existence and returns the contract version.
	GetSafeInfo(ctx context.Context, network, address string) (*txservice.SafeInfo, error)

	// GetTransactions lists multisig transactions modified at or after
	// modifiedSince (all transactions when nil).
	GetTransactions(ctx context.Context, network, address string, modifiedSince *time.Time) ([]models.SafeTransaction, error)
}

// Store is the durable state consumed by the scheduler.
type Store interface {
	ActiveMonitors(ctx context.Context) ([]models.Monitor, error)

	GetTransaction(ctx context.Context, safeTxHash, safeAddress, network string) (*models.StoredTransaction, error)
	UpsertTransaction(ctx context.Context, tx *models.SafeTransaction, safeAddress, network string) error
	HighestNonce(ctx context.Context, safeAddress, network, excludeTxHash string) (int64, bool, error)
	SaveAnalysis(ctx context.Context, safeTxHash, safeAddress, network string, res *analysis.Result) error

	GetCheckpoint(ctx context.Context, safeAddress, network string) (*models.Checkpoint, error)
	TouchLastPolled(ctx context.Context, safeAddress, network string, t time.Time) error
	AdvanceLastTxFound(ctx context.Context, safeAddress, network string, t time.Time) error

	WasNotified(ctx context.Context, safeTxHash, monitorID string) (bool, error)
	MarkNotified(ctx context.Context, safeTxHash, monitorID string) (bool, error)
}

// AlertDispatcher fans an alert out to a monitor's configured channels.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, channels []models.ChannelConfig, alert models.AlertEvent)
}

// AlertEmitter mirrors dispatched alerts to an event stream.
type AlertEmitter interface {
	EmitAlert(alert models.AlertEvent) error
}
