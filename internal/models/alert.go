package models

import "time"

// AlertLinks are the reference URLs attached to every notification.
type AlertLinks struct {
	SafeApp     string `json:"safe_app"`
	SafeMonitor string `json:"safe_monitor"`
	Explorer    string `json:"etherscan,omitempty"`
}

// AlertEvent is the channel-independent notification payload built by the
// scheduler and rendered per channel by the dispatcher. It is also the shape
// mirrored to the Kafka firehose.
type AlertEvent struct {
	MonitorID     string     `json:"monitor_id"`
	SafeAddress   string     `json:"safe_address"`
	Network       string     `json:"network"`
	SafeTxHash    string     `json:"safe_tx_hash"`
	ExecutionHash string     `json:"execution_hash,omitempty"`
	Description   string     `json:"description"`
	Nonce         int64      `json:"nonce"`
	Status        string     `json:"status"`
	Suspicious    bool       `json:"suspicious"`
	RiskLevel     string     `json:"risk_level"`
	Warnings      []string   `json:"warnings,omitempty"`
	Links         AlertLinks `json:"links"`
	Timestamp     time.Time  `json:"timestamp"`
}
