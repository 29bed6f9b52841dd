package analysis

import (
	"safe-monitor/internal/safehash"
)

// Severity grades a single finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// PriorityP0 marks a finding as unconditionally critical: it forces the
// aggregate risk level to critical and overrides monitor notification
// filters.
const PriorityP0 = "P0"

// Detail is one structured finding produced by the rule engine.
type Detail struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Priority string   `json:"priority,omitempty"`
	// TrackOnlyAll findings are bookkeeping noise that only monitors with
	// alert-type "all" want to hear about.
	TrackOnlyAll bool `json:"track_only_all,omitempty"`

	Amount   string `json:"amount,omitempty"`
	Gap      int64  `json:"gap,omitempty"`
	Computed string `json:"computed_hash,omitempty"`
	Reported string `json:"reported_hash,omitempty"`
}

// NonceCheck is the nonce sequencer sub-result.
type NonceCheck struct {
	Checked  bool     `json:"checked"`
	Risky    bool     `json:"risky"`
	Severity Severity `json:"severity,omitempty"`
	Gap      int64    `json:"gap"`
	Message  string   `json:"message,omitempty"`
}

// Result is the full security analysis of one multisig transaction.
type Result struct {
	IsSuspicious bool                   `json:"is_suspicious"`
	RiskLevel    Severity               `json:"risk_level"`
	Warnings     []string               `json:"warnings"`
	Details      []Detail               `json:"details"`
	HashCheck    *safehash.Verification `json:"hash_check,omitempty"`
	NonceCheck   *NonceCheck            `json:"nonce_check,omitempty"`
	CallType     string                 `json:"call_type"`
	Summary      string                 `json:"summary"`
	IsManagement bool                   `json:"is_management"`
}

// HasP0 reports whether any finding carries the P0 priority marker.
func (r *Result) HasP0() bool {
	for _, d := range r.Details {
		if d.Priority == PriorityP0 {
			return true
		}
	}
	return false
}

// TrackOnly reports whether every finding is bookkeeping that should only
// notify monitors with alert-type "all".
func (r *Result) TrackOnly() bool {
	if len(r.Details) == 0 {
		return false
	}
	for _, d := range r.Details {
		if !d.TrackOnlyAll {
			return false
		}
	}
	return true
}
