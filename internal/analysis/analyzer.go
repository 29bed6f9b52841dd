// Package analysis implements the deterministic risk rule engine for Safe
// multisig transactions. Every rule is auditable: the same transaction always
// produces the same findings.
package analysis

import (
	"fmt"
	"math/big"
	"strings"

	"safe-monitor/internal/models"
	"safe-monitor/internal/safehash"
)

// Value-transfer thresholds in native token units.
var (
	mediumValueWei = new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))
	highValueWei   = new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))
)

// Gas limits above this are unusual for a multisig transaction.
const unusualGasLimit = 1_000_000

// managementMethods maps governance method names to the warning they raise.
// All of them change who controls the wallet or how, so all are P0.
var managementMethods = map[string]string{
	"addOwnerWithThreshold": "Owner Added",
	"removeOwner":           "Owner Removed",
	"swapOwner":             "Owner Swapped",
	"changeThreshold":       "Threshold Changed",
	"enableModule":          "Module Enabled",
	"disableModule":         "Module Disabled",
	"setGuard":              "Guard Changed",
	"setFallbackHandler":    "Fallback Handler Changed",
	"changeMasterCopy":      "Master Copy Changed",
	"setup":                 "Setup Re-invoked",
}

// bookkeepingMethods are signing/approval/execution noise, only interesting
// to monitors that asked for everything.
var bookkeepingMethods = map[string]bool{
	"signMessage":     true,
	"approveHash":     true,
	"execTransaction": true,
}

// Options carries the optional context signals for one analysis run.
type Options struct {
	ChainID int64
	// Version is the wallet's on-chain version string. Hash verification is
	// skipped when unknown.
	Version string
	// PrevNonce is the highest nonce among previously stored transactions
	// for the same wallet, nil when none exist.
	PrevNonce *int64
}

// Analyzer evaluates the rule set over decoded transactions.
type Analyzer struct {
	NonceGapThreshold int64
}

func NewAnalyzer(nonceGapThreshold int64) *Analyzer {
	if nonceGapThreshold <= 0 {
		nonceGapThreshold = DefaultNonceGapThreshold
	}
	return &Analyzer{NonceGapThreshold: nonceGapThreshold}
}

// Analyze runs every rule over the transaction and aggregates the findings
// into a SecurityAnalysisResult.
func (a *Analyzer) Analyze(tx *models.SafeTransaction, safeAddress string, opts Options) *Result {
	res := &Result{
		RiskLevel: SeverityLow,
		Warnings:  []string{},
		Details:   []Detail{},
	}

	a.checkGasParameters(tx, res)
	a.checkDelegateCall(tx, res)
	a.checkValueTransfer(tx, res)
	a.checkMethod(tx, res)
	a.checkUnusualGas(tx, res)
	a.checkUntrustedInteraction(tx, res)
	a.checkHash(tx, safeAddress, opts, res)
	a.checkNonceSequence(tx, opts, res)

	res.CallType = classifyCall(tx, res.IsManagement)
	res.Summary = summarize(tx, res.CallType)
	res.RiskLevel, res.IsSuspicious = aggregate(res.Details)

	return res
}

func isZeroAddress(addr string) bool {
	return addr == "" || strings.EqualFold(addr, models.ZeroAddress)
}

// Rule 1: gas-parameter integrity. Non-default gas fields are the classic
// vehicle for hidden value transfers through refund mechanics.
func (a *Analyzer) checkGasParameters(tx *models.SafeTransaction, res *Result) {
	gasPrice := tx.GasPriceBig()
	safeTxGas := tx.SafeTxGasBig()
	baseGas := tx.BaseGasBig()
	hasGasToken := !isZeroAddress(tx.GasToken)
	hasRefund := !isZeroAddress(tx.RefundReceiver)

	anyNonZero := gasPrice.Sign() != 0 || safeTxGas.Sign() != 0 || baseGas.Sign() != 0 ||
		hasGasToken || hasRefund
	if anyNonZero {
		res.addWarning("Non-standard Gas Parameters")
		res.addDetail(Detail{
			Type:     "gas_parameters",
			Severity: SeverityHigh,
			Message:  "non-default gas parameters set on multisig transaction",
		})
	}

	switch {
	case hasGasToken && hasRefund:
		severity := SeverityHigh
		msg := "gas token attack risk: gas token and refund receiver both set"
		if gasPrice.Sign() != 0 {
			severity = SeverityCritical
			msg = "gas token attack risk: non-zero gas price enables hidden value transfer via refund"
		}
		res.addWarning("Gas Token Attack Risk")
		res.addDetail(Detail{Type: "gas_token_attack", Severity: severity, Message: msg})
	case hasGasToken:
		res.addDetail(Detail{
			Type:     "gas_token",
			Severity: SeverityMedium,
			Message:  "non-standard gas token set",
		})
	case hasRefund:
		res.addDetail(Detail{
			Type:     "refund_receiver",
			Severity: SeverityMedium,
			Message:  "refund receiver set",
		})
	}
}

// Rule 2: delegate calls execute the target's code in the wallet's own
// storage context. Anything off the canonical helper whitelist is treated as
// a takeover attempt.
func (a *Analyzer) checkDelegateCall(tx *models.SafeTransaction, res *Result) {
	if tx.Operation != models.OperationDelegateCall {
		return
	}

	if name, ok := TrustedDelegateTarget(tx.To); ok {
		res.addDetail(Detail{
			Type:     "delegate_call",
			Severity: SeverityLow,
			Message:  fmt.Sprintf("delegate call to known helper contract (%s)", name),
		})
		return
	}

	res.addWarning("Untrusted Delegate Call")
	res.addDetail(Detail{
		Type:     "delegate_call",
		Severity: SeverityCritical,
		Priority: PriorityP0,
		Message:  "untrusted delegate call - full compromise risk",
	})
}

// Rule 3: large native value transfers.
func (a *Analyzer) checkValueTransfer(tx *models.SafeTransaction, res *Result) {
	value := tx.ValueWei()
	if value.Cmp(mediumValueWei) <= 0 {
		return
	}

	severity := SeverityMedium
	if value.Cmp(highValueWei) > 0 {
		severity = SeverityHigh
	}
	res.addWarning("Large Value Transfer")
	res.addDetail(Detail{
		Type:     "large_value",
		Severity: severity,
		Message:  fmt.Sprintf("large value transfer of %s native units", formatEther(value)),
		Amount:   formatEther(value),
	})
}

// Rule 4: governance/management operations, plus execution status.
func (a *Analyzer) checkMethod(tx *models.SafeTransaction, res *Result) {
	method := tx.Method()

	if warning, ok := managementMethods[method]; ok {
		res.IsManagement = true
		res.addWarning(warning)
		res.addDetail(Detail{
			Type:     "management_operation",
			Severity: SeverityCritical,
			Priority: PriorityP0,
			Message:  fmt.Sprintf("wallet management operation: %s", method),
		})
	}

	if tx.IsExecuted && tx.IsSuccessful != nil && !*tx.IsSuccessful {
		res.addWarning("Execution Failed")
		res.addDetail(Detail{
			Type:     "execution_failed",
			Severity: SeverityMedium,
			Message:  "transaction execution failed on chain",
		})
		return
	}

	if bookkeepingMethods[method] {
		res.addDetail(Detail{
			Type:         "bookkeeping",
			Severity:     SeverityLow,
			Message:      fmt.Sprintf("signing/approval bookkeeping: %s", method),
			TrackOnlyAll: true,
		})
	}
}

// Rule 5: unusual gas settings.
func (a *Analyzer) checkUnusualGas(tx *models.SafeTransaction, res *Result) {
	limit := big.NewInt(unusualGasLimit)
	if tx.SafeTxGasBig().Cmp(limit) > 0 || tx.BaseGasBig().Cmp(limit) > 0 {
		res.addDetail(Detail{
			Type:     "unusual_gas",
			Severity: SeverityMedium,
			Message:  "unusually high safeTxGas or baseGas",
		})
	}
	if tx.GasPriceBig().Sign() == 0 && !isZeroAddress(tx.GasToken) {
		res.addDetail(Detail{
			Type:     "gas_manipulation",
			Severity: SeverityMedium,
			Message:  "zero gas price with non-zero gas token - possible gas manipulation",
		})
	}
}

// Rule 6: calldata into a contract the transaction service does not mark
// trusted.
func (a *Analyzer) checkUntrustedInteraction(tx *models.SafeTransaction, res *Result) {
	if tx.HasData() && !tx.Trusted {
		res.addDetail(Detail{
			Type:     "untrusted_contract",
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("interaction with untrusted contract %s", tx.To),
		})
	}
}

// Hash verification signal. A mismatch means the service-reported hash is not
// what the wallet contract would sign, which is never acceptable.
func (a *Analyzer) checkHash(tx *models.SafeTransaction, safeAddress string, opts Options, res *Result) {
	if opts.Version == "" || tx.SafeTxHash == "" {
		return
	}

	fields := safehash.TxFields{
		To:             tx.To,
		Value:          tx.Value,
		Operation:      int(tx.Operation),
		SafeTxGas:      tx.SafeTxGas.String(),
		BaseGas:        tx.BaseGas.String(),
		GasPrice:       tx.GasPrice.String(),
		GasToken:       tx.GasToken,
		RefundReceiver: tx.RefundReceiver,
		Nonce:          tx.NonceInt64(),
	}
	if tx.Data != nil {
		fields.Data = *tx.Data
	}

	v := safehash.Verify(fields, opts.Version, opts.ChainID, safeAddress, tx.SafeTxHash)
	res.HashCheck = &v
	if v.Verified {
		return
	}

	res.addWarning("Hash Verification Failed")
	res.addDetail(Detail{
		Type:     "hash_verification",
		Severity: SeverityCritical,
		Priority: PriorityP0,
		Message:  "transaction hash verification failed",
		Computed: v.ComputedHash,
		Reported: v.ReportedHash,
	})
}

// Nonce sequencing signal.
func (a *Analyzer) checkNonceSequence(tx *models.SafeTransaction, opts Options, res *Result) {
	var prev int64
	hasPrev := opts.PrevNonce != nil
	if hasPrev {
		prev = *opts.PrevNonce
	}

	check := CheckNonce(tx.NonceInt64(), prev, hasPrev, a.NonceGapThreshold)
	res.NonceCheck = &check
	if !check.Risky {
		return
	}

	res.addWarning("Nonce Anomaly")
	res.addDetail(Detail{
		Type:     "nonce_anomaly",
		Severity: check.Severity,
		Message:  check.Message,
		Gap:      check.Gap,
	})
}

// aggregate folds findings into the overall risk level and suspicious flag.
// Any P0 forces critical. The thresholds below are deliberate and covered by
// tests; do not reorder.
func aggregate(details []Detail) (Severity, bool) {
	var criticals, highs, mediums, lows int
	for _, d := range details {
		if d.Priority == PriorityP0 {
			return SeverityCritical, true
		}
		switch d.Severity {
		case SeverityCritical:
			criticals++
		case SeverityHigh:
			highs++
		case SeverityMedium:
			mediums++
		case SeverityLow:
			lows++
		}
	}

	switch {
	case criticals > 0:
		return SeverityCritical, true
	case highs > 0:
		return SeverityHigh, true
	case mediums > 1 || (mediums == 1 && lows > 2):
		return SeverityMedium, true
	case mediums == 1:
		return SeverityMedium, false
	default:
		return SeverityLow, false
	}
}

func classifyCall(tx *models.SafeTransaction, isManagement bool) string {
	switch {
	case tx.Operation == models.OperationDelegateCall:
		return "delegate-call"
	case tx.Operation == models.OperationCreate:
		return "contract-creation"
	case isManagement:
		return "management"
	case tx.HasData():
		return "contract-call"
	default:
		return "transfer"
	}
}

func summarize(tx *models.SafeTransaction, callType string) string {
	switch callType {
	case "transfer":
		return fmt.Sprintf("Transfer of %s native units to %s", formatEther(tx.ValueWei()), tx.To)
	case "contract-creation":
		return "Contract creation"
	case "delegate-call":
		if method := tx.Method(); method != "" {
			return fmt.Sprintf("Delegate call %s to %s", method, tx.To)
		}
		return fmt.Sprintf("Delegate call to %s", tx.To)
	default:
		if method := tx.Method(); method != "" {
			return fmt.Sprintf("Call %s on %s", method, tx.To)
		}
		return fmt.Sprintf("Call to %s", tx.To)
	}
}

func formatEther(wei *big.Int) string {
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	s := f.Text('f', 18)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" {
		return "0"
	}
	return s
}

func (r *Result) addWarning(w string) {
	for _, existing := range r.Warnings {
		if existing == w {
			return
		}
	}
	r.Warnings = append(r.Warnings, w)
}

func (r *Result) addDetail(d Detail) {
	r.Details = append(r.Details, d)
}
