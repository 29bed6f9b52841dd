package models

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"
)

// Operation is the Safe call mode of a multisig transaction.
type Operation int

const (
	OperationCall         Operation = 0
	OperationDelegateCall Operation = 1
	OperationCreate       Operation = 2
)

// DecodedParameter is one decoded calldata argument.
type DecodedParameter struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// ValueString renders the raw parameter value for human-readable output.
func (p DecodedParameter) ValueString() string {
	var s string
	if err := json.Unmarshal(p.Value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(p.Value))
}

// DataDecoded is the transaction service's decoded calldata, when available.
type DataDecoded struct {
	Method     string             `json:"method"`
	Parameters []DecodedParameter `json:"parameters"`
}

// Confirmation is one owner signature on a multisig transaction.
type Confirmation struct {
	Owner           string    `json:"owner"`
	SubmissionDate  time.Time `json:"submissionDate"`
	SignatureType   string    `json:"signatureType"`
	TransactionHash *string   `json:"transactionHash"`
}

// SafeTransaction is a multisig transaction as reported by the Safe
// transaction service. Numeric uint256 fields arrive as decimal strings (or
// are absent entirely); accessors below default them to zero so a sparse
// response never breaks analysis.
type SafeTransaction struct {
	Safe            string         `json:"safe"`
	SafeTxHash      string         `json:"safeTxHash"`
	To              string         `json:"to"`
	Value           string         `json:"value"`
	Data            *string        `json:"data"`
	DataDecoded     *DataDecoded   `json:"dataDecoded"`
	Operation       Operation      `json:"operation"`
	SafeTxGas       json.Number    `json:"safeTxGas"`
	BaseGas         json.Number    `json:"baseGas"`
	GasPrice        json.Number    `json:"gasPrice"`
	GasToken        string         `json:"gasToken"`
	RefundReceiver  string         `json:"refundReceiver"`
	Nonce           json.Number    `json:"nonce"`
	SubmissionDate  *time.Time     `json:"submissionDate"`
	ExecutionDate   *time.Time     `json:"executionDate"`
	Modified        *time.Time     `json:"modified"`
	IsExecuted      bool           `json:"isExecuted"`
	IsSuccessful    *bool          `json:"isSuccessful"`
	TransactionHash *string        `json:"transactionHash"`
	Confirmations   []Confirmation `json:"confirmations"`
	Trusted         bool           `json:"trusted"`
}

// ZeroAddress is the EVM zero address, the default for absent address fields.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

func numberToBig(n json.Number) *big.Int {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// ValueWei returns the transferred value in wei, zero when absent/garbage.
func (t *SafeTransaction) ValueWei() *big.Int {
	if t.Value == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(t.Value, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

func (t *SafeTransaction) SafeTxGasBig() *big.Int { return numberToBig(t.SafeTxGas) }
func (t *SafeTransaction) BaseGasBig() *big.Int   { return numberToBig(t.BaseGas) }
func (t *SafeTransaction) GasPriceBig() *big.Int  { return numberToBig(t.GasPrice) }

// NonceInt64 returns the transaction nonce, zero when absent.
func (t *SafeTransaction) NonceInt64() int64 {
	v, err := t.Nonce.Int64()
	if err != nil {
		return 0
	}
	return v
}

// GasTokenOrZero returns the gas token address, defaulting to the zero address.
func (t *SafeTransaction) GasTokenOrZero() string {
	if t.GasToken == "" {
		return ZeroAddress
	}
	return t.GasToken
}

// RefundReceiverOrZero returns the refund receiver, defaulting to the zero address.
func (t *SafeTransaction) RefundReceiverOrZero() string {
	if t.RefundReceiver == "" {
		return ZeroAddress
	}
	return t.RefundReceiver
}

// HasData reports whether the transaction carries non-empty calldata.
func (t *SafeTransaction) HasData() bool {
	return t.Data != nil && *t.Data != "" && *t.Data != "0x"
}

// Method returns the decoded method name, empty when calldata was not decoded.
func (t *SafeTransaction) Method() string {
	if t.DataDecoded == nil {
		return ""
	}
	return t.DataDecoded.Method
}

// EventTime is the timestamp used for the monitor notification floor:
// execution date when executed, submission date otherwise.
func (t *SafeTransaction) EventTime() *time.Time {
	if t.ExecutionDate != nil {
		return t.ExecutionDate
	}
	return t.SubmissionDate
}

// Status is a short human-readable execution status label.
func (t *SafeTransaction) Status() string {
	if !t.IsExecuted {
		return "pending"
	}
	if t.IsSuccessful != nil && !*t.IsSuccessful {
		return "failed"
	}
	return "executed"
}

// StoredTransaction is a persisted transaction row, reduced to the fields the
// pipeline needs for change detection.
type StoredTransaction struct {
	ID                string
	SafeTxHash        string
	SafeAddress       string
	Network           string
	Nonce             int64
	IsExecuted        bool
	IsSuccessful      *bool
	ExecutionDate     *time.Time
	ExecutionHash     *string
	ConfirmationCount int
}

// ChangedBy reports whether the upstream transaction differs from the stored
// row in any field that warrants re-analysis.
func (s *StoredTransaction) ChangedBy(t *SafeTransaction) bool {
	if s.IsExecuted != t.IsExecuted {
		return true
	}
	if (s.IsSuccessful == nil) != (t.IsSuccessful == nil) {
		return true
	}
	if s.IsSuccessful != nil && t.IsSuccessful != nil && *s.IsSuccessful != *t.IsSuccessful {
		return true
	}
	if s.ConfirmationCount != len(t.Confirmations) {
		return true
	}
	if (s.ExecutionDate == nil) != (t.ExecutionDate == nil) {
		return true
	}
	if s.ExecutionDate != nil && t.ExecutionDate != nil && !s.ExecutionDate.Equal(*t.ExecutionDate) {
		return true
	}
	if (s.ExecutionHash == nil) != (t.TransactionHash == nil) {
		return true
	}
	if s.ExecutionHash != nil && t.TransactionHash != nil && !strings.EqualFold(*s.ExecutionHash, *t.TransactionHash) {
		return true
	}
	return false
}
